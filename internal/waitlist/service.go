// Package waitlist stores launch-notification sign-ups.
package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"raiserocket/internal/logger"
	"raiserocket/internal/metrics"
	"raiserocket/internal/models"

	"github.com/go-playground/validator/v10"
)

// The validation errors double as the inline form messages, hence the
// sentence case.
var (
	ErrEmailRequired = errors.New("Email is required")
	ErrEmailInvalid  = errors.New("Please enter a valid email address")
)

// maxSourceLength is counted in characters to match the VARCHAR(100) column.
const maxSourceLength = 100

type Service struct {
	db       *sql.DB
	validate *validator.Validate
	notifier Notifier
	log      logger.Logger
}

func NewService(db *sql.DB, notifier Notifier, log logger.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		db:       db,
		validate: validator.New(),
		notifier: notifier,
		log:      log,
	}
}

// ValidateEmail returns the normalized address or one of the Err* values.
func (s *Service) ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
			return "", ErrEmailRequired
		}
		return "", ErrEmailInvalid
	}
	return email, nil
}

// IsValidationError reports whether err is caused by the submitted address.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmailRequired) || errors.Is(err, ErrEmailInvalid)
}

// Join adds email to the waitlist. Joining again returns the stored entry
// with already set.
func (s *Service) Join(ctx context.Context, email, source string) (entry *models.WaitlistEntry, already bool, err error) {
	email, err = s.ValidateEmail(email)
	if err != nil {
		metrics.WaitlistJoins.WithLabelValues("invalid").Inc()
		return nil, false, err
	}
	source = truncateRunes(strings.TrimSpace(source), maxSourceLength)

	existing, err := s.find(ctx, email)
	if err != nil {
		metrics.WaitlistJoins.WithLabelValues("failed").Inc()
		return nil, false, err
	}
	if existing != nil {
		metrics.WaitlistJoins.WithLabelValues("duplicate").Inc()
		return existing, true, nil
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO waitlist_entries (email, source, created_at) VALUES (?, ?, ?)`,
		email, source, now)
	if err != nil {
		// lost a race against a concurrent join for the same address
		if existing, findErr := s.find(ctx, email); findErr == nil && existing != nil {
			metrics.WaitlistJoins.WithLabelValues("duplicate").Inc()
			return existing, true, nil
		}
		metrics.WaitlistJoins.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("insert waitlist entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		metrics.WaitlistJoins.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("waitlist entry id: %w", err)
	}
	entry = &models.WaitlistEntry{ID: id, Email: email, Source: source, CreatedAt: now}
	metrics.WaitlistJoins.WithLabelValues("joined").Inc()
	s.log.Info("waitlist join", map[string]interface{}{"id": id, "source": source})

	if err := s.notifier.Notify(ctx, entry); err != nil {
		s.log.WithError(err).Warn("waitlist confirmation not sent", map[string]interface{}{"id": id})
	}
	return entry, false, nil
}

// Count returns the number of stored entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count waitlist entries: %w", err)
	}
	return n, nil
}

func (s *Service) find(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, source, created_at FROM waitlist_entries WHERE email = ?`, email).
		Scan(&e.ID, &e.Email, &e.Source, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return &e, nil
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
