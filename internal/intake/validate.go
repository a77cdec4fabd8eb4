package intake

import (
	"errors"
	"strings"
	"unicode/utf8"

	"raiserocket/internal/models"
)

// MinOfferDetailsLength is the shortest trimmed manual description accepted on submit.
const MinOfferDetailsLength = 20

// ErrOfferTooShort and ErrFileRequired are shown verbatim as the inline form
// messages, hence the sentence case.
var (
	ErrOfferTooShort = errors.New("Please provide at least 20 characters of offer details")
	ErrFileRequired  = errors.New("Please upload a file first")
	ErrUnknownMethod = errors.New("intake method must be \"manual\" or \"upload\"")
)

// ValidateSubmission enforces the submit gate. Nothing may be persisted when
// it returns an error.
func ValidateSubmission(record *models.IntakeRecord) error {
	if record == nil {
		return ErrUnknownMethod
	}
	switch record.Method {
	case models.MethodManual:
		if utf8.RuneCountInString(strings.TrimSpace(record.OfferDetails)) < MinOfferDetailsLength {
			return ErrOfferTooShort
		}
	case models.MethodUpload:
		if strings.TrimSpace(record.FileName) == "" {
			return ErrFileRequired
		}
	default:
		return ErrUnknownMethod
	}
	return nil
}

// ValidateDraft only checks the variant tag; drafts keep whatever is present.
func ValidateDraft(record *models.IntakeRecord) error {
	if record == nil {
		return ErrUnknownMethod
	}
	switch record.Method {
	case models.MethodManual, models.MethodUpload:
		return nil
	default:
		return ErrUnknownMethod
	}
}

// IsValidationError reports whether err came from ValidateSubmission or ValidateDraft.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOfferTooShort) || errors.Is(err, ErrFileRequired) || errors.Is(err, ErrUnknownMethod)
}
