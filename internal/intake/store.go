package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"raiserocket/internal/logger"
	"raiserocket/internal/models"
)

// SlotKey is the well-known name of the single intake slot each visitor owns.
const SlotKey = "missionParameters"

// Store reads and writes intake records through a KV.
type Store struct {
	kv  KV
	log logger.Logger
}

func NewStore(kv KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{kv: kv, log: log}
}

// Slot binds the store to one visitor's storage partition.
func (s *Store) Slot(visitorID string) *Slot {
	return &Slot{store: s, key: SlotKey + ":" + visitorID}
}

// Slot is one visitor's intake slot.
type Slot struct {
	store *Store
	key   string
}

// Save overwrites the slot with record. No validation happens here.
func (s *Slot) Save(ctx context.Context, record *models.IntakeRecord) error {
	if record == nil {
		return errors.New("intake record is nil")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode intake record: %w", err)
	}
	if err := s.store.kv.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("save intake record: %w", err)
	}
	return nil
}

// Load returns the stored record. A missing, unreadable or undecodable slot
// is reported as absent.
func (s *Slot) Load(ctx context.Context) (*models.IntakeRecord, bool) {
	payload, err := s.store.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.store.log.Warn("intake storage unavailable, treating as absent", map[string]interface{}{
				"key":   s.key,
				"error": err.Error(),
			})
		}
		return nil, false
	}
	var record models.IntakeRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		s.store.log.Warn("discarding undecodable intake record", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return nil, false
	}
	return &record, true
}
