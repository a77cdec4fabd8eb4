package intake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"raiserocket/internal/redis"
)

// ErrNotFound is returned by a KV when the key was never written.
var ErrNotFound = errors.New("intake: key not found")

// KV is the durable key-value slot the intake store writes through.
// Writes are last-writer-wins.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV keeps slots in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

// RedisKV stores slots as plain redis strings.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV returns a redis-backed KV; ttl 0 keeps keys until overwritten.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, ttl: ttl}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.ErrCacheMiss) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SQLKV stores slots in the intake_slots table.
type SQLKV struct {
	db     *sql.DB
	driver string
}

func NewSQLKV(db *sql.DB, driver string) *SQLKV {
	return &SQLKV{db: db, driver: strings.ToLower(driver)}
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM intake_slots WHERE slot_key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup intake slot: %w", err)
	}
	return payload, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	var stmt string
	switch s.driver {
	case "mysql":
		stmt = `INSERT INTO intake_slots (slot_key, payload, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
	default:
		stmt = `INSERT INTO intake_slots (slot_key, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(slot_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, stmt, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("write intake slot: %w", err)
	}
	return nil
}
