package ura

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ljtan/propertypulse/internal/database"
)

// Cache stores raw data-service responses in sqlite so refreshes inside the
// TTL reuse the previous fetch. Keyed by (service, ref) where ref is the
// batch number or reference period.
type Cache struct {
	db  *database.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a response cache with the given time-to-live.
func NewCache(db *database.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "api_cache").Logger(),
	}
}

// Get returns the cached payload for (service, ref) if it is still fresh.
func (c *Cache) Get(service, ref string) (json.RawMessage, bool) {
	var payload []byte
	var fetchedAt int64 // unix nanoseconds

	err := c.db.QueryRow(
		"SELECT payload, fetched_at FROM api_cache WHERE service = ? AND ref = ?",
		service, ref,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("service", service).Str("ref", ref).Msg("Cache read failed")
		return nil, false
	}

	if time.Since(time.Unix(0, fetchedAt)) > c.ttl {
		return nil, false
	}
	return payload, true
}

// Put stores a payload, replacing any previous entry for (service, ref).
// Cache writes are best effort: a failure is logged, never propagated.
func (c *Cache) Put(service, ref string, payload []byte) {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO api_cache (service, ref, payload, fetched_at) VALUES (?, ?, ?, ?)",
		service, ref, payload, time.Now().UnixNano(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("service", service).Str("ref", ref).Msg("Cache write failed")
	}
}
