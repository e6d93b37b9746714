package dashboard

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ljtan/propertypulse/internal/database"
	"github.com/ljtan/propertypulse/internal/modules/analytics"
)

// Snapshot is one published dashboard build: the full report plus the yield
// state that produced it, so a restart can resume with real yields instead
// of the assumed constant.
type Snapshot struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Report    *analytics.Report    `json:"report"`
	Yields    analytics.YieldState `json:"-"`
}

// persistedSnapshot is the msgpack payload stored per snapshot row.
type persistedSnapshot struct {
	Report *analytics.Report    `msgpack:"report"`
	Yields analytics.YieldState `msgpack:"yields"`
}

// SnapshotRepository persists built snapshots in sqlite, msgpack-encoded.
type SnapshotRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Save stores one snapshot.
func (r *SnapshotRepository) Save(snap *Snapshot) error {
	payload, err := msgpack.Marshal(persistedSnapshot{
		Report: snap.Report,
		Yields: snap.Yields,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO report_snapshots (id, created_at, payload) VALUES (?, ?, ?)",
		snap.ID, snap.CreatedAt.UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	r.log.Debug().Str("id", snap.ID).Int("bytes", len(payload)).Msg("Snapshot stored")
	return nil
}

// Latest returns the most recent snapshot, or (nil, nil) when none exists.
func (r *SnapshotRepository) Latest() (*Snapshot, error) {
	var (
		id        string
		createdAt int64
		payload   []byte
	)
	err := r.db.QueryRow(
		"SELECT id, created_at, payload FROM report_snapshots ORDER BY created_at DESC LIMIT 1",
	).Scan(&id, &createdAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	var stored persistedSnapshot
	if err := msgpack.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}

	return &Snapshot{
		ID:        id,
		CreatedAt: time.Unix(0, createdAt),
		Report:    stored.Report,
		Yields:    stored.Yields,
	}, nil
}

// Prune deletes all but the newest keep snapshots.
func (r *SnapshotRepository) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := r.db.Exec(`
		DELETE FROM report_snapshots WHERE id NOT IN (
			SELECT id FROM report_snapshots ORDER BY created_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}
