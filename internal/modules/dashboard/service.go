package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ljtan/propertypulse/internal/clients/ura"
	"github.com/ljtan/propertypulse/internal/modules/analytics"
	"github.com/ljtan/propertypulse/internal/modules/ingest"
)

// defaultRentalQuarters is how many recent reference periods the rental
// side pulls per refresh.
const defaultRentalQuarters = 4

// keepSnapshots is how many historical snapshots survive pruning.
const keepSnapshots = 10

// Fetcher is the slice of the data client the service needs; tests swap in
// a fake.
type Fetcher interface {
	FetchTransactionBatch(ctx context.Context, batch int) ([]ingest.RawProject, error)
	FetchRentals(ctx context.Context, refPeriod string) ([]ingest.RawRentalProject, error)
}

// Config holds dashboard service configuration
type Config struct {
	Log            zerolog.Logger
	Fetcher        Fetcher
	Snapshots      *SnapshotRepository // optional
	CAGRYears      int
	RentalQuarters int
}

// Service owns the dashboard lifecycle with a rebuild-then-swap
// discipline: Refresh builds a complete new aggregator pair off to the
// side and only publishes the finished snapshot with a single atomic
// pointer swap, so readers never observe an aggregator mid-ingestion.
// The yield state is threaded from build to build under the refresh lock.
type Service struct {
	log            zerolog.Logger
	fetcher        Fetcher
	snapshots      *SnapshotRepository
	cagrYears      int
	rentalQuarters int

	current atomic.Pointer[Snapshot]

	mu     sync.Mutex // serializes refreshes; guards yields
	yields analytics.YieldState
}

// NewService creates a new dashboard service
func NewService(cfg Config) *Service {
	quarters := cfg.RentalQuarters
	if quarters <= 0 {
		quarters = defaultRentalQuarters
	}
	return &Service{
		log:            cfg.Log.With().Str("component", "dashboard").Logger(),
		fetcher:        cfg.Fetcher,
		snapshots:      cfg.Snapshots,
		cagrYears:      cfg.CAGRYears,
		rentalQuarters: quarters,
	}
}

// Current returns the latest published snapshot, or nil before the first
// refresh (and before Restore finds anything).
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

// Restore publishes the newest persisted snapshot, if any, so the server
// is warm before its first live refresh.
func (s *Service) Restore() error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Latest()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	s.yields = snap.Yields
	s.mu.Unlock()
	s.current.Store(snap)

	s.log.Info().
		Str("id", snap.ID).
		Time("created_at", snap.CreatedAt).
		Msg("Restored persisted snapshot")
	return nil
}

// Refresh fetches all transaction batches and recent rental periods,
// rebuilds the aggregates from scratch and publishes the new snapshot.
// Batches are independent: a failed batch is logged and skipped, and the
// refresh only fails when no batch produced any data at all.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	agg := analytics.NewAggregator(s.log)

	fetched := 0
	for batch := 1; batch <= ura.NumTransactionBatches; batch++ {
		projects, err := s.fetcher.FetchTransactionBatch(ctx, batch)
		if err != nil {
			s.log.Warn().Err(err).Int("batch", batch).Msg("Transaction batch fetch failed")
			continue
		}
		fetched++
		batchID := fmt.Sprintf("batch-%d", batch)
		for _, p := range projects {
			agg.IngestProject(p, batchID)
		}
	}
	if fetched == 0 {
		return nil, fmt.Errorf("refresh aborted: no transaction batch could be fetched")
	}

	rentals := analytics.NewRentalAggregator()
	for _, refPeriod := range ura.RecentRefPeriods(start.UTC(), s.rentalQuarters) {
		projects, err := s.fetcher.FetchRentals(ctx, refPeriod)
		if err != nil {
			s.log.Warn().Err(err).Str("ref_period", refPeriod).Msg("Rental fetch failed")
			continue
		}
		for _, p := range projects {
			rentals.IngestProject(p)
		}
	}

	var rentalSide *analytics.RentalAggregator
	if rentals.Total > 0 {
		rentalSide = rentals
	}

	report, yields := analytics.BuildReport(analytics.BuildInput{
		Sales:     agg,
		Rentals:   rentalSide,
		Yields:    s.yields,
		CAGRYears: s.cagrYears,
	})
	s.yields = yields

	snap := &Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: report.GeneratedAt,
		Report:    report,
		Yields:    yields,
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(snap); err != nil {
			s.log.Warn().Err(err).Msg("Snapshot persistence failed")
		} else if err := s.snapshots.Prune(keepSnapshots); err != nil {
			s.log.Warn().Err(err).Msg("Snapshot pruning failed")
		}
	}

	// Publish only the completed build
	s.current.Store(snap)

	s.log.Info().
		Int("total_tx", report.TotalTx).
		Int("skipped", report.SkippedRecords).
		Int("batches", fetched).
		Int("rentals", rentals.Total).
		Dur("elapsed", time.Since(start)).
		Msg("Dashboard refreshed")
	return snap, nil
}
