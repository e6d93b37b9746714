package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ljtan/propertypulse/internal/modules/dashboard"
)

// refreshTimeout bounds one full fetch-and-rebuild cycle.
const refreshTimeout = 10 * time.Minute

// RefreshJob rebuilds the dashboard snapshot on schedule.
type RefreshJob struct {
	service *dashboard.Service
	log     zerolog.Logger
}

// NewRefreshJob creates the scheduled dashboard refresh job.
func NewRefreshJob(service *dashboard.Service, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		service: service,
		log:     log.With().Str("job", "dashboard_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "dashboard_refresh"
}

// Run performs one full refresh cycle.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	snap, err := j.service.Refresh(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("snapshot", snap.ID).
		Int("total_tx", snap.Report.TotalTx).
		Msg("Scheduled refresh completed")
	return nil
}
