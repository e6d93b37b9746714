package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljtan/propertypulse/internal/database"
	"github.com/ljtan/propertypulse/internal/modules/analytics"
)

func newTestRepo(t *testing.T) *SnapshotRepository {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewSnapshotRepository(db, zerolog.Nop())
}

func TestSnapshotRepository_EmptyStore(t *testing.T) {
	repo := newTestRepo(t)
	snap, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotRepository_SaveAndLatest(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := repo.Save(&Snapshot{
			ID:        fmt.Sprintf("snap-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Report: &analytics.Report{
				GeneratedAt: base.Add(time.Duration(i) * time.Hour),
				TotalTx:     100 + i,
				AvgPSF:      2200.5,
			},
			Yields: analytics.YieldState{
				BySegment: map[string]float64{"CCR": 0.02 + float64(i)*0.001},
			},
		})
		require.NoError(t, err)
	}

	snap, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "snap-2", snap.ID)
	assert.Equal(t, 102, snap.Report.TotalTx)
	assert.InDelta(t, 2200.5, snap.Report.AvgPSF, 1e-9)
	assert.InDelta(t, 0.022, snap.Yields.BySegment["CCR"], 1e-9)
}

func TestSnapshotRepository_Prune(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(&Snapshot{
			ID:        fmt.Sprintf("snap-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Report:    &analytics.Report{TotalTx: i},
		}))
	}

	require.NoError(t, repo.Prune(2))

	var count int
	err := repo.db.QueryRow("SELECT COUNT(*) FROM report_snapshots").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snap, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, "snap-4", snap.ID, "pruning keeps the newest snapshots")
}
