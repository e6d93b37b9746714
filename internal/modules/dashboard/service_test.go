package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljtan/propertypulse/internal/database"
	"github.com/ljtan/propertypulse/internal/modules/ingest"
)

// fakeFetcher serves canned batch payloads and can fail selected batches.
type fakeFetcher struct {
	batches     map[int][]ingest.RawProject
	failBatches map[int]bool
	rentals     map[string][]ingest.RawRentalProject

	txCalls     int
	rentalCalls int
}

func (f *fakeFetcher) FetchTransactionBatch(_ context.Context, batch int) ([]ingest.RawProject, error) {
	f.txCalls++
	if f.failBatches[batch] {
		return nil, errors.New("upstream unavailable")
	}
	return f.batches[batch], nil
}

func (f *fakeFetcher) FetchRentals(_ context.Context, refPeriod string) ([]ingest.RawRentalProject, error) {
	f.rentalCalls++
	return f.rentals[refPeriod], nil
}

func rawProject(name, district string, prices ...string) ingest.RawProject {
	p := ingest.RawProject{
		Project:       name,
		Street:        "TEST STREET",
		MarketSegment: ingest.SegmentCCR,
	}
	for _, price := range prices {
		p.Transactions = append(p.Transactions, ingest.RawTransaction{
			ContractDate: "0324",
			Area:         "100", // 1076.39 sqft
			Price:        price,
			FloorRange:   "06-10",
			PropertyType: "Condominium",
			District:     district,
			Tenure:       "Freehold",
			TypeOfSale:   "3",
		})
	}
	return p
}

func newTestService(t *testing.T, fetcher Fetcher) (*Service, *database.DB) {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	svc := NewService(Config{
		Log:       zerolog.Nop(),
		Fetcher:   fetcher,
		Snapshots: NewSnapshotRepository(db, zerolog.Nop()),
	})
	return svc, db
}

func TestService_NilBeforeFirstRefresh(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{})
	assert.Nil(t, svc.Current())
}

func TestService_RefreshPublishesSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{
		batches: map[int][]ingest.RawProject{
			1: {rawProject("THE AVENIR", "09", "3000000", "3100000")},
			2: {rawProject("PARC ESTA", "14", "1500000")},
		},
	}
	svc, _ := newTestService(t, fetcher)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 3, snap.Report.TotalTx)
	assert.Equal(t, 4, fetcher.txCalls, "every batch is attempted")
	assert.Same(t, snap, svc.Current())
}

func TestService_RefreshSwapsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{
		batches: map[int][]ingest.RawProject{
			1: {rawProject("THE AVENIR", "09", "3000000")},
		},
	}
	svc, _ := newTestService(t, fetcher)

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.batches[2] = []ingest.RawProject{rawProject("PARC ESTA", "14", "1500000")}
	second, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, first.Report.TotalTx)
	assert.Equal(t, 2, second.Report.TotalTx)
	assert.Same(t, second, svc.Current())
}

func TestService_PartialBatchFailureTolerated(t *testing.T) {
	fetcher := &fakeFetcher{
		batches: map[int][]ingest.RawProject{
			1: {rawProject("THE AVENIR", "09", "3000000")},
		},
		failBatches: map[int]bool{2: true, 3: true},
	}
	svc, _ := newTestService(t, fetcher)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Report.TotalTx)
}

func TestService_AllBatchesFailingAborts(t *testing.T) {
	fetcher := &fakeFetcher{
		failBatches: map[int]bool{1: true, 2: true, 3: true, 4: true},
	}
	svc, _ := newTestService(t, fetcher)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, svc.Current(), "a failed refresh publishes nothing")
}

func TestService_RentalsFeedYieldState(t *testing.T) {
	rentals := make(map[string][]ingest.RawRentalProject)
	// One rental project answered for whichever recent periods are asked.
	for q := 1; q <= 4; q++ {
		for y := 20; y <= 30; y++ {
			rentals[fmt.Sprintf("%dq%d", y, q)] = []ingest.RawRentalProject{{
				Project:       "THE AVENIR",
				District:      "09",
				MarketSegment: ingest.SegmentCCR,
				Rentals: []ingest.RawRental{{
					RefPeriod: fmt.Sprintf("%dq%d", y, q),
					Bedrooms:  "2",
					AreaSqm:   "93", // ~1001 sqft
					Rent:      "5000",
				}},
			}}
		}
	}
	fetcher := &fakeFetcher{
		batches: map[int][]ingest.RawProject{
			1: {rawProject("THE AVENIR", "09", "3000000")},
		},
		rentals: rentals,
	}
	svc, _ := newTestService(t, fetcher)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Report.RentalsAvailable)
	assert.False(t, snap.Yields.Empty())
	assert.Equal(t, 4, fetcher.rentalCalls)
}

func TestService_RestoreRoundTrip(t *testing.T) {
	fetcher := &fakeFetcher{
		batches: map[int][]ingest.RawProject{
			1: {rawProject("THE AVENIR", "09", "3000000")},
		},
	}
	svc, db := newTestService(t, fetcher)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	// Fresh service against the same database, as after a restart.
	restored := NewService(Config{
		Log:       zerolog.Nop(),
		Fetcher:   fetcher,
		Snapshots: NewSnapshotRepository(db, zerolog.Nop()),
	})
	require.Nil(t, restored.Current())
	require.NoError(t, restored.Restore())

	cur := restored.Current()
	require.NotNil(t, cur)
	assert.Equal(t, snap.ID, cur.ID)
	assert.Equal(t, snap.Report.TotalTx, cur.Report.TotalTx)
}

func TestService_RestoreWithEmptyStore(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{})
	require.NoError(t, svc.Restore())
	assert.Nil(t, svc.Current())
}
