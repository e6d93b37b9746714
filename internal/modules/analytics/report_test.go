package analytics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljtan/propertypulse/internal/modules/ingest"
)

var reportNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

// Three D9 transactions in 2024 with psf 2000/2200/2400 and no rental data:
// the district card must carry exact count/avg and the fallback yield.
func TestBuildReport_DistrictScenario(t *testing.T) {
	agg := testAggregator()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, psf := range []float64{2000, 2200, 2400} {
		agg.Add(tx("THE AVENIR", "D9", "CCR", psf, date))
	}

	report, state := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	d9, ok := report.ByDistrict["D9"]
	require.True(t, ok, "expected a D9 district entry")
	assert.Equal(t, 3, d9.Count)
	assert.InDelta(t, 2200, d9.AvgPSF, 1e-9)
	assert.Equal(t, "CCR", d9.Segment)

	// No rental data and no prior state: yields come from the 0.028
	// fallback everywhere.
	assert.InDelta(t, 2.8, d9.YieldPct, 1e-9)
	for _, seg := range []string{"CCR", "RCR", "OCR"} {
		assert.InDelta(t, 2.8, report.YieldBySegment[seg], 1e-9)
	}
	assert.True(t, state.Empty(), "no rentals must not invent yield state")

	assert.Equal(t, 3, report.TotalTx)
	assert.InDelta(t, 2200, report.AvgPSF, 1e-9)
	assert.InDelta(t, 2200, report.MedPSF, 1e-9)
	assert.False(t, report.RentalsAvailable)
	assert.Nil(t, report.RentWindow)
}

func TestBuildReport_Idempotent(t *testing.T) {
	agg := testAggregator()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 300; i++ {
		date := time.Date(2020+rng.Intn(5), time.Month(1+rng.Intn(12)), 1, 0, 0, 0, 0, time.UTC)
		psf := 1200 + float64(rng.Intn(2000))
		agg.Add(tx("P", "D15", "RCR", psf, date))
	}

	first, stateA := BuildReport(BuildInput{Sales: agg, Now: reportNow})
	second, stateB := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	require.Equal(t, first, second, "same populated aggregator must build identical reports")
	require.Equal(t, stateA, stateB)
}

func TestBuildReport_DistrictCAGR(t *testing.T) {
	agg := testAggregator()
	start := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		agg.Add(tx("OLD TOWER", "D10", "CCR", 1000, start))
		agg.Add(tx("OLD TOWER", "D10", "CCR", 1610.51, end))
	}

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	d10 := report.ByDistrict["D10"]
	require.NotNil(t, d10.CAGRPct, "expected a CAGR with both endpoint years present")
	assert.InDelta(t, 10.0, *d10.CAGRPct, 0.1)
	assert.False(t, d10.LowConf, "3 transactions per endpoint meet the district threshold")

	require.NotNil(t, d10.TotalReturnPct)
	assert.InDelta(t, *d10.CAGRPct+2.8, *d10.TotalReturnPct, 1e-9)

	// Project endpoints hold 3 transactions each: above the project
	// threshold of 2 as well.
	p := report.Projects["OLD TOWER"]
	require.NotNil(t, p.CAGRPct)
	assert.InDelta(t, 10.0, *p.CAGRPct, 0.1)
	assert.False(t, p.LowConf)
}

func TestBuildReport_CAGRLowConfidenceAndMissing(t *testing.T) {
	agg := testAggregator()
	start := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// D11: thin endpoints (2 and 2) -> low confidence at district level
	for i := 0; i < 2; i++ {
		agg.Add(tx("THIN", "D11", "RCR", 1500, start))
		agg.Add(tx("THIN", "D11", "RCR", 1800, end))
	}
	// D12: only one endpoint year -> no CAGR at all
	agg.Add(tx("NEWLAUNCH", "D12", "OCR", 1400, end))

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	d11 := report.ByDistrict["D11"]
	require.NotNil(t, d11.CAGRPct)
	assert.True(t, d11.LowConf, "2-transaction endpoints are below the district threshold of 3")

	p := report.Projects["THIN"]
	require.NotNil(t, p.CAGRPct)
	assert.False(t, p.LowConf, "2-transaction endpoints meet the project threshold of 2")

	d12 := report.ByDistrict["D12"]
	assert.Nil(t, d12.CAGRPct)
	assert.Nil(t, d12.TotalReturnPct)
}

func TestBuildReport_RentalsDriveYieldAndPersistState(t *testing.T) {
	agg := testAggregator()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		agg.Add(tx("CITY PROJECT", "D1", "CCR", 3000, date))
	}

	rentals := NewSeededRentalAggregator(rand.New(rand.NewSource(2)))
	for i := 0; i < 25; i++ {
		rentals.Add(ingest.RentalRecord{
			Project: "CITY PROJECT", District: "D1", Segment: "CCR",
			Area: 1000, Rent: 5000, RentPSF: 5.0, Quarter: "2024Q2",
		})
	}

	report, state := BuildReport(BuildInput{Sales: agg, Rentals: rentals, Now: reportNow})

	// CCR yield = 5*12/3000 = 2% exactly
	assert.InDelta(t, 2.0, report.YieldBySegment["CCR"], 1e-9)
	require.False(t, state.Empty())
	assert.InDelta(t, 0.02, state.BySegment["CCR"], 1e-9)

	require.NotNil(t, report.RentWindow)
	assert.Equal(t, Window3M, report.RentWindow.Window)
	assert.Equal(t, 25, report.RentWindow.Count)
	assert.InDelta(t, 5000, report.RentWindow.AvgRent, 1e-9)
	assert.True(t, report.RentalsAvailable)

	// A later sales-only build must reuse the persisted state instead of
	// the 0.028 constant.
	later, nextState := BuildReport(BuildInput{Sales: agg, Yields: state, Now: reportNow})
	assert.InDelta(t, 2.0, later.YieldBySegment["CCR"], 1e-9)
	require.Equal(t, state, nextState)
}

func TestBuildReport_WindowSelection(t *testing.T) {
	agg := testAggregator()

	// 25 records within 3 months, 15 more within 6 months
	recent := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		agg.Add(tx("A", "D2", "CCR", 2000, recent))
	}
	for i := 0; i < 15; i++ {
		agg.Add(tx("A", "D2", "CCR", 3000, older))
	}

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	assert.Equal(t, Window3M, report.SaleWindow.Window)
	assert.Equal(t, 25, report.SaleWindow.Count)
	assert.InDelta(t, 2000, report.SaleWindow.AvgPSF, 1e-9)
}

func TestBuildReport_TrendAndRankings(t *testing.T) {
	agg := testAggregator()
	for q := 0; q < 6; q++ {
		date := time.Date(2023, time.Month(1+q*2), 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i <= q; i++ {
			agg.Add(tx("HOT", "D3", "RCR", 2000+float64(q)*100, date))
		}
	}
	agg.Add(tx("COLD", "D4", "OCR", 1500, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	require.NotEmpty(t, report.TrendByYear)
	assert.Equal(t, 2023, report.TrendByYear[0].Year)

	require.True(t, len(report.TrendByQuarter) >= 4)
	for i, qt := range report.TrendByQuarter {
		if i < smaQuarters-1 {
			assert.Zero(t, qt.SMAPSF, "quarter %d should have no SMA yet", i)
		} else {
			assert.NotZero(t, qt.SMAPSF, "quarter %d should carry an SMA", i)
		}
	}

	require.NotEmpty(t, report.MostTraded)
	assert.Equal(t, "HOT", report.MostTraded[0].Project)

	// Newest first in the bounded transactions view
	require.NotEmpty(t, report.TopTransactions)
	first := report.TopTransactions[0]
	last := report.TopTransactions[len(report.TopTransactions)-1]
	assert.True(t, first.Month >= last.Month)
}

func TestBuildReport_HistogramAndScatter(t *testing.T) {
	agg := testAggregator()
	date := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, psf := range []float64{1000, 1100, 1300, 2600} {
		agg.Add(tx("H", "D5", "OCR", psf, date))
	}

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	require.NotEmpty(t, report.Histogram)
	assert.InDelta(t, 1000, report.Histogram[0].Lo, 1e-9)
	total := 0
	for _, bin := range report.Histogram {
		total += bin.Count
	}
	assert.Equal(t, 4, total)
	// 1000 and 1100 share the first 250-wide bin
	assert.Equal(t, 2, report.Histogram[0].Count)

	assert.Len(t, report.Scatter, 4)
}

func TestBuildReport_EmptyAggregatorDegrades(t *testing.T) {
	agg := testAggregator()

	report, state := BuildReport(BuildInput{Sales: agg, Now: reportNow})

	assert.Equal(t, 0, report.TotalTx)
	assert.Zero(t, report.AvgPSF)
	assert.Zero(t, report.MedPSF)
	assert.Zero(t, report.YoYPct)
	assert.Empty(t, report.Histogram)
	assert.Empty(t, report.ByDistrict)
	assert.Equal(t, WindowAll, report.SaleWindow.Window)
	assert.True(t, state.Empty())

	if math.IsNaN(report.AvgPSF) {
		t.Error("empty aggregate must not produce NaN")
	}
}

func TestBuildReport_YoY(t *testing.T) {
	agg := testAggregator()
	for i := 0; i < 5; i++ {
		agg.Add(tx("Y", "D6", "CCR", 2000, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)))
		agg.Add(tx("Y", "D6", "CCR", 2200, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	}

	report, _ := BuildReport(BuildInput{Sales: agg, Now: reportNow})
	assert.InDelta(t, 10.0, report.YoYPct, 1e-9)
}
