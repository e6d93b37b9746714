package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/ljtan/propertypulse/internal/modules/ingest"
	"github.com/ljtan/propertypulse/pkg/formulas"
)

const (
	// DefaultCAGRYears is the growth window used when the caller does not
	// configure one.
	DefaultCAGRYears = 5

	histogramBinWidth = 250.0
	rankingSize       = 10
	smaQuarters       = 4

	// Endpoint-count thresholds below which a CAGR is flagged low
	// confidence.
	cagrDistrictMinTx = 3
	cagrProjectMinTx  = 2
)

// BuildInput bundles everything BuildReport reads. Yields is the imputed
// yield state from the previous build (zero value when none exists); the
// updated state comes back as the second return value, keeping the
// cross-build coupling explicit instead of hiding it in globals.
type BuildInput struct {
	Sales     *Aggregator
	Rentals   *RentalAggregator // optional
	Yields    YieldState
	Now       time.Time // zero = wall clock
	CAGRYears int       // zero = DefaultCAGRYears
}

// BuildReport derives the complete dashboard payload from a fully-populated
// aggregator pair. It is a pure computation: calling it twice on the same
// inputs yields identical output, and it never mutates the aggregators.
// Thin slices degrade to zeros/nils per field, never to errors.
func BuildReport(in BuildInput) (*Report, YieldState) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cagrYears := in.CAGRYears
	if cagrYears <= 0 {
		cagrYears = DefaultCAGRYears
	}
	agg := in.Sales

	saleKind, saleWin := selectWindow(agg.Sales,
		func(r ingest.TransactionRecord) time.Time { return r.Date }, now)

	hasRentals := in.Rentals != nil && in.Rentals.Total > 0
	var rentWin []ingest.RentalRecord
	var rentKind WindowKind
	if hasRentals {
		rentKind, rentWin = selectWindow(in.Rentals.Rentals,
			func(r ingest.RentalRecord) time.Time { return quarterAnchor(r.Quarter) }, now)
	}

	yields := computeYieldState(saleWin, rentWin, in.Yields)

	globalPSF := agg.Global.Values()

	r := &Report{
		GeneratedAt:      now,
		TotalTx:          agg.Total,
		TotalVolume:      agg.Volume,
		AvgPSF:           formulas.Round2(agg.AvgPSF()),
		MedPSF:           formulas.Round2(formulas.Median(globalPSF)),
		PSFP25:           formulas.Round2(formulas.Percentile(globalPSF, 0.25)),
		PSFP75:           formulas.Round2(formulas.Percentile(globalPSF, 0.75)),
		YoYPct:           yoyPct(agg, now),
		SaleWindow:       saleWindowStat(saleKind, saleWin),
		TrendByYear:      yearTrend(agg),
		TrendByQuarter:   quarterTrend(agg),
		BySegment:        segmentStats(agg, yields),
		ByDistrict:       districtStats(agg, in.Rentals, yields, cagrYears),
		ByPropertyType:   propertyTypeStats(agg),
		ByTenure:         tenureStats(agg),
		ByFloorBand:      floorBandStats(agg.ByFloorBand),
		Histogram:        histogram(globalPSF),
		Scatter:          append([]ScatterPoint(nil), agg.Scatter.Values()...),
		YieldBySegment:   yieldPctMap(yields),
		MostTraded:       mostTraded(agg),
		TopTransactions:  transactionViews(agg),
		Projects:         projectSummaries(agg, yields, cagrYears),
		RentalsAvailable: hasRentals,
		SkippedRecords:   agg.Skipped(),
	}

	if hasRentals {
		r.RentWindow = rentWindowStat(rentKind, rentWin)
	}
	r.TopDistrictsByYield = topDistrictsByYield(r.ByDistrict)

	return r, yields
}

// quarterAnchor maps a quarter label ("2024Q2") onto the first day of the
// quarter's final month, so quarter-level rentals participate in trailing
// month windows at the recent end of their quarter.
func quarterAnchor(quarter string) time.Time {
	if len(quarter) != 6 {
		return time.Time{}
	}
	year, err1 := strconv.Atoi(quarter[:4])
	q, err2 := strconv.Atoi(quarter[5:])
	if err1 != nil || err2 != nil || q < 1 || q > 4 {
		return time.Time{}
	}
	return time.Date(year, time.Month(q*3), 1, 0, 0, 0, 0, time.UTC)
}

func saleWindowStat(kind WindowKind, win []ingest.TransactionRecord) SaleWindowStat {
	st := SaleWindowStat{Window: kind, Count: len(win)}
	if len(win) == 0 {
		return st
	}
	psf := make([]float64, len(win))
	for i, rec := range win {
		psf[i] = rec.PSF
		st.Volume += rec.Price
	}
	st.AvgPSF = formulas.Round2(formulas.Mean(psf))
	st.MedPSF = formulas.Round2(formulas.Median(psf))
	return st
}

func rentWindowStat(kind WindowKind, win []ingest.RentalRecord) *RentWindowStat {
	st := &RentWindowStat{Window: kind, Count: len(win)}
	if len(win) == 0 {
		return st
	}
	rents := make([]float64, len(win))
	var psfSum float64
	for i, rec := range win {
		rents[i] = rec.Rent
		psfSum += rec.RentPSF
	}
	st.AvgRent = formulas.Round2(formulas.Mean(rents))
	st.MedRent = formulas.Round2(formulas.Median(rents))
	st.AvgRentPSF = formulas.Round2(psfSum / float64(len(win)))
	return st
}

// yoyPct compares the current year's average psf with the prior year's,
// falling back to the latest pair of adjacent years with data. 0 when no
// such pair exists.
func yoyPct(agg *Aggregator, now time.Time) float64 {
	year := now.Year()
	cur, prev := agg.ByYear[year], agg.ByYear[year-1]
	if cur == nil || prev == nil {
		latest := 0
		for y := range agg.ByYear {
			if y > latest && agg.ByYear[y-1] != nil {
				latest = y
			}
		}
		if latest == 0 {
			return 0
		}
		cur, prev = agg.ByYear[latest], agg.ByYear[latest-1]
	}
	return formulas.Round1(formulas.PctChange(prev.Avg(), cur.Avg()))
}

func yearTrend(agg *Aggregator) []YearTrend {
	years := make([]int, 0, len(agg.ByYear))
	for y := range agg.ByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearTrend, 0, len(years))
	for _, y := range years {
		b := agg.ByYear[y]
		sample := b.Sample.Values()
		out = append(out, YearTrend{
			Year:   y,
			Count:  b.Count,
			AvgPSF: formulas.Round2(b.Avg()),
			MedPSF: formulas.Round2(formulas.Median(sample)),
			PSFP25: formulas.Round2(formulas.Percentile(sample, 0.25)),
			PSFP75: formulas.Round2(formulas.Percentile(sample, 0.75)),
			Volume: b.Volume,
		})
	}
	return out
}

func quarterTrend(agg *Aggregator) []QuarterTrend {
	quarters := make([]string, 0, len(agg.ByQuarter))
	for q := range agg.ByQuarter {
		quarters = append(quarters, q)
	}
	sort.Strings(quarters) // "2023Q4" < "2024Q1" lexicographically

	out := make([]QuarterTrend, 0, len(quarters))
	avgSeries := make([]float64, 0, len(quarters))
	for _, q := range quarters {
		b := agg.ByQuarter[q]
		seg := make(map[string]SubStat, len(b.BySegment))
		for name, sb := range b.BySegment {
			seg[name] = SubStat{Count: sb.Count, AvgPSF: formulas.Round2(sb.Avg())}
		}
		out = append(out, QuarterTrend{
			Quarter:   q,
			Count:     b.Count,
			AvgPSF:    formulas.Round2(b.Avg()),
			Volume:    b.Volume,
			BySegment: seg,
		})
		avgSeries = append(avgSeries, b.Avg())
	}

	if len(avgSeries) >= smaQuarters {
		sma := talib.Sma(avgSeries, smaQuarters)
		for i := smaQuarters - 1; i < len(out); i++ {
			out[i].SMAPSF = formulas.Round2(sma[i])
		}
	}
	return out
}

func segmentStats(agg *Aggregator, yields YieldState) map[string]SegmentStat {
	out := make(map[string]SegmentStat, len(agg.BySegment))
	for seg, b := range agg.BySegment {
		out[seg] = SegmentStat{
			Count:    b.Count,
			AvgPSF:   formulas.Round2(b.Avg()),
			Volume:   b.Volume,
			YieldPct: formulas.Round2(yields.For(seg) * 100),
		}
	}
	return out
}

func districtStats(agg *Aggregator, rentals *RentalAggregator, yields YieldState, cagrYears int) map[string]DistrictStat {
	out := make(map[string]DistrictStat, len(agg.ByDistrict))
	for district, db := range agg.ByDistrict {
		segment := db.Segments.Dominant()

		// Prefer a district-level yield when the rental side actually
		// covers this district; otherwise use the segment-level estimate.
		yieldPct := yields.For(segment) * 100
		if rentals != nil {
			if rb := rentals.ByDistrict[district]; rb != nil && rb.Count > 0 && db.Avg() > 0 {
				yieldPct = rb.AvgRentPSF() * 12 / db.Avg() * 100
			}
		}
		yieldPct = formulas.Round2(yieldPct)

		cagrPct, totalPct, lowConf := growthOverYears(db.ByYear, cagrYears, cagrDistrictMinTx, yieldPct)

		out[district] = DistrictStat{
			Count:          db.Count,
			AvgPSF:         formulas.Round2(db.Avg()),
			Volume:         db.Volume,
			Segment:        segment,
			YieldPct:       yieldPct,
			CAGRPct:        cagrPct,
			TotalReturnPct: totalPct,
			LowConf:        lowConf,
			ByYear:         yearSlices(db.ByYear),
		}
	}
	return out
}

// growthOverYears computes CAGR between the newest year bucket and the one
// cagrYears earlier. Missing endpoints return nils; endpoints thinner than
// minTx flag the result low confidence. Total return = CAGR% + yield%.
func growthOverYears(byYear map[int]*Bucket, cagrYears, minTx int, yieldPct float64) (cagrPct, totalPct *float64, lowConf bool) {
	endYear := 0
	for y := range byYear {
		if y > endYear {
			endYear = y
		}
	}
	if endYear == 0 {
		return nil, nil, false
	}
	end := byYear[endYear]
	start := byYear[endYear-cagrYears]
	if start == nil {
		return nil, nil, false
	}

	cagr := formulas.CAGR(start.Avg(), end.Avg(), cagrYears)
	if cagr == nil {
		return nil, nil, false
	}
	lowConf = start.Count < minTx || end.Count < minTx

	cp := formulas.Round2(*cagr * 100)
	tp := formulas.Round2(cp + yieldPct)
	return &cp, &tp, lowConf
}

func yearSlices(byYear map[int]*Bucket) []YearSlice {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearSlice, 0, len(years))
	for _, y := range years {
		b := byYear[y]
		out = append(out, YearSlice{Year: y, Count: b.Count, AvgPSF: formulas.Round2(b.Avg())})
	}
	return out
}

func propertyTypeStats(agg *Aggregator) map[string]PropertyTypeStat {
	out := make(map[string]PropertyTypeStat, len(agg.ByPropertyType))
	for name, tb := range agg.ByPropertyType {
		seg := make(map[string]SubStat, len(tb.BySegment))
		for s, sb := range tb.BySegment {
			seg[s] = SubStat{Count: sb.Count, AvgPSF: formulas.Round2(sb.Avg())}
		}
		out[name] = PropertyTypeStat{
			Count:     tb.Count,
			AvgPSF:    formulas.Round2(tb.Avg()),
			Volume:    tb.Volume,
			BySegment: seg,
		}
	}
	return out
}

func tenureStats(agg *Aggregator) map[string]TenureStat {
	out := make(map[string]TenureStat, len(agg.ByTenure))
	for name, nb := range agg.ByTenure {
		out[name] = TenureStat{
			Count:  nb.Count,
			AvgPSF: formulas.Round2(nb.Avg()),
			Volume: nb.Volume,
			ByYear: yearSlices(nb.ByYear),
		}
	}
	return out
}

func floorBandStats(byBand map[string]*Bucket) []FloorBandStat {
	bands := make([]string, 0, len(byBand))
	for band := range byBand {
		bands = append(bands, band)
	}
	sort.Strings(bands)

	out := make([]FloorBandStat, 0, len(bands))
	for _, band := range bands {
		b := byBand[band]
		out = append(out, FloorBandStat{Band: band, Count: b.Count, AvgPSF: formulas.Round2(b.Avg())})
	}
	return out
}

func histogram(psf []float64) []HistogramBin {
	if len(psf) == 0 {
		return nil
	}
	counts := make(map[int]int)
	minIdx, maxIdx := int(psf[0]/histogramBinWidth), int(psf[0]/histogramBinWidth)
	for _, v := range psf {
		idx := int(v / histogramBinWidth)
		counts[idx]++
		if idx < minIdx {
			minIdx = idx
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	out := make([]HistogramBin, 0, maxIdx-minIdx+1)
	for idx := minIdx; idx <= maxIdx; idx++ {
		out = append(out, HistogramBin{
			Lo:    float64(idx) * histogramBinWidth,
			Hi:    float64(idx+1) * histogramBinWidth,
			Count: counts[idx],
		})
	}
	return out
}

func yieldPctMap(yields YieldState) map[string]float64 {
	out := make(map[string]float64, len(segments))
	for _, seg := range segments {
		out[seg] = formulas.Round2(yields.For(seg) * 100)
	}
	return out
}

func mostTraded(agg *Aggregator) []ProjectRank {
	ranks := make([]ProjectRank, 0, len(agg.ByProject))
	for name, pb := range agg.ByProject {
		ranks = append(ranks, ProjectRank{
			Project:  name,
			District: pb.District,
			Count:    pb.Count,
			AvgPSF:   formulas.Round2(pb.Avg()),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Count != ranks[j].Count {
			return ranks[i].Count > ranks[j].Count
		}
		return ranks[i].Project < ranks[j].Project
	})
	if len(ranks) > rankingSize {
		ranks = ranks[:rankingSize]
	}
	return ranks
}

func topDistrictsByYield(byDistrict map[string]DistrictStat) []DistrictYieldRank {
	ranks := make([]DistrictYieldRank, 0, len(byDistrict))
	for district, st := range byDistrict {
		if st.Count == 0 {
			continue
		}
		ranks = append(ranks, DistrictYieldRank{
			District: district,
			YieldPct: st.YieldPct,
			Count:    st.Count,
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].YieldPct != ranks[j].YieldPct {
			return ranks[i].YieldPct > ranks[j].YieldPct
		}
		if ranks[i].Count != ranks[j].Count {
			return ranks[i].Count > ranks[j].Count
		}
		return ranks[i].District < ranks[j].District
	})
	if len(ranks) > rankingSize {
		ranks = ranks[:rankingSize]
	}
	return ranks
}

func transactionViews(agg *Aggregator) []TransactionView {
	recent := agg.Recent.Result()
	out := make([]TransactionView, 0, len(recent))
	for _, rec := range recent {
		out = append(out, TransactionView{
			Project:      rec.Project,
			District:     rec.District,
			Segment:      rec.Segment,
			PropertyType: rec.PropertyType,
			Tenure:       rec.Tenure,
			SaleType:     rec.SaleType,
			FloorBand:    rec.FloorBand,
			Area:         formulas.Round1(rec.Area),
			Price:        rec.Price,
			PSF:          formulas.Round2(rec.PSF),
			Month:        fmt.Sprintf("%d-%02d", rec.Year, rec.Month),
		})
	}
	return out
}

func projectSummaries(agg *Aggregator, yields YieldState, cagrYears int) map[string]*ProjectSummary {
	out := make(map[string]*ProjectSummary, len(agg.ByProject))
	for name, pb := range agg.ByProject {
		segment := pb.Segments.Dominant()
		yieldPct := formulas.Round2(yields.For(segment) * 100)
		cagrPct, totalPct, lowConf := growthOverYears(pb.ByYear, cagrYears, cagrProjectMinTx, yieldPct)

		out[name] = &ProjectSummary{
			Project:        name,
			Street:         pb.Street,
			District:       pb.District,
			Segment:        segment,
			PropertyType:   pb.Types.Dominant(),
			Tenure:         pb.Tenures.Dominant(),
			Count:          pb.Count,
			AvgPSF:         formulas.Round2(pb.Avg()),
			Volume:         pb.Volume,
			MedArea:        formulas.Round1(formulas.Median(pb.Areas.Values())),
			MedPrice:       formulas.Round1(formulas.Median(pb.Prices.Values())),
			LatestMonth:    pb.LatestMonth,
			YieldPct:       yieldPct,
			CAGRPct:        cagrPct,
			TotalReturnPct: totalPct,
			LowConf:        lowConf,
			ByYear:         yearSlices(pb.ByYear),
			ByFloorBand:    floorBandStats(pb.ByFloorBand),
		}
	}
	return out
}
