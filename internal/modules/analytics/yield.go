package analytics

import (
	"github.com/ljtan/propertypulse/internal/modules/ingest"
)

// DefaultGrossYield is the assumed gross yield used when no rental coverage
// has ever been seen. Roughly the long-run private residential average.
const DefaultGrossYield = 0.028

// segments is the fixed evaluation order for yield imputation.
var segments = []string{ingest.SegmentCCR, ingest.SegmentRCR, ingest.SegmentOCR}

// YieldState carries the imputed per-segment gross yields across report
// builds. It is threaded through BuildReport explicitly (input and output)
// instead of living in package globals, so a refresh that updates only the
// sales side still prices in the last known rental picture.
type YieldState struct {
	BySegment map[string]float64 `json:"by_segment" msgpack:"by_segment"`
}

// For returns the yield for a segment, falling back to DefaultGrossYield
// when the segment (or the whole state) has no history.
func (s YieldState) For(segment string) float64 {
	if y, ok := s.BySegment[segment]; ok && y > 0 {
		return y
	}
	return DefaultGrossYield
}

// Empty reports whether the state carries no history at all.
func (s YieldState) Empty() bool {
	return len(s.BySegment) == 0
}

// segmentWindowStat is one segment's share of a selected stat window.
type segmentWindowStat struct {
	sumPSF float64
	count  int
}

func (s segmentWindowStat) avgPSF() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sumPSF / float64(s.count)
}

// computeYieldState derives per-segment gross yields from the selected sale
// and rental windows:
//
//	yield = (avg rent psf in window * 12) / (avg sale psf in window)
//
// Segments without rental coverage get the count-weighted average of the
// covered segments. With no usable rental data at all the previous state is
// returned unchanged, so stale-but-real yields survive sales-only refreshes.
func computeYieldState(saleWin []ingest.TransactionRecord, rentWin []ingest.RentalRecord, prev YieldState) YieldState {
	saleStats := make(map[string]*segmentWindowStat)
	for _, rec := range saleWin {
		st := saleStats[rec.Segment]
		if st == nil {
			st = &segmentWindowStat{}
			saleStats[rec.Segment] = st
		}
		st.sumPSF += rec.PSF
		st.count++
	}

	rentStats := make(map[string]*segmentWindowStat)
	for _, rec := range rentWin {
		st := rentStats[rec.Segment]
		if st == nil {
			st = &segmentWindowStat{}
			rentStats[rec.Segment] = st
		}
		st.sumPSF += rec.RentPSF
		st.count++
	}

	yields := make(map[string]float64)
	for _, seg := range segments {
		rent, sale := rentStats[seg], saleStats[seg]
		if rent == nil || sale == nil || rent.count == 0 || sale.avgPSF() <= 0 {
			continue
		}
		yields[seg] = rent.avgPSF() * 12 / sale.avgPSF()
	}

	if len(yields) == 0 {
		return prev
	}

	// Weighted fallback for uncovered segments, weights = sale counts of
	// the covered segments.
	var weightedSum, weight float64
	for _, seg := range segments {
		y, ok := yields[seg]
		if !ok {
			continue
		}
		n := float64(1)
		if st := saleStats[seg]; st != nil {
			n = float64(st.count)
		}
		weightedSum += y * n
		weight += n
	}
	fallback := weightedSum / weight

	out := YieldState{BySegment: make(map[string]float64, len(segments))}
	for _, seg := range segments {
		if y, ok := yields[seg]; ok {
			out.BySegment[seg] = y
		} else {
			out.BySegment[seg] = fallback
		}
	}
	return out
}
