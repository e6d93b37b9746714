package analytics

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/ljtan/propertypulse/internal/modules/ingest"
	"github.com/ljtan/propertypulse/pkg/sampling"
)

// ScatterPoint is one sampled (area, psf) observation for the scatter view.
type ScatterPoint struct {
	Area    float64 `json:"area" msgpack:"area"`
	PSF     float64 `json:"psf" msgpack:"psf"`
	Segment string  `json:"segment" msgpack:"segment"`
}

// Aggregator consumes validated sale transactions exactly once each and
// maintains every dimensional view the report is derived from. It is
// single-threaded by design: a refresh builds a fresh instance, ingests the
// full batch set, and only then publishes it (rebuild-then-swap). It must
// never be mutated after the first BuildReport call against it.
type Aggregator struct {
	Total  int
	Volume float64
	psfSum float64

	Global  *sampling.Reservoir[float64]
	Scatter *sampling.Reservoir[ScatterPoint]

	ByYear         map[int]*YearBucket
	ByQuarter      map[string]*QuarterBucket
	BySegment      map[string]*Bucket
	ByDistrict     map[string]*DistrictBucket
	ByPropertyType map[string]*PropertyTypeBucket
	ByTenure       map[string]*TenureBucket
	ByProject      map[string]*ProjectBucket
	ByFloorBand    map[string]*Bucket

	Recent *sampling.TopK[ingest.TransactionRecord]

	// Sales holds every accepted transaction for window-based stat cards.
	// Unbounded on purpose: the full batch set fits comfortably in memory
	// and the rolling-window selector needs exact counts.
	Sales []ingest.TransactionRecord

	// batches records project -> batch provenance.
	batches map[string]string

	skipped int
	rng     *rand.Rand
	log     zerolog.Logger
}

// NewAggregator creates an empty aggregator with a time-seeded sampling
// source.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return NewSeededAggregator(log, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSeededAggregator creates an empty aggregator with an injected random
// source so sampled structures are reproducible in tests.
func NewSeededAggregator(log zerolog.Logger, rng *rand.Rand) *Aggregator {
	return &Aggregator{
		Global:         sampling.NewReservoir[float64](globalSampleCap, rng),
		Scatter:        sampling.NewReservoir[ScatterPoint](scatterSampleCap, rng),
		ByYear:         make(map[int]*YearBucket),
		ByQuarter:      make(map[string]*QuarterBucket),
		BySegment:      make(map[string]*Bucket),
		ByDistrict:     make(map[string]*DistrictBucket),
		ByPropertyType: make(map[string]*PropertyTypeBucket),
		ByTenure:       make(map[string]*TenureBucket),
		ByProject:      make(map[string]*ProjectBucket),
		ByFloorBand:    make(map[string]*Bucket),
		Recent: sampling.NewTopK[ingest.TransactionRecord](recentTxCap,
			func(a, b ingest.TransactionRecord) bool { return a.Date.Before(b.Date) }),
		batches: make(map[string]string),
		rng:     rng,
		log:     log.With().Str("component", "aggregator").Logger(),
	}
}

// IngestProject validates and routes every nested transaction of one raw
// project object. Malformed records are skipped silently (the feed is
// third-party data with known irregularities); the skip count is kept for
// the refresh log line. Returns how many records were accepted and skipped.
func (a *Aggregator) IngestProject(p ingest.RawProject, batchID string) (accepted, skipped int) {
	if p.Project != "" {
		a.batches[p.Project] = batchID
	}
	for _, raw := range p.Transactions {
		rec, err := ingest.NormalizeTransaction(p, raw)
		if err != nil {
			skipped++
			continue
		}
		a.Add(rec)
		accepted++
	}
	a.skipped += skipped
	if skipped > 0 {
		a.log.Debug().
			Str("project", p.Project).
			Int("skipped", skipped).
			Msg("Skipped malformed transactions")
	}
	return accepted, skipped
}

// Add routes one validated transaction into every applicable bucket. All
// updates happen together: validation already ran, so there is no partial
// failure path here, just bookkeeping.
func (a *Aggregator) Add(rec ingest.TransactionRecord) {
	a.Total++
	a.Volume += rec.Price
	a.psfSum += rec.PSF
	a.Global.Add(rec.PSF)
	a.Scatter.Add(ScatterPoint{Area: rec.Area, PSF: rec.PSF, Segment: rec.Segment})

	yb := a.ByYear[rec.Year]
	if yb == nil {
		yb = newYearBucket(a.rng)
		a.ByYear[rec.Year] = yb
	}
	yb.Observe(rec.PSF, rec.Price)
	yb.Sample.Add(rec.PSF)

	qb := a.ByQuarter[rec.Quarter]
	if qb == nil {
		qb = newQuarterBucket()
		a.ByQuarter[rec.Quarter] = qb
	}
	qb.Observe(rec.PSF, rec.Price)
	if rec.Segment != "" {
		sb := qb.BySegment[rec.Segment]
		if sb == nil {
			sb = &Bucket{}
			qb.BySegment[rec.Segment] = sb
		}
		sb.Observe(rec.PSF, rec.Price)
	}

	if rec.Segment != "" {
		sb := a.BySegment[rec.Segment]
		if sb == nil {
			sb = &Bucket{}
			a.BySegment[rec.Segment] = sb
		}
		sb.Observe(rec.PSF, rec.Price)
	}

	db := a.ByDistrict[rec.District]
	if db == nil {
		db = newDistrictBucket()
		a.ByDistrict[rec.District] = db
	}
	db.Observe(rec.PSF, rec.Price)
	db.Segments.Inc(rec.Segment)
	dyb := db.ByYear[rec.Year]
	if dyb == nil {
		dyb = &Bucket{}
		db.ByYear[rec.Year] = dyb
	}
	dyb.Observe(rec.PSF, rec.Price)
	dqb := db.ByQuarter[rec.Quarter]
	if dqb == nil {
		dqb = &Bucket{}
		db.ByQuarter[rec.Quarter] = dqb
	}
	dqb.Observe(rec.PSF, rec.Price)

	if rec.PropertyType != "" {
		tb := a.ByPropertyType[rec.PropertyType]
		if tb == nil {
			tb = newPropertyTypeBucket()
			a.ByPropertyType[rec.PropertyType] = tb
		}
		tb.Observe(rec.PSF, rec.Price)
		if rec.Segment != "" {
			sb := tb.BySegment[rec.Segment]
			if sb == nil {
				sb = &Bucket{}
				tb.BySegment[rec.Segment] = sb
			}
			sb.Observe(rec.PSF, rec.Price)
		}
	}

	nb := a.ByTenure[rec.Tenure]
	if nb == nil {
		nb = newTenureBucket()
		a.ByTenure[rec.Tenure] = nb
	}
	nb.Observe(rec.PSF, rec.Price)
	tyb := nb.ByYear[rec.Year]
	if tyb == nil {
		tyb = &Bucket{}
		nb.ByYear[rec.Year] = tyb
	}
	tyb.Observe(rec.PSF, rec.Price)

	pb := a.ByProject[rec.Project]
	if pb == nil {
		pb = newProjectBucket(a.rng)
		pb.Street = rec.Street
		pb.District = rec.District
		a.ByProject[rec.Project] = pb
	}
	pb.Observe(rec.PSF, rec.Price)
	pb.Segments.Inc(rec.Segment)
	pb.Types.Inc(rec.PropertyType)
	pb.Tenures.Inc(rec.Tenure)
	pb.Areas.Add(rec.Area)
	pb.Prices.Add(rec.Price)
	pyb := pb.ByYear[rec.Year]
	if pyb == nil {
		pyb = &Bucket{}
		pb.ByYear[rec.Year] = pyb
	}
	pyb.Observe(rec.PSF, rec.Price)
	pfb := pb.ByFloorBand[rec.FloorBand]
	if pfb == nil {
		pfb = &Bucket{}
		pb.ByFloorBand[rec.FloorBand] = pfb
	}
	pfb.Observe(rec.PSF, rec.Price)
	if month := fmt.Sprintf("%d-%02d", rec.Year, rec.Month); month > pb.LatestMonth {
		pb.LatestMonth = month
	}

	fb := a.ByFloorBand[rec.FloorBand]
	if fb == nil {
		fb = &Bucket{}
		a.ByFloorBand[rec.FloorBand] = fb
	}
	fb.Observe(rec.PSF, rec.Price)

	a.Recent.Add(rec)
	a.Sales = append(a.Sales, rec)
}

// Skipped returns how many raw records failed validation across all batches.
func (a *Aggregator) Skipped() int {
	return a.skipped
}

// AvgPSF returns the exact mean psf over every accepted transaction.
func (a *Aggregator) AvgPSF() float64 {
	if a.Total == 0 {
		return 0
	}
	return a.psfSum / float64(a.Total)
}

// BatchFor returns the batch a project arrived in, for provenance.
func (a *Aggregator) BatchFor(project string) (string, bool) {
	id, ok := a.batches[project]
	return id, ok
}

// RentalAggregator consumes validated rental records and keeps the rental
// side of the dashboard: per-project, per-quarter, per-segment and
// per-district aggregates plus the unbounded store the rolling-window
// selector reads.
type RentalAggregator struct {
	Total int

	ByProject  map[string]*RentalBucket
	ByQuarter  map[string]*RentalBucket
	BySegment  map[string]*RentalBucket
	ByDistrict map[string]*RentalBucket

	Rentals []ingest.RentalRecord

	skipped int
	rng     *rand.Rand
}

// NewRentalAggregator creates an empty rental aggregator.
func NewRentalAggregator() *RentalAggregator {
	return NewSeededRentalAggregator(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSeededRentalAggregator creates an empty rental aggregator with an
// injected random source.
func NewSeededRentalAggregator(rng *rand.Rand) *RentalAggregator {
	return &RentalAggregator{
		ByProject:  make(map[string]*RentalBucket),
		ByQuarter:  make(map[string]*RentalBucket),
		BySegment:  make(map[string]*RentalBucket),
		ByDistrict: make(map[string]*RentalBucket),
		rng:        rng,
	}
}

// IngestProject validates and routes every nested rental of one raw rental
// project, with the same silent-skip discipline as sales.
func (r *RentalAggregator) IngestProject(p ingest.RawRentalProject) (accepted, skipped int) {
	for _, raw := range p.Rentals {
		rec, err := ingest.NormalizeRental(p, raw)
		if err != nil {
			skipped++
			continue
		}
		r.Add(rec)
		accepted++
	}
	r.skipped += skipped
	return accepted, skipped
}

// Add routes one validated rental into every applicable bucket.
func (r *RentalAggregator) Add(rec ingest.RentalRecord) {
	r.Total++

	r.observe(r.ByProject, rec.Project, rec)
	r.observe(r.ByQuarter, rec.Quarter, rec)
	r.observe(r.BySegment, rec.Segment, rec)
	r.observe(r.ByDistrict, rec.District, rec)

	r.Rentals = append(r.Rentals, rec)
}

func (r *RentalAggregator) observe(m map[string]*RentalBucket, key string, rec ingest.RentalRecord) {
	if key == "" {
		return
	}
	b := m[key]
	if b == nil {
		b = newRentalBucket(r.rng)
		m[key] = b
	}
	b.Observe(rec.Rent, rec.RentPSF)
}

// Skipped returns how many raw rental records failed validation.
func (r *RentalAggregator) Skipped() int {
	return r.skipped
}
