package analytics

import (
	"math/rand"

	"github.com/ljtan/propertypulse/pkg/sampling"
)

// Sampling and retention capacities. Sums, counts and volumes in every
// bucket are exact over all routed records; only the value lists used for
// medians, histograms and scatter plots are capped at these sizes, so a
// single bucket's auxiliary memory is O(1) in the input length.
const (
	globalSampleCap   = 2000 // global psf reservoir
	yearSampleCap     = 500  // per-year psf reservoir
	projectHistoryCap = 50   // per-project area/price reservoirs
	scatterSampleCap  = 1000 // global (area, psf) scatter reservoir
	recentTxCap       = 500  // exact most-recent transactions
	rentSampleCap     = 200  // per-bucket rent reservoir (medians)
)

// Bucket is the base aggregate kept per grouping key: running sum of psf,
// running count and running price volume.
type Bucket struct {
	Sum    float64
	Volume float64
	Count  int
}

// Observe routes one transaction's psf and price into the bucket.
func (b *Bucket) Observe(psf, price float64) {
	b.Sum += psf
	b.Count++
	b.Volume += price
}

// Avg returns the true mean psf over all records routed to the bucket.
func (b *Bucket) Avg() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

// CategoryCounter counts occurrences per category and remembers first-seen
// order so Dominant() breaks ties deterministically.
type CategoryCounter struct {
	counts map[string]int
	order  []string
}

// NewCategoryCounter creates an empty counter.
func NewCategoryCounter() *CategoryCounter {
	return &CategoryCounter{counts: make(map[string]int)}
}

// Inc increments the count for a category.
func (c *CategoryCounter) Inc(category string) {
	if category == "" {
		return
	}
	if _, seen := c.counts[category]; !seen {
		c.order = append(c.order, category)
	}
	c.counts[category]++
}

// Dominant returns the argmax category; ties go to the first-seen one.
func (c *CategoryCounter) Dominant() string {
	best, bestCount := "", 0
	for _, cat := range c.order {
		if c.counts[cat] > bestCount {
			best, bestCount = cat, c.counts[cat]
		}
	}
	return best
}

// Counts returns a copy of the per-category counts.
func (c *CategoryCounter) Counts() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// YearBucket adds a bounded psf sample to the base aggregate, used for
// per-year medians and percentile bands.
type YearBucket struct {
	Bucket
	Sample *sampling.Reservoir[float64]
}

func newYearBucket(rng *rand.Rand) *YearBucket {
	return &YearBucket{Sample: sampling.NewReservoir[float64](yearSampleCap, rng)}
}

// QuarterBucket cross-tabulates segments within a quarter.
type QuarterBucket struct {
	Bucket
	BySegment map[string]*Bucket
}

func newQuarterBucket() *QuarterBucket {
	return &QuarterBucket{BySegment: make(map[string]*Bucket)}
}

// DistrictBucket cross-tabulates years and quarters within a district and
// tracks the district's observed segment mix.
type DistrictBucket struct {
	Bucket
	ByYear    map[int]*Bucket
	ByQuarter map[string]*Bucket
	Segments  *CategoryCounter
}

func newDistrictBucket() *DistrictBucket {
	return &DistrictBucket{
		ByYear:    make(map[int]*Bucket),
		ByQuarter: make(map[string]*Bucket),
		Segments:  NewCategoryCounter(),
	}
}

// PropertyTypeBucket cross-tabulates segments within a property type.
type PropertyTypeBucket struct {
	Bucket
	BySegment map[string]*Bucket
}

func newPropertyTypeBucket() *PropertyTypeBucket {
	return &PropertyTypeBucket{BySegment: make(map[string]*Bucket)}
}

// TenureBucket cross-tabulates years within a tenure category.
type TenureBucket struct {
	Bucket
	ByYear map[int]*Bucket
}

func newTenureBucket() *TenureBucket {
	return &TenureBucket{ByYear: make(map[int]*Bucket)}
}

// ProjectBucket carries everything the per-project dashboard views need:
// bounded area/price histories, per-year and per-floor-band sub-buckets,
// category mixes and a latest-transaction-month marker ("YYYY-MM", compares
// lexicographically).
type ProjectBucket struct {
	Bucket
	Street      string
	District    string
	Segments    *CategoryCounter
	Types       *CategoryCounter
	Tenures     *CategoryCounter
	Areas       *sampling.Reservoir[float64]
	Prices      *sampling.Reservoir[float64]
	ByYear      map[int]*Bucket
	ByFloorBand map[string]*Bucket
	LatestMonth string
}

func newProjectBucket(rng *rand.Rand) *ProjectBucket {
	return &ProjectBucket{
		Segments:    NewCategoryCounter(),
		Types:       NewCategoryCounter(),
		Tenures:     NewCategoryCounter(),
		Areas:       sampling.NewReservoir[float64](projectHistoryCap, rng),
		Prices:      sampling.NewReservoir[float64](projectHistoryCap, rng),
		ByYear:      make(map[int]*Bucket),
		ByFloorBand: make(map[string]*Bucket),
	}
}

// RentalBucket is the rental-side aggregate kept per grouping key.
type RentalBucket struct {
	SumRent    float64
	SumRentPSF float64
	Count      int
	Rents      *sampling.Reservoir[float64]
}

func newRentalBucket(rng *rand.Rand) *RentalBucket {
	return &RentalBucket{Rents: sampling.NewReservoir[float64](rentSampleCap, rng)}
}

// Observe routes one rental's monthly rent and rent-psf into the bucket.
func (b *RentalBucket) Observe(rent, rentPSF float64) {
	b.SumRent += rent
	b.SumRentPSF += rentPSF
	b.Count++
	b.Rents.Add(rent)
}

// AvgRent returns the true mean monthly rent for the bucket.
func (b *RentalBucket) AvgRent() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.SumRent / float64(b.Count)
}

// AvgRentPSF returns the true mean rent per square foot for the bucket.
func (b *RentalBucket) AvgRentPSF() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.SumRentPSF / float64(b.Count)
}
