package analytics

import "time"

// Report is the complete pre-computed dashboard payload. It is
// JSON-serializable for the HTTP layer and msgpack-serializable for the
// snapshot store; persistence and transport are the callers' concern.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" msgpack:"generated_at"`

	// Headline figures (exact)
	TotalTx     int     `json:"total_tx" msgpack:"total_tx"`
	TotalVolume float64 `json:"total_volume" msgpack:"total_volume"`
	AvgPSF      float64 `json:"avg_psf" msgpack:"avg_psf"`

	// Sampled figures (from the bounded global reservoir)
	MedPSF float64 `json:"med_psf" msgpack:"med_psf"`
	PSFP25 float64 `json:"psf_p25" msgpack:"psf_p25"`
	PSFP75 float64 `json:"psf_p75" msgpack:"psf_p75"`

	YoYPct float64 `json:"yoy_pct" msgpack:"yoy_pct"`

	SaleWindow SaleWindowStat  `json:"sale_window" msgpack:"sale_window"`
	RentWindow *RentWindowStat `json:"rent_window,omitempty" msgpack:"rent_window,omitempty"`

	TrendByYear    []YearTrend    `json:"trend_by_year" msgpack:"trend_by_year"`
	TrendByQuarter []QuarterTrend `json:"trend_by_quarter" msgpack:"trend_by_quarter"`

	BySegment      map[string]SegmentStat      `json:"by_segment" msgpack:"by_segment"`
	ByDistrict     map[string]DistrictStat     `json:"by_district" msgpack:"by_district"`
	ByPropertyType map[string]PropertyTypeStat `json:"by_property_type" msgpack:"by_property_type"`
	ByTenure       map[string]TenureStat       `json:"by_tenure" msgpack:"by_tenure"`
	ByFloorBand    []FloorBandStat             `json:"by_floor_band" msgpack:"by_floor_band"`

	Histogram []HistogramBin `json:"histogram" msgpack:"histogram"`
	Scatter   []ScatterPoint `json:"scatter" msgpack:"scatter"`

	// YieldBySegment is the imputed gross yield per segment, in percent.
	YieldBySegment map[string]float64 `json:"yield_by_segment" msgpack:"yield_by_segment"`

	MostTraded          []ProjectRank       `json:"most_traded" msgpack:"most_traded"`
	TopDistrictsByYield []DistrictYieldRank `json:"top_districts_by_yield" msgpack:"top_districts_by_yield"`

	// TopTransactions is the exact most-recent set, bounded by the top-K
	// collector, newest first.
	TopTransactions []TransactionView `json:"top_transactions" msgpack:"top_transactions"`

	// Projects indexes the per-project summaries by project name.
	Projects map[string]*ProjectSummary `json:"projects" msgpack:"projects"`

	RentalsAvailable bool `json:"rentals_available" msgpack:"rentals_available"`
	SkippedRecords   int  `json:"skipped_records" msgpack:"skipped_records"`
}

// SaleWindowStat is the headline sales card: stats over the selected
// rolling window.
type SaleWindowStat struct {
	Window WindowKind `json:"window" msgpack:"window"`
	Count  int        `json:"count" msgpack:"count"`
	AvgPSF float64    `json:"avg_psf" msgpack:"avg_psf"`
	MedPSF float64    `json:"med_psf" msgpack:"med_psf"`
	Volume float64    `json:"volume" msgpack:"volume"`
}

// RentWindowStat is the headline rentals card, built with the same window
// selector as sales.
type RentWindowStat struct {
	Window     WindowKind `json:"window" msgpack:"window"`
	Count      int        `json:"count" msgpack:"count"`
	AvgRent    float64    `json:"avg_rent" msgpack:"avg_rent"`
	MedRent    float64    `json:"med_rent" msgpack:"med_rent"`
	AvgRentPSF float64    `json:"avg_rent_psf" msgpack:"avg_rent_psf"`
}

// YearTrend is one point of the yearly trend series.
type YearTrend struct {
	Year   int     `json:"year" msgpack:"year"`
	Count  int     `json:"count" msgpack:"count"`
	AvgPSF float64 `json:"avg_psf" msgpack:"avg_psf"`
	MedPSF float64 `json:"med_psf" msgpack:"med_psf"`
	PSFP25 float64 `json:"psf_p25" msgpack:"psf_p25"`
	PSFP75 float64 `json:"psf_p75" msgpack:"psf_p75"`
	Volume float64 `json:"volume" msgpack:"volume"`
}

// QuarterTrend is one point of the quarterly trend series. SMAPSF is a
// 4-quarter simple moving average of AvgPSF, 0 for the first three points.
type QuarterTrend struct {
	Quarter   string             `json:"quarter" msgpack:"quarter"`
	Count     int                `json:"count" msgpack:"count"`
	AvgPSF    float64            `json:"avg_psf" msgpack:"avg_psf"`
	SMAPSF    float64            `json:"sma_psf" msgpack:"sma_psf"`
	Volume    float64            `json:"volume" msgpack:"volume"`
	BySegment map[string]SubStat `json:"by_segment" msgpack:"by_segment"`
}

// SubStat is a small cross-tabulated slice (count + average psf).
type SubStat struct {
	Count  int     `json:"count" msgpack:"count"`
	AvgPSF float64 `json:"avg_psf" msgpack:"avg_psf"`
}

// YearSlice is a per-year slice of a parent bucket.
type YearSlice struct {
	Year   int     `json:"year" msgpack:"year"`
	Count  int     `json:"count" msgpack:"count"`
	AvgPSF float64 `json:"avg_psf" msgpack:"avg_psf"`
}

// SegmentStat is the per-segment breakdown row.
type SegmentStat struct {
	Count    int     `json:"count" msgpack:"count"`
	AvgPSF   float64 `json:"avg_psf" msgpack:"avg_psf"`
	Volume   float64 `json:"volume" msgpack:"volume"`
	YieldPct float64 `json:"yield_pct" msgpack:"yield_pct"`
}

// DistrictStat is the per-district breakdown row. CAGRPct and
// TotalReturnPct are nil when either endpoint year has no transactions;
// LowConf flags endpoints with fewer than 3 contributing transactions.
type DistrictStat struct {
	Count          int         `json:"count" msgpack:"count"`
	AvgPSF         float64     `json:"avg_psf" msgpack:"avg_psf"`
	Volume         float64     `json:"volume" msgpack:"volume"`
	Segment        string      `json:"segment" msgpack:"segment"`
	YieldPct       float64     `json:"yield_pct" msgpack:"yield_pct"`
	CAGRPct        *float64    `json:"cagr_pct,omitempty" msgpack:"cagr_pct,omitempty"`
	TotalReturnPct *float64    `json:"total_return_pct,omitempty" msgpack:"total_return_pct,omitempty"`
	LowConf        bool        `json:"low_conf" msgpack:"low_conf"`
	ByYear         []YearSlice `json:"by_year" msgpack:"by_year"`
}

// PropertyTypeStat is the per-property-type breakdown row.
type PropertyTypeStat struct {
	Count     int                `json:"count" msgpack:"count"`
	AvgPSF    float64            `json:"avg_psf" msgpack:"avg_psf"`
	Volume    float64            `json:"volume" msgpack:"volume"`
	BySegment map[string]SubStat `json:"by_segment" msgpack:"by_segment"`
}

// TenureStat is the per-tenure breakdown row.
type TenureStat struct {
	Count  int         `json:"count" msgpack:"count"`
	AvgPSF float64     `json:"avg_psf" msgpack:"avg_psf"`
	Volume float64     `json:"volume" msgpack:"volume"`
	ByYear []YearSlice `json:"by_year" msgpack:"by_year"`
}

// FloorBandStat is the per-floor-band breakdown row, sorted by band.
type FloorBandStat struct {
	Band   string  `json:"band" msgpack:"band"`
	Count  int     `json:"count" msgpack:"count"`
	AvgPSF float64 `json:"avg_psf" msgpack:"avg_psf"`
}

// HistogramBin is one fixed-width psf bin over the sampled global psf
// distribution.
type HistogramBin struct {
	Lo    float64 `json:"lo" msgpack:"lo"`
	Hi    float64 `json:"hi" msgpack:"hi"`
	Count int     `json:"count" msgpack:"count"`
}

// ProjectRank is one row of the "most traded" ranking.
type ProjectRank struct {
	Project  string  `json:"project" msgpack:"project"`
	District string  `json:"district" msgpack:"district"`
	Count    int     `json:"count" msgpack:"count"`
	AvgPSF   float64 `json:"avg_psf" msgpack:"avg_psf"`
}

// DistrictYieldRank is one row of the "top districts by yield" ranking.
type DistrictYieldRank struct {
	District string  `json:"district" msgpack:"district"`
	YieldPct float64 `json:"yield_pct" msgpack:"yield_pct"`
	Count    int     `json:"count" msgpack:"count"`
}

// TransactionView is one row of the bounded recent-transactions table.
type TransactionView struct {
	Project      string  `json:"project" msgpack:"project"`
	District     string  `json:"district" msgpack:"district"`
	Segment      string  `json:"segment" msgpack:"segment"`
	PropertyType string  `json:"property_type" msgpack:"property_type"`
	Tenure       string  `json:"tenure" msgpack:"tenure"`
	SaleType     string  `json:"sale_type" msgpack:"sale_type"`
	FloorBand    string  `json:"floor_band" msgpack:"floor_band"`
	Area         float64 `json:"area" msgpack:"area"`
	Price        float64 `json:"price" msgpack:"price"`
	PSF          float64 `json:"psf" msgpack:"psf"`
	Month        string  `json:"month" msgpack:"month"` // YYYY-MM
}

// ProjectSummary is the per-project view behind the project index and the
// project detail endpoint.
type ProjectSummary struct {
	Project        string          `json:"project" msgpack:"project"`
	Street         string          `json:"street" msgpack:"street"`
	District       string          `json:"district" msgpack:"district"`
	Segment        string          `json:"segment" msgpack:"segment"`
	PropertyType   string          `json:"property_type" msgpack:"property_type"`
	Tenure         string          `json:"tenure" msgpack:"tenure"`
	Count          int             `json:"count" msgpack:"count"`
	AvgPSF         float64         `json:"avg_psf" msgpack:"avg_psf"`
	Volume         float64         `json:"volume" msgpack:"volume"`
	MedArea        float64         `json:"med_area" msgpack:"med_area"`   // sampled
	MedPrice       float64         `json:"med_price" msgpack:"med_price"` // sampled
	LatestMonth    string          `json:"latest_month" msgpack:"latest_month"`
	YieldPct       float64         `json:"yield_pct" msgpack:"yield_pct"`
	CAGRPct        *float64        `json:"cagr_pct,omitempty" msgpack:"cagr_pct,omitempty"`
	TotalReturnPct *float64        `json:"total_return_pct,omitempty" msgpack:"total_return_pct,omitempty"`
	LowConf        bool            `json:"low_conf" msgpack:"low_conf"`
	ByYear         []YearSlice     `json:"by_year" msgpack:"by_year"`
	ByFloorBand    []FloorBandStat `json:"by_floor_band" msgpack:"by_floor_band"`
}
