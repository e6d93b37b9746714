package ingest

import "time"

// Market segments (three-tier classification by geographic desirability)
const (
	SegmentCCR = "CCR"
	SegmentRCR = "RCR"
	SegmentOCR = "OCR"
)

// Normalized tenure categories
const (
	TenureFreehold  = "Freehold"
	Tenure999       = "999-yr"
	TenureLeasehold = "Leasehold"
)

// Sale types
const (
	SaleTypeNew    = "New Sale"
	SaleTypeSub    = "Sub Sale"
	SaleTypeResale = "Resale"
)

// RawProject is one source "project" object as returned by the data
// provider's transaction service. Numeric fields arrive as strings.
type RawProject struct {
	Project       string           `json:"project"`
	Street        string           `json:"street"`
	MarketSegment string           `json:"marketSegment"`
	Transactions  []RawTransaction `json:"transaction"`
}

// RawTransaction is a single nested sale record inside a RawProject.
type RawTransaction struct {
	ContractDate string `json:"contractDate"` // MMYY, e.g. "0324" = March 2024
	Area         string `json:"area"`         // square metres
	Price        string `json:"price"`
	FloorRange   string `json:"floorRange"` // e.g. "06-10", "-" for landed
	PropertyType string `json:"propertyType"`
	District     string `json:"district"` // two-digit postal district, e.g. "09"
	Tenure       string `json:"tenure"`   // free text, e.g. "99 yrs lease commencing from 2015"
	TypeOfSale   string `json:"typeOfSale"` // 1 = new sale, 2 = sub sale, 3 = resale
	NoOfUnits    string `json:"noOfUnits"`
}

// RawRentalProject is one project object from the rental service.
type RawRentalProject struct {
	Project       string      `json:"project"`
	Street        string      `json:"street"`
	District      string      `json:"district"`
	MarketSegment string      `json:"marketSegment"`
	Rentals       []RawRental `json:"rental"`
}

// RawRental is a single rental contract record inside a RawRentalProject.
type RawRental struct {
	RefPeriod string `json:"refPeriod"` // YYqN, e.g. "24q2"
	Bedrooms  string `json:"noOfBedRoom"`
	AreaSqm   string `json:"areaSqm"`
	Rent      string `json:"rent"` // monthly rent
}

// TransactionRecord is a validated, normalized sale transaction.
// Invariants: Area > 0, Price > 0, 0 < PSF <= 50000.
type TransactionRecord struct {
	Project      string    `json:"project"`
	Street       string    `json:"street"`
	District     string    `json:"district"` // normalized, e.g. "D9"
	Segment      string    `json:"segment"`  // CCR / RCR / OCR
	PropertyType string    `json:"property_type"`
	Tenure       string    `json:"tenure"` // Freehold / 999-yr / Leasehold
	Area         float64   `json:"area"`   // sqft
	Price        float64   `json:"price"`
	PSF          float64   `json:"psf"`
	FloorBand    string    `json:"floor_band"`
	FloorMid     float64   `json:"floor_mid"`
	SaleType     string    `json:"sale_type"`
	Year         int       `json:"year"`
	Month        int       `json:"month"` // 1-12
	Quarter      string    `json:"quarter"` // e.g. "2024Q1"
	Date         time.Time `json:"date"`
}

// RentalRecord is a validated, normalized rental contract.
// Invariants: Area > 0, Rent > 0, 0 < RentPSF <= 100.
type RentalRecord struct {
	Project  string  `json:"project"`
	District string  `json:"district"`
	Segment  string  `json:"segment"`
	Bedrooms int     `json:"bedrooms"`
	Area     float64 `json:"area"` // sqft
	Rent     float64 `json:"rent"` // monthly
	RentPSF  float64 `json:"rent_psf"`
	Quarter  string  `json:"quarter"` // e.g. "2024Q2"
}
