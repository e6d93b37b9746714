package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SqmToSqft converts source areas (square metres) to square feet.
const SqmToSqft = 10.7639

// MaxPSF is the sanity ceiling for price per square foot. Records above it
// are treated as data-entry errors and excluded.
const MaxPSF = 50000.0

// MaxRentPSF is the sanity ceiling for monthly rent per square foot.
const MaxRentPSF = 100.0

// NormalizeTransaction validates and converts one raw sale record. The raw
// feed is third-party data with known irregularities, so an error here means
// "skip this record", never "abort the batch".
func NormalizeTransaction(p RawProject, t RawTransaction) (TransactionRecord, error) {
	year, month, err := ParseContractDate(t.ContractDate)
	if err != nil {
		return TransactionRecord{}, err
	}

	areaSqm, err := strconv.ParseFloat(strings.TrimSpace(t.Area), 64)
	if err != nil {
		return TransactionRecord{}, fmt.Errorf("bad area %q: %w", t.Area, err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(t.Price), 64)
	if err != nil {
		return TransactionRecord{}, fmt.Errorf("bad price %q: %w", t.Price, err)
	}

	area := areaSqm * SqmToSqft
	if area <= 0 {
		return TransactionRecord{}, fmt.Errorf("non-positive area %.2f", area)
	}
	if price <= 0 {
		return TransactionRecord{}, fmt.Errorf("non-positive price %.2f", price)
	}
	psf := price / area
	if psf <= 0 || psf > MaxPSF {
		return TransactionRecord{}, fmt.Errorf("psf %.2f out of range", psf)
	}

	band, mid := ParseFloorRange(t.FloorRange)

	return TransactionRecord{
		Project:      strings.TrimSpace(p.Project),
		Street:       strings.TrimSpace(p.Street),
		District:     NormalizeDistrict(t.District),
		Segment:      strings.ToUpper(strings.TrimSpace(p.MarketSegment)),
		PropertyType: strings.TrimSpace(t.PropertyType),
		Tenure:       NormalizeTenure(t.Tenure),
		Area:         area,
		Price:        price,
		PSF:          psf,
		FloorBand:    band,
		FloorMid:     mid,
		SaleType:     NormalizeSaleType(t.TypeOfSale),
		Year:         year,
		Month:        month,
		Quarter:      QuarterLabel(year, month),
		Date:         time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

// NormalizeRental validates and converts one raw rental record using the
// same silent-skip discipline as sales.
func NormalizeRental(p RawRentalProject, r RawRental) (RentalRecord, error) {
	quarter, err := ParseRefPeriod(r.RefPeriod)
	if err != nil {
		return RentalRecord{}, err
	}

	areaSqm, err := strconv.ParseFloat(strings.TrimSpace(r.AreaSqm), 64)
	if err != nil {
		return RentalRecord{}, fmt.Errorf("bad area %q: %w", r.AreaSqm, err)
	}
	rent, err := strconv.ParseFloat(strings.TrimSpace(r.Rent), 64)
	if err != nil {
		return RentalRecord{}, fmt.Errorf("bad rent %q: %w", r.Rent, err)
	}

	area := areaSqm * SqmToSqft
	if area <= 0 {
		return RentalRecord{}, fmt.Errorf("non-positive area %.2f", area)
	}
	if rent <= 0 {
		return RentalRecord{}, fmt.Errorf("non-positive rent %.2f", rent)
	}
	rentPSF := rent / area
	if rentPSF <= 0 || rentPSF > MaxRentPSF {
		return RentalRecord{}, fmt.Errorf("rent psf %.2f out of range", rentPSF)
	}

	bedrooms, _ := strconv.Atoi(strings.TrimSpace(r.Bedrooms))

	return RentalRecord{
		Project:  strings.TrimSpace(p.Project),
		District: NormalizeDistrict(p.District),
		Segment:  strings.ToUpper(strings.TrimSpace(p.MarketSegment)),
		Bedrooms: bedrooms,
		Area:     area,
		Rent:     rent,
		RentPSF:  rentPSF,
		Quarter:  quarter,
	}, nil
}

// ParseContractDate parses the provider's MMYY contract date, e.g. "0324"
// for March 2024.
func ParseContractDate(s string) (year, month int, err error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, 0, fmt.Errorf("bad contract date %q", s)
	}
	month, err = strconv.Atoi(s[:2])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("bad contract month in %q", s)
	}
	yy, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, 0, fmt.Errorf("bad contract year in %q", s)
	}
	return 2000 + yy, month, nil
}

// ParseRefPeriod parses the rental service's YYqN reference period, e.g.
// "24q2" -> "2024Q2".
func ParseRefPeriod(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	parts := strings.Split(s, "q")
	if len(parts) != 2 {
		return "", fmt.Errorf("bad ref period %q", s)
	}
	yy, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("bad ref period year %q", s)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 1 || q > 4 {
		return "", fmt.Errorf("bad ref period quarter %q", s)
	}
	return fmt.Sprintf("%dQ%d", 2000+yy, q), nil
}

// QuarterLabel formats a calendar quarter, e.g. (2024, 5) -> "2024Q2".
func QuarterLabel(year, month int) string {
	return fmt.Sprintf("%dQ%d", year, (month-1)/3+1)
}

// NormalizeTenure maps the provider's free-text tenure strings onto the
// three categories used everywhere downstream. Substring match, case
// insensitive, defaulting to Leasehold ("99 yrs lease commencing from 2015",
// "110 yrs from 1993" and similar).
func NormalizeTenure(raw string) string {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "freehold"):
		return TenureFreehold
	case strings.Contains(s, "999"):
		return Tenure999
	default:
		return TenureLeasehold
	}
}

// NormalizeSaleType maps the provider's numeric type-of-sale codes.
func NormalizeSaleType(raw string) string {
	switch strings.TrimSpace(raw) {
	case "1":
		return SaleTypeNew
	case "2":
		return SaleTypeSub
	case "3":
		return SaleTypeResale
	default:
		return SaleTypeResale
	}
}

// NormalizeDistrict converts the provider's zero-padded postal district
// ("09") to the display form used in the dashboard ("D9"). Inputs that are
// not numeric are passed through with a D prefix.
func NormalizeDistrict(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(raw)), "D"))
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("D%d", n)
	}
	return "D" + s
}

// ParseFloorRange splits the provider's floor range ("06-10") into a band
// label and its midpoint. Landed or unknown floors come through as "-" with
// midpoint 0, which routes them to their own floor bucket.
func ParseFloorRange(raw string) (band string, mid float64) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return "-", 0
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return "-", 0
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || lo < 1 || hi < lo {
		return "-", 0
	}
	return fmt.Sprintf("%02d-%02d", lo, hi), float64(lo+hi) / 2
}
