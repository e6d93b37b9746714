package analytics

import "time"

// WindowKind labels which trailing window the headline stat cards ended up
// using, so the UI can caption them ("last 3 months", "2024 to date", ...).
type WindowKind string

const (
	Window3M  WindowKind = "3m"
	Window6M  WindowKind = "6m"
	Window12M WindowKind = "12m"
	WindowYTD WindowKind = "ytd"
	WindowAll WindowKind = "all"
)

// minWindowRecords is the minimum number of records a trailing window must
// contain before it is considered representative.
const minWindowRecords = 20

// selectWindow picks the smallest trailing window (3, 6, then 12 months,
// anchored on now) containing at least minWindowRecords qualifying records.
// If none qualifies it falls back to the current year's records, then to
// everything. Sales and rentals go through this same selector so the two
// headline cards stay comparable.
func selectWindow[T any](items []T, at func(T) time.Time, now time.Time) (WindowKind, []T) {
	windows := []struct {
		kind   WindowKind
		months int
	}{
		{Window3M, 3},
		{Window6M, 6},
		{Window12M, 12},
	}

	for _, w := range windows {
		cutoff := now.AddDate(0, -w.months, 0)
		var selected []T
		for _, item := range items {
			t := at(item)
			if !t.Before(cutoff) && !t.After(now) {
				selected = append(selected, item)
			}
		}
		if len(selected) >= minWindowRecords {
			return w.kind, selected
		}
	}

	var thisYear []T
	for _, item := range items {
		if at(item).Year() == now.Year() {
			thisYear = append(thisYear, item)
		}
	}
	if len(thisYear) > 0 {
		return WindowYTD, thisYear
	}

	return WindowAll, items
}
