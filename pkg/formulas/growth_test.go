package formulas

import (
	"math"
	"testing"
)

func TestCAGR(t *testing.T) {
	// 1000 -> 1610.51 over 5 years is exactly 10% per year (1.1^5 = 1.61051)
	got := CAGR(1000, 1610.51, 5)
	if got == nil {
		t.Fatal("expected a value, got nil")
	}
	if math.Abs(*got*100-10.0) > 0.1 {
		t.Errorf("expected 10.0%%, got %.4f%%", *got*100)
	}
}

func TestCAGR_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		years      int
	}{
		{"zero start", 0, 1500, 5},
		{"negative start", -100, 1500, 5},
		{"zero end", 1000, 0, 5},
		{"zero years", 1000, 1500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CAGR(tt.start, tt.end, tt.years); got != nil {
				t.Errorf("expected nil, got %.4f", *got)
			}
		})
	}
}

func TestPctChange(t *testing.T) {
	if got := PctChange(2000, 2200); math.Abs(got-10.0) > 1e-9 {
		t.Errorf("expected 10.0, got %.4f", got)
	}
	if got := PctChange(0, 2200); got != 0 {
		t.Errorf("expected 0 for empty comparison bucket, got %.4f", got)
	}
}
