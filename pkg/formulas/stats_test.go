package formulas

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if got := Mean([]float64{2000, 2200, 2400}); got != 2200 {
		t.Errorf("expected 2200, got %.2f", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %.2f", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"odd length", []float64{3, 1, 2}, 2},
		{"even length", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.data); got != tt.want {
				t.Errorf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	data := []float64{3, 1, 2}
	Median(data)
	if data[0] != 3 || data[1] != 1 || data[2] != 2 {
		t.Errorf("input mutated: %v", data)
	}
}

func TestPercentile(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 10},
		{0.25, 30}, // floor(10 * 0.25) = idx 2
		{0.5, 60},  // floor(10 * 0.5) = idx 5
		{0.9, 100}, // floor(10 * 0.9) = idx 9
		{1.0, 100}, // clamped to last
	}

	for _, tt := range tests {
		if got := Percentile(data, tt.p); got != tt.want {
			t.Errorf("p=%.2f: expected %.0f, got %.0f", tt.p, tt.want, got)
		}
	}

	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %.2f", got)
	}
}

func TestRounding(t *testing.T) {
	if got := Round1(10.04); got != 10.0 {
		t.Errorf("Round1(10.04): expected 10.0, got %v", got)
	}
	if got := Round1(10.06); got != 10.1 {
		t.Errorf("Round1(10.06): expected 10.1, got %v", got)
	}
	if got := Round2(2.8149); got != 2.81 {
		t.Errorf("Round2(2.8149): expected 2.81, got %v", got)
	}
	if got := Round2(0.0284*100); got != 2.84 {
		t.Errorf("Round2: expected 2.84, got %v", got)
	}
}

func TestStdDev(t *testing.T) {
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	// Sample standard deviation of the classic dataset
	if math.Abs(got-2.138) > 0.01 {
		t.Errorf("expected ~2.138, got %.4f", got)
	}
	if StdDev([]float64{5}) != 0 {
		t.Errorf("expected 0 for single value")
	}
}
