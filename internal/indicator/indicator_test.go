package indicator

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMAMatchesRecurrence(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 15, 14, 13, 14, 15}
	period := 5

	got, err := EMA(closes, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(closes) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(closes))
	}

	// Reference: SMA seed then sequential recurrence.
	seed := (10.0 + 11 + 12 + 13 + 14) / 5
	k := 2.0 / float64(period+1)
	want := seed
	for i := period; i < len(closes); i++ {
		want = closes[i]*k + want*(1-k)
	}
	if !almostEqual(got[len(got)-1], want) {
		t.Fatalf("last EMA = %.10f, want %.10f", got[len(got)-1], want)
	}
	if !almostEqual(got[period-1], seed) {
		t.Fatalf("seed EMA = %.10f, want %.10f", got[period-1], seed)
	}
}

func TestEMAUndefinedPrefix(t *testing.T) {
	got, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("entry %d should be undefined, got %f", i, got[i])
		}
	}
	if math.IsNaN(got[2]) {
		t.Fatalf("entry 2 should be defined")
	}
}

func TestEMAInsufficientData(t *testing.T) {
	_, err := EMA([]float64{1, 2, 3}, 9)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
	_, err = EMA([]float64{1, 2, 3}, 0)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData for zero period, got %v", err)
	}
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := RSI(closes, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := got[len(got)-1]; !almostEqual(v, 100) {
		t.Fatalf("monotone rising series should give RSI 100, got %f", v)
	}
	for i := 0; i < 3; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("entry %d should be undefined", i)
		}
	}
}

func TestATRFlatSeries(t *testing.T) {
	n := 10
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i], lows[i], closes[i] = 102, 98, 100
	}
	got, err := ATR(highs, lows, closes, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Constant 4-point range per bar, so ATR settles at 4.
	if v := got[len(got)-1]; !almostEqual(v, 4) {
		t.Fatalf("flat-range ATR = %f, want 4", v)
	}
}

func TestTrend(t *testing.T) {
	if tr := Trend([]float64{1, 3}, []float64{1, 2}); tr != "BULLISH" {
		t.Fatalf("want BULLISH, got %q", tr)
	}
	if tr := Trend([]float64{1, 2}, []float64{1, 3}); tr != "BEARISH" {
		t.Fatalf("want BEARISH, got %q", tr)
	}
	if tr := Trend([]float64{math.NaN()}, []float64{1}); tr != "" {
		t.Fatalf("want empty trend on NaN, got %q", tr)
	}
}
