package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when a series is shorter than the
// requested period. Retrying cannot help; the caller needs more candles.
var ErrInsufficientData = errors.New("insufficient data for period")

// EMA computes an exponential moving average over closes.
// The result is aligned 1:1 with the input; the first period-1 entries are
// NaN. Seed is the simple average of the first period values, then
// ema[i] = close[i]*k + ema[i-1]*(1-k) with k = 2/(period+1).
func EMA(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("ema: period %d: %w", period, ErrInsufficientData)
	}
	if len(closes) < period {
		return nil, fmt.Errorf("ema: %d candles < period %d: %w", len(closes), period, ErrInsufficientData)
	}

	out := make([]float64, len(closes))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}

	sum := 0.0
	for _, c := range closes[:period] {
		sum += c
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out, nil
}

// RSI computes a Wilder-smoothed relative strength index.
// The first period entries are NaN.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return nil, fmt.Errorf("rsi: %d candles, period %d: %w", len(closes), period, ErrInsufficientData)
	}

	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR computes a Wilder-smoothed average true range over aligned
// high/low/close series. The first period entries are NaN.
func ATR(highs, lows, closes []float64, period int) ([]float64, error) {
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil, fmt.Errorf("atr: misaligned series %d/%d/%d", len(highs), len(lows), n)
	}
	if period <= 0 || n < period+1 {
		return nil, fmt.Errorf("atr: %d candles, period %d: %w", n, period, ErrInsufficientData)
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	out := make([]float64, n)
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}
	sum := 0.0
	for _, v := range tr[:period] {
		sum += v
	}
	out[period] = sum / float64(period)
	for i := period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out, nil
}

// Trend reports the current fast/slow relationship, not a crossover.
func Trend(fast, slow []float64) string {
	if len(fast) == 0 || len(slow) == 0 {
		return ""
	}
	f, s := fast[len(fast)-1], slow[len(slow)-1]
	if math.IsNaN(f) || math.IsNaN(s) {
		return ""
	}
	switch {
	case f > s:
		return "BULLISH"
	case f < s:
		return "BEARISH"
	}
	return "NEUTRAL"
}

// Last returns the final value of a series, NaN for an empty one.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
