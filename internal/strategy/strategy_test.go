package strategy

import (
	"testing"
	"time"

	"emabot/internal/indicator"
	"emabot/internal/models"
)

func candleSeries(closes ...float64) []models.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:     c, High: c, Low: c, Close: c,
		}
	}
	return out
}

func flatThen(n int, level, last float64) []models.Candle {
	closes := make([]float64, n+1)
	for i := 0; i < n; i++ {
		closes[i] = level
	}
	closes[n] = last
	return candleSeries(closes...)
}

func newTestEngine(t *testing.T, confirm bool) *EMACross {
	t.Helper()
	e, err := NewEMACross(EMACrossConfig{Fast: 3, Slow: 5, RequireConfirmation: confirm})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestEMACrossBuySignal(t *testing.T) {
	e := newTestEngine(t, false)

	// Flat series keeps both EMAs pinned at 100, then a spike lifts the
	// fast EMA above the slow one on the final candle.
	candles := flatThen(20, 100, 120)
	sig, err := e.Evaluate("BTC", candles)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Side != models.SideBuy {
		t.Fatalf("want BUY, got %q", sig.Side)
	}
	if !sig.CandleTime.Equal(candles[len(candles)-1].OpenTime) {
		t.Fatalf("signal candle time should be the last candle")
	}
}

func TestEMACrossSellSignal(t *testing.T) {
	e := newTestEngine(t, false)

	sig, err := e.Evaluate("ETH", flatThen(20, 100, 80))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Side != models.SideSell {
		t.Fatalf("want SELL, got %q", sig.Side)
	}
}

func TestEMACrossNoSignalOnFlat(t *testing.T) {
	e := newTestEngine(t, false)

	sig, err := e.Evaluate("BTC", flatThen(20, 100, 100))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Side != models.SideNone {
		t.Fatalf("flat series should not signal, got %q", sig.Side)
	}
}

func TestEMACrossInsufficientData(t *testing.T) {
	e := newTestEngine(t, false)

	_, err := e.Evaluate("BTC", candleSeries(100, 101))
	if err == nil {
		t.Fatalf("want error on short series")
	}
}

func TestEMACrossConfirmationSuppressesSingleCandleCross(t *testing.T) {
	e := newTestEngine(t, true)

	sig, err := e.Evaluate("BTC", flatThen(20, 100, 120))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Side != models.SideNone {
		t.Fatalf("unconfirmed cross should be suppressed, got %q", sig.Side)
	}
}

func TestEMACrossRejectsBadPeriods(t *testing.T) {
	if _, err := NewEMACross(EMACrossConfig{Fast: 20, Slow: 9}); err == nil {
		t.Fatalf("fast >= slow must be rejected")
	}
	if _, err := NewEMACross(EMACrossConfig{Fast: 0, Slow: 9}); err == nil {
		t.Fatalf("zero fast period must be rejected")
	}
}

func TestDetectorCommitIsExplicit(t *testing.T) {
	d := NewDetector()
	sig := models.Signal{
		Symbol:     "BTC",
		Side:       models.SideBuy,
		CandleTime: time.Unix(100, 0),
	}

	if !d.Allow(sig) {
		t.Fatalf("fresh signal must pass")
	}
	// Not committed yet (downstream failed): the same signal retries.
	if !d.Allow(sig) {
		t.Fatalf("uncommitted signal must pass again")
	}

	d.Commit(sig, 105, 104)
	if d.Allow(sig) {
		t.Fatalf("committed signal must not fire twice for the same candle")
	}
}

func TestDetectorBlocksRepeatSideAndStaleCandle(t *testing.T) {
	d := NewDetector()
	buy := models.Signal{Symbol: "BTC", Side: models.SideBuy, CandleTime: time.Unix(100, 0)}
	d.Commit(buy, 1, 0)

	// Same side on a newer candle: still blocked without an opposite cross.
	laterBuy := buy
	laterBuy.CandleTime = time.Unix(200, 0)
	if d.Allow(laterBuy) {
		t.Fatalf("repeat BUY without intervening SELL must be blocked")
	}

	// Opposite side on an older or equal candle: blocked by time.
	staleSell := models.Signal{Symbol: "BTC", Side: models.SideSell, CandleTime: time.Unix(100, 0)}
	if d.Allow(staleSell) {
		t.Fatalf("signal on a non-newer candle must be blocked")
	}

	freshSell := staleSell
	freshSell.CandleTime = time.Unix(200, 0)
	if !d.Allow(freshSell) {
		t.Fatalf("opposite side on a newer candle must pass")
	}

	d.Reset("BTC")
	if !d.Allow(laterBuy) {
		t.Fatalf("reset must re-arm the symbol")
	}
}

func TestDetectorSymbolsAreIndependent(t *testing.T) {
	d := NewDetector()
	d.Commit(models.Signal{Symbol: "BTC", Side: models.SideBuy, CandleTime: time.Unix(100, 0)}, 1, 0)

	ethBuy := models.Signal{Symbol: "ETH", Side: models.SideBuy, CandleTime: time.Unix(50, 0)}
	if !d.Allow(ethBuy) {
		t.Fatalf("state must be per symbol")
	}
}

func TestEMACrossEMAAgreesWithIndicator(t *testing.T) {
	// Evaluate must recompute from the full window: spot-check the series
	// values straight from the indicator package with the same input.
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19}
	fast, err := indicator.EMA(closes, 3)
	if err != nil {
		t.Fatalf("ema: %v", err)
	}
	if len(fast) != len(closes) {
		t.Fatalf("series must align 1:1 with candles")
	}
}
