package runner

import (
	"fmt"
	"math"

	"emabot/internal/indicator"
	"emabot/internal/models"
)

// protectionPrices derives the stop-loss and take-profit trigger prices
// for an entry. In "percent" mode both are fixed fractions of the entry;
// in "atr" mode they are ATR multiples, so volatile markets get wider
// stops. Prices are rounded to the tick in the safe direction: the stop
// never moves further from the entry, the target never moves closer.
func (r *Runner) protectionPrices(side models.Side, entry float64, inst models.Instrument, candles []models.Candle) (sl, tp float64, err error) {
	if entry <= 0 {
		return 0, 0, fmt.Errorf("entry price %.8f", entry)
	}

	var slDist, tpDist float64
	switch r.cfg.SLMode {
	case "atr":
		highs := make([]float64, len(candles))
		lows := make([]float64, len(candles))
		closes := make([]float64, len(candles))
		for i, c := range candles {
			highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
		}
		series, aerr := indicator.ATR(highs, lows, closes, r.cfg.ATRPeriod)
		if aerr != nil {
			return 0, 0, fmt.Errorf("atr: %w", aerr)
		}
		atr := indicator.Last(series)
		if atr <= 0 || math.IsNaN(atr) {
			return 0, 0, fmt.Errorf("atr not available for %s", inst.Symbol)
		}
		slDist = r.cfg.ATRMultSL * atr
		tpDist = r.cfg.ATRMultTP * atr
	default: // percent
		slDist = entry * r.cfg.StopLossPct / 100
		tpDist = entry * r.cfg.TakeProfitPct / 100
	}

	if side == models.SideBuy {
		sl = roundDownToTick(entry-slDist, inst.TickSz)
		tp = roundUpToTick(entry+tpDist, inst.TickSz)
	} else {
		sl = roundUpToTick(entry+slDist, inst.TickSz)
		tp = roundDownToTick(entry-tpDist, inst.TickSz)
	}

	if sl <= 0 || tp <= 0 {
		return 0, 0, fmt.Errorf("protection out of range: sl=%.8f tp=%.8f entry=%.8f", sl, tp, entry)
	}
	return sl, tp, nil
}

func roundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Floor(px/tick+1e-12) * tick
}

func roundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Ceil(px/tick-1e-12) * tick
}
