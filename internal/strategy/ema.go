package strategy

import (
	"fmt"
	"math"

	"emabot/internal/indicator"
	"emabot/internal/models"
)

type EMACrossConfig struct {
	Fast int // e.g. 9
	Slow int // e.g. 20
	// RequireConfirmation demands the crossover held on the previous
	// candle pair too before signalling.
	RequireConfirmation bool
}

// EMACross signals BUY when the fast EMA crosses above the slow EMA and
// SELL when it crosses below, evaluated on the last two closed candles.
type EMACross struct {
	cfg EMACrossConfig
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if cfg.Fast <= 0 || cfg.Slow <= 0 {
		return nil, fmt.Errorf("ema cross: periods must be positive (fast=%d slow=%d)", cfg.Fast, cfg.Slow)
	}
	if cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("ema cross: fast period %d must be < slow period %d", cfg.Fast, cfg.Slow)
	}
	return &EMACross{cfg: cfg}, nil
}

func (e *EMACross) Name() string {
	return fmt.Sprintf("EMA%d/%d", e.cfg.Fast, e.cfg.Slow)
}

func (e *EMACross) Evaluate(symbol string, candles []models.Candle) (models.Signal, error) {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast, err := indicator.EMA(closes, e.cfg.Fast)
	if err != nil {
		return models.Signal{}, err
	}
	slow, err := indicator.EMA(closes, e.cfg.Slow)
	if err != nil {
		return models.Signal{}, err
	}

	side := crossSide(fast, slow, 0)
	if side != models.SideNone && e.cfg.RequireConfirmation {
		if crossSide(fast, slow, 1) != side {
			side = models.SideNone
		}
	}

	last := candles[len(candles)-1]
	sig := models.Signal{
		Symbol:     symbol,
		Side:       side,
		Price:      last.Close,
		CandleTime: last.OpenTime,
	}
	if side != models.SideNone {
		sig.Reason = fmt.Sprintf("%s cross fast=%.4f slow=%.4f trend=%s",
			e.Name(), indicator.Last(fast), indicator.Last(slow), indicator.Trend(fast, slow))
	}
	return sig, nil
}

// crossSide inspects the (current, previous) EMA pair offset candles back
// from the end of the series.
func crossSide(fast, slow []float64, offset int) models.Side {
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	cur := n - 1 - offset
	prev := cur - 1
	if prev < 0 {
		return models.SideNone
	}

	pf, ps := fast[prev], slow[prev]
	cf, cs := fast[cur], slow[cur]
	if math.IsNaN(pf) || math.IsNaN(ps) || math.IsNaN(cf) || math.IsNaN(cs) {
		return models.SideNone
	}

	prevDiff := pf - ps
	currDiff := cf - cs
	switch {
	case prevDiff <= 0 && currDiff > 0:
		return models.SideBuy
	case prevDiff >= 0 && currDiff < 0:
		return models.SideSell
	}
	return models.SideNone
}
