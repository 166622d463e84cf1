// Package sizer turns configured USD collateral into an exchange-valid
// contract quantity.
package sizer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"emabot/internal/models"
)

// ErrSizeBelowMinimum means the floored size is under the exchange minimum.
// This is a configuration problem (collateral or leverage too small), not a
// transient fault, so callers report it and never retry.
var ErrSizeBelowMinimum = errors.New("size below exchange minimum")

// ContractSize computes (collateral * leverage) / price floored to the
// instrument's lot step. Rounding never goes up past the computed value.
func ContractSize(collateralUSD float64, leverage int, price float64, inst models.Instrument) (float64, error) {
	if collateralUSD <= 0 {
		return 0, fmt.Errorf("collateral %.4f must be > 0", collateralUSD)
	}
	if leverage <= 0 {
		return 0, fmt.Errorf("leverage %d must be > 0", leverage)
	}
	if price <= 0 {
		return 0, fmt.Errorf("price %.8f must be > 0", price)
	}
	if inst.LotSz <= 0 {
		return 0, fmt.Errorf("instrument %s: lot size %.8f must be > 0", inst.Symbol, inst.LotSz)
	}

	// Decimal arithmetic so the floor lands on an exact lot multiple and
	// float drift never rounds an order up.
	notional := decimal.NewFromFloat(collateralUSD).Mul(decimal.NewFromInt(int64(leverage)))
	raw := notional.Div(decimal.NewFromFloat(price))
	lot := decimal.NewFromFloat(inst.LotSz)
	steps := raw.Div(lot).Floor()
	size := steps.Mul(lot)

	sz, _ := size.Float64()
	if sz < inst.MinSz {
		return 0, fmt.Errorf("%s: %.8f < min %.8f (collateral=%.2f lev=%d price=%.4f): %w",
			inst.Symbol, sz, inst.MinSz, collateralUSD, leverage, price, ErrSizeBelowMinimum)
	}
	return sz, nil
}

// BuildIntent assembles the one-shot request the executor consumes.
func BuildIntent(symbol string, side models.Side, collateralUSD float64, leverage int,
	price float64, inst models.Instrument, stopLoss, takeProfit float64) (models.PositionIntent, error) {

	size, err := ContractSize(collateralUSD, leverage, price, inst)
	if err != nil {
		return models.PositionIntent{}, err
	}
	return models.PositionIntent{
		Symbol:        symbol,
		Side:          side,
		CollateralUSD: collateralUSD,
		Leverage:      leverage,
		Size:          size,
		EntryPrice:    price,
		StopLoss:      stopLoss,
		TakeProfit:    takeProfit,
	}, nil
}
