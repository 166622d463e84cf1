// Package exchange defines the capability surface the trading core depends
// on and provides the OKX perpetual-swap implementation of it.
package exchange

import (
	"context"

	"emabot/internal/models"
)

type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "stop_loss"
	TriggerTakeProfit TriggerKind = "take_profit"
)

// Exchange is everything the scheduler, sizer and executor need from a
// venue. Read-only calls may be retried by the implementation; mutating
// calls must be attempted exactly once per invocation.
type Exchange interface {
	// RecentCandles returns up to limit closed candles, ascending by time.
	RecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	// MidPrice returns the current mid (or last) price.
	MidPrice(ctx context.Context, symbol string) (float64, error)
	// InstrumentMeta returns the contract constraints for a symbol.
	InstrumentMeta(ctx context.Context, symbol string) (models.Instrument, error)
	// SetLeverage sets cross-margin leverage. Idempotent.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// PlaceMarket submits a market order and returns the order id.
	PlaceMarket(ctx context.Context, symbol string, side models.Side, size float64) (string, error)
	// PlaceTrigger submits one protective trigger order closing posSide
	// at triggerPx and returns the algo order id.
	PlaceTrigger(ctx context.Context, symbol string, kind TriggerKind, posSide string, triggerPx, size float64) (string, error)
	// OpenPositions lists live positions for reconciliation.
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
}
