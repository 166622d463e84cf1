package strategy

import "emabot/internal/models"

// Engine is the one hook a strategy implements: look at a closed candle
// series and emit a raw signal. Engines are pure with respect to trading
// state; de-duplication lives in the Detector, owned by the scheduler.
type Engine interface {
	Name() string
	Evaluate(symbol string, candles []models.Candle) (models.Signal, error)
}
