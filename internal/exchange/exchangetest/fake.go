// Package exchangetest provides a scriptable in-memory Exchange for tests.
package exchangetest

import (
	"context"
	"fmt"
	"sync"

	"emabot/internal/exchange"
	"emabot/internal/models"
)

// Fake implements exchange.Exchange. Zero value works: candles/price/meta
// must be seeded, orders succeed and get sequential ids. Behavior is
// overridden per call via the error hooks.
type Fake struct {
	mu sync.Mutex

	Candles   map[string][]models.Candle
	Price     map[string]float64
	Meta      map[string]models.Instrument
	Positions []models.OpenPosition

	CandlesErr  error
	PriceErr    error
	MetaErr     error
	LeverageErr error
	MarketErr   error
	// TriggerErr fails trigger orders. TriggerErrKind limits the failure
	// to one kind; left empty, both kinds fail.
	TriggerErrKind exchange.TriggerKind
	TriggerErr     error

	CandlesCalls  int
	LeverageCalls int
	MarketCalls   int
	TriggerCalls  int

	MarketOrders  []MarketOrder
	TriggerOrders []TriggerOrder
	LeverageSet   map[string]int

	nextID int
}

type MarketOrder struct {
	Symbol string
	Side   models.Side
	Size   float64
}

type TriggerOrder struct {
	Symbol    string
	Kind      exchange.TriggerKind
	PosSide   string
	TriggerPx float64
	Size      float64
}

func New() *Fake {
	return &Fake{
		Candles:     make(map[string][]models.Candle),
		Price:       make(map[string]float64),
		Meta:        make(map[string]models.Instrument),
		LeverageSet: make(map[string]int),
	}
}

func (f *Fake) id() string {
	f.nextID++
	return fmt.Sprintf("ord-%d", f.nextID)
}

func (f *Fake) RecentCandles(_ context.Context, symbol, _ string, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CandlesCalls++
	if f.CandlesErr != nil {
		return nil, f.CandlesErr
	}
	c, ok := f.Candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no candles seeded for %s", symbol)
	}
	return c, nil
}

func (f *Fake) MidPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PriceErr != nil {
		return 0, f.PriceErr
	}
	px, ok := f.Price[symbol]
	if !ok {
		return 0, fmt.Errorf("no price seeded for %s", symbol)
	}
	return px, nil
}

func (f *Fake) InstrumentMeta(_ context.Context, symbol string) (models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MetaErr != nil {
		return models.Instrument{}, f.MetaErr
	}
	m, ok := f.Meta[symbol]
	if !ok {
		return models.Instrument{}, fmt.Errorf("no meta seeded for %s", symbol)
	}
	return m, nil
}

func (f *Fake) SetLeverage(_ context.Context, symbol string, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LeverageCalls++
	if f.LeverageErr != nil {
		return f.LeverageErr
	}
	f.LeverageSet[symbol] = leverage
	return nil
}

func (f *Fake) PlaceMarket(_ context.Context, symbol string, side models.Side, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MarketCalls++
	if f.MarketErr != nil {
		return "", f.MarketErr
	}
	f.MarketOrders = append(f.MarketOrders, MarketOrder{Symbol: symbol, Side: side, Size: size})
	return f.id(), nil
}

func (f *Fake) PlaceTrigger(_ context.Context, symbol string, kind exchange.TriggerKind, posSide string, triggerPx, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TriggerCalls++
	if f.TriggerErr != nil && (f.TriggerErrKind == "" || f.TriggerErrKind == kind) {
		return "", f.TriggerErr
	}
	f.TriggerOrders = append(f.TriggerOrders, TriggerOrder{
		Symbol: symbol, Kind: kind, PosSide: posSide, TriggerPx: triggerPx, Size: size,
	})
	return f.id(), nil
}

func (f *Fake) OpenPositions(_ context.Context) ([]models.OpenPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OpenPosition(nil), f.Positions...), nil
}
