package models

import "time"

type PositionStatus string

const (
	StatusOpening PositionStatus = "OPENING"
	StatusOpen    PositionStatus = "OPEN"
	StatusClosed  PositionStatus = "CLOSED"
	StatusFailed  PositionStatus = "FAILED"
)

// PositionIntent is what the sizer hands to the executor: a fully priced
// request for one entry. Consumed once, never stored.
type PositionIntent struct {
	Symbol        string
	Side          Side
	CollateralUSD float64
	Leverage      int
	Size          float64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
}

// Position is the in-memory record for one tracked position.
// Status moves OPENING -> OPEN only after both protective orders are
// confirmed; FAILED means the entry filled but protection did not attach.
type Position struct {
	Symbol       string
	Side         Side
	EntryPrice   float64
	Size         float64
	Leverage     int
	StopLoss     float64
	TakeProfit   float64
	Status       PositionStatus
	EntryOrderID string
	SLOrderID    string
	TPOrderID    string
	Updated      time.Time
}

// OpenPosition is the exchange's view of a live position, used by the
// runner to reconcile its tracked map against reality.
type OpenPosition struct {
	Symbol   string
	PosSide  string // "long"/"short"
	Size     float64
	AvgPrice float64
	Leverage int
	Upl      float64
}

// Instrument carries the per-symbol contract constraints the sizer needs.
type Instrument struct {
	Symbol      string
	LotSz       float64 // size step
	MinSz       float64 // minimum order size
	TickSz      float64 // price step
	MaxLeverage int
	LastPx      float64
}
