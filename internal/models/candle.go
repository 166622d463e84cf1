package models

import "time"

// Candle is one OHLCV bucket. Series are always ordered by OpenTime
// ascending with no gaps; the indicator package treats a gap as a caller bug.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PosSide maps a trade side to the exchange position side ("long"/"short").
func (s Side) PosSide() string {
	if s == SideSell {
		return "short"
	}
	return "long"
}

// Signal is a strategy verdict for one symbol on one closed candle.
type Signal struct {
	Symbol     string
	Side       Side
	Price      float64
	CandleTime time.Time
	Reason     string
}
