package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"emabot/internal/models"
)

// RecentCandles fetches up to limit closed candles for a symbol/timeframe,
// returned ascending by open time. Unconfirmed (still forming) candles are
// dropped so the indicator never sees partial data.
func (c *Client) RecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		url.QueryEscape(symbol), url.QueryEscape(timeframe), limit)

	var payload struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	err := withRetry(ctx, "candles "+symbol, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return c.do(req, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if payload.Code != "0" {
		return nil, fmt.Errorf("candles %s: okx error %s: %s", symbol, payload.Code, payload.Msg)
	}

	// Rows arrive newest first: [ts,o,h,l,c,vol,volCcy,volCcyQuote,confirm].
	out := make([]models.Candle, 0, len(payload.Data))
	for i := len(payload.Data) - 1; i >= 0; i-- {
		row := payload.Data[i]
		if len(row) < 5 {
			continue
		}
		if len(row) >= 9 && row[8] != "1" {
			continue
		}
		ms := int64(parseFloat(row[0]))
		cndl := models.Candle{
			OpenTime: time.UnixMilli(ms).UTC(),
			Open:     parseFloat(row[1]),
			High:     parseFloat(row[2]),
			Low:      parseFloat(row[3]),
			Close:    parseFloat(row[4]),
		}
		if len(row) > 5 {
			cndl.Volume = parseFloat(row[5])
		}
		out = append(out, cndl)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("candles %s: no closed candles returned", symbol)
	}
	return out, nil
}
