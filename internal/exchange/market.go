package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MidPrice returns (bid+ask)/2 from the ticker, falling back to the last
// trade. The WebSocket cache is preferred when warm; it is refreshed by
// StreamTickers and is at most one tick old.
func (c *Client) MidPrice(ctx context.Context, symbol string) (float64, error) {
	if px := c.cachedPrice(symbol); px > 0 {
		return px, nil
	}

	path := "/api/v5/market/ticker?instId=" + url.QueryEscape(symbol)
	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			Last  string `json:"last"`
			BidPx string `json:"bidPx"`
			AskPx string `json:"askPx"`
		} `json:"data"`
	}
	err := withRetry(ctx, "ticker "+symbol, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return c.do(req, &payload)
	})
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %w", symbol, err)
	}
	if payload.Code != "0" || len(payload.Data) == 0 {
		return 0, fmt.Errorf("ticker %s: okx error %s: %s", symbol, payload.Code, payload.Msg)
	}

	d := payload.Data[0]
	bid, ask := parseFloat(d.BidPx), parseFloat(d.AskPx)
	px := parseFloat(d.Last)
	if bid > 0 && ask > 0 {
		px = (bid + ask) / 2
	}
	if px <= 0 {
		return 0, fmt.Errorf("ticker %s: no usable price", symbol)
	}
	c.setPrice(symbol, px)
	return px, nil
}
