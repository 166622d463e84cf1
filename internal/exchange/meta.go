package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"emabot/internal/models"
)

// InstrumentMeta returns the size/price constraints and maximum leverage
// for one SWAP instrument.
func (c *Client) InstrumentMeta(ctx context.Context, symbol string) (models.Instrument, error) {
	path := "/api/v5/public/instruments?instType=SWAP&instId=" + url.QueryEscape(symbol)

	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			InstID string `json:"instId"`
			State  string `json:"state"`
			LotSz  string `json:"lotSz"`
			MinSz  string `json:"minSz"`
			TickSz string `json:"tickSz"`
			Lever  string `json:"lever"`
		} `json:"data"`
	}
	err := withRetry(ctx, "instrument "+symbol, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return c.do(req, &payload)
	})
	if err != nil {
		return models.Instrument{}, fmt.Errorf("instrument %s: %w", symbol, err)
	}
	if payload.Code != "0" {
		return models.Instrument{}, fmt.Errorf("instrument %s: okx error %s: %s", symbol, payload.Code, payload.Msg)
	}
	if len(payload.Data) == 0 {
		return models.Instrument{}, fmt.Errorf("instrument %s not found", symbol)
	}

	d := payload.Data[0]
	if d.State != "" && d.State != "live" {
		return models.Instrument{}, fmt.Errorf("instrument %s not live: state=%s", symbol, d.State)
	}

	lotSz := parseFloat(d.LotSz)
	minSz := parseFloat(d.MinSz)
	tickSz := parseFloat(d.TickSz)
	if lotSz <= 0 || minSz <= 0 || tickSz <= 0 {
		return models.Instrument{}, fmt.Errorf("instrument %s: bad meta lotSz=%q minSz=%q tickSz=%q",
			symbol, d.LotSz, d.MinSz, d.TickSz)
	}

	inst := models.Instrument{
		Symbol:      d.InstID,
		LotSz:       lotSz,
		MinSz:       minSz,
		TickSz:      tickSz,
		MaxLeverage: int(parseFloat(d.Lever)),
		LastPx:      c.cachedPrice(symbol),
	}
	return inst, nil
}
