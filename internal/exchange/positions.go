package exchange

import (
	"context"
	"fmt"
	"net/http"

	"emabot/internal/models"
)

// OpenPositions lists live SWAP positions for reconciliation against the
// scheduler's tracked map.
func (c *Client) OpenPositions(ctx context.Context) ([]models.OpenPosition, error) {
	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			InstID  string `json:"instId"`
			PosSide string `json:"posSide"`
			Pos     string `json:"pos"`
			AvgPx   string `json:"avgPx"`
			Lever   string `json:"lever"`
			Upl     string `json:"upl"`
		} `json:"data"`
	}
	err := withRetry(ctx, "positions", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/v5/account/positions?instType=SWAP", nil)
		if err != nil {
			return err
		}
		return c.do(req, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if payload.Code != "0" {
		return nil, fmt.Errorf("positions: okx error %s: %s", payload.Code, payload.Msg)
	}

	out := make([]models.OpenPosition, 0, len(payload.Data))
	for _, d := range payload.Data {
		sz := parseFloat(d.Pos)
		if sz == 0 {
			continue
		}
		out = append(out, models.OpenPosition{
			Symbol:   d.InstID,
			PosSide:  d.PosSide,
			Size:     sz,
			AvgPrice: parseFloat(d.AvgPx),
			Leverage: int(parseFloat(d.Lever)),
			Upl:      parseFloat(d.Upl),
		})
	}
	return out, nil
}
