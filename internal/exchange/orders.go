package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"emabot/internal/models"
)

type orderAck struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		OrdID  string `json:"ordId"`
		AlgoID string `json:"algoId"`
		SCode  string `json:"sCode"`
		SMsg   string `json:"sMsg"`
	} `json:"data"`
}

func (a *orderAck) check(what string) error {
	if len(a.Data) > 0 && a.Data[0].SCode != "" && a.Data[0].SCode != "0" {
		return fmt.Errorf("%s rejected: sCode=%s sMsg=%s", what, a.Data[0].SCode, a.Data[0].SMsg)
	}
	if a.Code != "0" {
		return fmt.Errorf("%s error: code=%s msg=%s", what, a.Code, a.Msg)
	}
	if len(a.Data) == 0 {
		return fmt.Errorf("%s: empty response", what)
	}
	return nil
}

// SetLeverage sets cross-margin leverage for a symbol. Idempotent on the
// exchange side; callers treat failure as non-fatal.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	body, err := sonic.Marshal(map[string]string{
		"instId":  symbol,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": "cross",
	})
	if err != nil {
		return fmt.Errorf("set leverage marshal: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v5/account/set-leverage", body)
	if err != nil {
		return err
	}
	var ack orderAck
	if err := c.do(req, &ack); err != nil {
		return fmt.Errorf("set leverage %s: %w", symbol, err)
	}
	if ack.Code != "0" {
		return fmt.Errorf("set leverage %s: code=%s msg=%s", symbol, ack.Code, ack.Msg)
	}
	return nil
}

// PlaceMarket submits one cross-margin market order. Never retried: a
// timeout here is failure-pending, not failure, and resubmitting without
// an idempotency key risks a double fill.
func (c *Client) PlaceMarket(ctx context.Context, symbol string, side models.Side, size float64) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("place market %s: size %.8f must be > 0", symbol, size)
	}
	okxSide := "buy"
	if side == models.SideSell {
		okxSide = "sell"
	}

	body, err := sonic.Marshal(map[string]string{
		"instId":  symbol,
		"tdMode":  "cross",
		"side":    okxSide,
		"posSide": side.PosSide(),
		"ordType": "market",
		"sz":      formatSize(size),
	})
	if err != nil {
		return "", fmt.Errorf("place market marshal: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v5/trade/order", body)
	if err != nil {
		return "", err
	}
	var ack orderAck
	if err := c.do(req, &ack); err != nil {
		return "", fmt.Errorf("place market %s: %w", symbol, err)
	}
	if err := ack.check("place market " + symbol); err != nil {
		return "", err
	}
	if ack.Data[0].OrdID == "" {
		return "", fmt.Errorf("place market %s: empty ordId", symbol)
	}
	return ack.Data[0].OrdID, nil
}

// PlaceTrigger submits one conditional close order (stop-loss or
// take-profit) against an open posSide position.
func (c *Client) PlaceTrigger(ctx context.Context, symbol string, kind TriggerKind, posSide string, triggerPx, size float64) (string, error) {
	var side string
	switch posSide {
	case "long":
		side = "sell"
	case "short":
		side = "buy"
	default:
		return "", fmt.Errorf("place trigger: unsupported posSide=%q", posSide)
	}
	if size <= 0 {
		return "", fmt.Errorf("place trigger %s: size %.8f must be > 0", symbol, size)
	}
	if triggerPx <= 0 {
		return "", fmt.Errorf("place trigger %s: triggerPx %.8f must be > 0", symbol, triggerPx)
	}

	params := map[string]string{
		"instId":  symbol,
		"tdMode":  "cross",
		"side":    side,
		"posSide": posSide,
		"ordType": "conditional",
		"sz":      formatSize(size),
	}
	switch kind {
	case TriggerTakeProfit:
		params["tpTriggerPx"] = formatPrice(triggerPx)
		params["tpOrdPx"] = "-1" // market execution on trigger
		params["tpTriggerPxType"] = "last"
	case TriggerStopLoss:
		params["slTriggerPx"] = formatPrice(triggerPx)
		params["slOrdPx"] = "-1"
		params["slTriggerPxType"] = "last"
	default:
		return "", fmt.Errorf("place trigger: unknown kind %q", kind)
	}

	body, err := sonic.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("place trigger marshal: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v5/trade/order-algo", body)
	if err != nil {
		return "", err
	}
	var ack orderAck
	if err := c.do(req, &ack); err != nil {
		return "", fmt.Errorf("place trigger %s %s: %w", symbol, kind, err)
	}
	if err := ack.check(fmt.Sprintf("place trigger %s %s", symbol, kind)); err != nil {
		return "", err
	}
	if ack.Data[0].AlgoID == "" {
		return "", fmt.Errorf("place trigger %s %s: empty algoId", symbol, kind)
	}
	return ack.Data[0].AlgoID, nil
}
