package executor

import (
	"context"
	"errors"
	"testing"

	"emabot/internal/exchange"
	"emabot/internal/exchange/exchangetest"
	"emabot/internal/models"
	"emabot/internal/notify"
)

func intent() models.PositionIntent {
	return models.PositionIntent{
		Symbol:        "BTC-USDT-SWAP",
		Side:          models.SideBuy,
		CollateralUSD: 25,
		Leverage:      40,
		Size:          0.02,
		EntryPrice:    50000,
		StopLoss:      35000,
		TakeProfit:    100000,
	}
}

func TestExecuteHappyPath(t *testing.T) {
	fake := exchangetest.New()
	e := New(fake, notify.NewStdout())

	res, pos := e.Execute(context.Background(), intent())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if pos == nil || pos.Status != models.StatusOpen {
		t.Fatalf("position should be OPEN, got %+v", pos)
	}
	if res.EntryOrderID == "" || res.SLOrderID == "" || res.TPOrderID == "" {
		t.Fatalf("all three order ids expected, got %+v", res)
	}
	if fake.MarketCalls != 1 {
		t.Fatalf("exactly one market order expected, got %d", fake.MarketCalls)
	}
	if len(fake.TriggerOrders) != 2 {
		t.Fatalf("two trigger orders expected, got %d", len(fake.TriggerOrders))
	}
	// Both protective orders close the long.
	for _, o := range fake.TriggerOrders {
		if o.PosSide != "long" {
			t.Fatalf("trigger posSide = %q, want long", o.PosSide)
		}
		if o.Size != 0.02 {
			t.Fatalf("trigger size = %v, want 0.02", o.Size)
		}
	}
}

func TestExecuteEntryFailureCreatesNoPosition(t *testing.T) {
	fake := exchangetest.New()
	fake.MarketErr = errors.New("insufficient margin")
	e := New(fake, notify.NewStdout())

	res, pos := e.Execute(context.Background(), intent())
	if pos != nil {
		t.Fatalf("no position must exist when the entry fails, got %+v", pos)
	}
	if res.Err == nil {
		t.Fatalf("entry failure must be reported")
	}
	if res.Status != "" {
		t.Fatalf("status should be empty (nothing executed), got %q", res.Status)
	}
	if fake.TriggerCalls != 0 {
		t.Fatalf("no protective orders may be placed without an entry")
	}
}

func TestExecuteProtectionFailureMarksFailed(t *testing.T) {
	fake := exchangetest.New()
	fake.TriggerErrKind = exchange.TriggerStopLoss
	fake.TriggerErr = errors.New("algo rejected")
	e := New(fake, notify.NewStdout())

	res, pos := e.Execute(context.Background(), intent())
	if pos == nil || pos.Status != models.StatusFailed {
		t.Fatalf("position must be FAILED when protection does not attach, got %+v", pos)
	}
	if res.Err == nil {
		t.Fatalf("partial execution must surface an error")
	}
	// The entry must not be resubmitted and the position must not be
	// auto-closed: exactly one market order, ever.
	if fake.MarketCalls != 1 {
		t.Fatalf("entry resubmitted or auto-closed: %d market calls", fake.MarketCalls)
	}
	if pos.EntryOrderID == "" {
		t.Fatalf("entry order id must be retained for the operator")
	}
	// TP still attempted even though SL failed.
	if len(fake.TriggerOrders) != 1 || fake.TriggerOrders[0].Kind != exchange.TriggerTakeProfit {
		t.Fatalf("take-profit should still be attempted, got %+v", fake.TriggerOrders)
	}
}

func TestExecuteLeverageFailureIsNonFatal(t *testing.T) {
	fake := exchangetest.New()
	fake.LeverageErr = errors.New("rate limited")
	e := New(fake, notify.NewStdout())

	res, pos := e.Execute(context.Background(), intent())
	if res.Err != nil {
		t.Fatalf("leverage failure must not abort the sequence: %v", res.Err)
	}
	if pos == nil || pos.Status != models.StatusOpen {
		t.Fatalf("position should still open, got %+v", pos)
	}
}

func TestExecuteShortUsesShortPosSide(t *testing.T) {
	fake := exchangetest.New()
	e := New(fake, notify.NewStdout())

	in := intent()
	in.Side = models.SideSell
	in.StopLoss = 60000
	in.TakeProfit = 25000

	_, pos := e.Execute(context.Background(), in)
	if pos == nil || pos.Status != models.StatusOpen {
		t.Fatalf("short should open, got %+v", pos)
	}
	for _, o := range fake.TriggerOrders {
		if o.PosSide != "short" {
			t.Fatalf("trigger posSide = %q, want short", o.PosSide)
		}
	}
}
