// Package executor turns a PositionIntent into a protected position:
// leverage, market entry and both protective orders as one guarded
// sequence across multiple network calls.
package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"emabot/internal/exchange"
	"emabot/internal/models"
	"emabot/internal/notify"
)

// Result reports how far the sequence got. Status is empty when the entry
// order itself was not accepted (nothing executed).
type Result struct {
	EntryOrderID string
	SLOrderID    string
	TPOrderID    string
	Status       models.PositionStatus
	Err          error
}

type Executor struct {
	ex exchange.Exchange
	n  notify.Notifier
}

func New(ex exchange.Exchange, n notify.Notifier) *Executor {
	return &Executor{ex: ex, n: n}
}

// Execute runs the three-step sequence. Each step has its own failure
// domain:
//
//  1. set leverage: logged, non-fatal. A mismatch only shifts sizing
//     precision, never the side or direction;
//  2. market entry: the commit point. Failure here means nothing
//     executed and no Position exists. Never resubmitted;
//  3. stop-loss then take-profit: failure of either leaves the entry
//     unprotected, the worst state this system can produce. The position
//     is marked FAILED and surfaced loudly; we do not auto-close because
//     the true fill state is unconfirmed.
func (e *Executor) Execute(ctx context.Context, intent models.PositionIntent) (Result, *models.Position) {
	var res Result

	if err := e.ex.SetLeverage(ctx, intent.Symbol, intent.Leverage); err != nil {
		log.Printf("[EXEC] %s set leverage %dx failed (continuing with current): %v",
			intent.Symbol, intent.Leverage, err)
	}

	entryID, err := e.ex.PlaceMarket(ctx, intent.Symbol, intent.Side, intent.Size)
	if err != nil {
		res.Err = fmt.Errorf("entry order %s %s: %w", intent.Symbol, intent.Side, err)
		return res, nil
	}
	res.EntryOrderID = entryID

	pos := &models.Position{
		Symbol:       intent.Symbol,
		Side:         intent.Side,
		EntryPrice:   intent.EntryPrice,
		Size:         intent.Size,
		Leverage:     intent.Leverage,
		StopLoss:     intent.StopLoss,
		TakeProfit:   intent.TakeProfit,
		Status:       models.StatusOpening,
		EntryOrderID: entryID,
		Updated:      time.Now().UTC(),
	}
	res.Status = models.StatusOpening

	posSide := intent.Side.PosSide()
	slID, slErr := e.ex.PlaceTrigger(ctx, intent.Symbol, exchange.TriggerStopLoss, posSide, intent.StopLoss, intent.Size)
	if slErr == nil {
		res.SLOrderID = slID
		pos.SLOrderID = slID
	}
	tpID, tpErr := e.ex.PlaceTrigger(ctx, intent.Symbol, exchange.TriggerTakeProfit, posSide, intent.TakeProfit, intent.Size)
	if tpErr == nil {
		res.TPOrderID = tpID
		pos.TPOrderID = tpID
	}

	if slErr != nil || tpErr != nil {
		pos.Status = models.StatusFailed
		pos.Updated = time.Now().UTC()
		res.Status = models.StatusFailed
		res.Err = fmt.Errorf("position UNPROTECTED %s %s size=%.8f entry ordId=%s: sl=%v tp=%v",
			intent.Symbol, intent.Side, intent.Size, entryID, slErr, tpErr)
		log.Printf("[EXEC] ALERT %v", res.Err)
		e.n.Sendf("🚨 %s %s entry filled but protection FAILED (sl=%v tp=%v), manual action required",
			intent.Symbol, intent.Side, slErr, tpErr)
		return res, pos
	}

	pos.Status = models.StatusOpen
	pos.Updated = time.Now().UTC()
	res.Status = models.StatusOpen
	return res, pos
}
