package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"emabot/internal/models"
	"emabot/pkg/db"
)

// Entry is one row of the execution audit trail.
type Entry struct {
	Time       time.Time
	Symbol     string
	Side       models.Side
	Status     models.PositionStatus
	EntryPrice float64
	Size       float64
	Leverage   int
	StopLoss   float64
	TakeProfit float64
	OrderID    string
	Manual     bool
	Note       string
}

// Journal records every execution attempt, successful or not. The trading
// loop never fails a cycle on a journal error, it only logs it.
type Journal interface {
	RecordExecution(ctx context.Context, e Entry) error
}

// Nop is used when no journal DSN is configured.
type Nop struct{}

func (Nop) RecordExecution(context.Context, Entry) error { return nil }

const insertExecutionSQL = `
INSERT INTO executions
  (ts, symbol, side, status, entry_price, size, leverage, stop_loss, take_profit, order_id, manual, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PG persists entries to Postgres inside the shared transaction manager.
type PG struct {
	tx db.TxManager
}

func NewPG(tx db.TxManager) *PG {
	return &PG{tx: tx}
}

func (p *PG) RecordExecution(ctx context.Context, e Entry) error {
	err := p.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertExecutionSQL,
			e.Time, e.Symbol, string(e.Side), string(e.Status),
			e.EntryPrice, e.Size, e.Leverage, e.StopLoss, e.TakeProfit,
			e.OrderID, e.Manual, e.Note,
		)
		return err
	})
	return errors.Wrap(err, "record execution")
}
