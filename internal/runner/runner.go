// Package runner drives the trading loop: one evaluation cycle per closed
// candle over every watched symbol, sequentially, with at most one cycle
// in flight at any time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"

	"emabot/internal/exchange"
	"emabot/internal/executor"
	"emabot/internal/indicator"
	"emabot/internal/models"
	"emabot/internal/modules/config"
	"emabot/internal/modules/health/service"
	"emabot/internal/modules/journal"
	"emabot/internal/notify"
	"emabot/internal/sizer"
	"emabot/internal/strategy"
)

const (
	// graceDelay is how long after the candle boundary the cycle fires, so
	// the venue has published the closed candle we are about to fetch.
	graceDelay = 5 * time.Second
	// rsiPeriod is only a log readout, not an entry condition.
	rsiPeriod = 14
)

// ErrBadTrigger marks a manual trigger rejected on its inputs rather than
// on the current trading state.
var ErrBadTrigger = errors.New("invalid manual trigger")

type Runner struct {
	cfg       *config.Config
	overrides map[string]config.SymbolOverride
	ex        exchange.Exchange
	engine    strategy.Engine
	det       *strategy.Detector
	exec      *executor.Executor
	n         notify.Notifier
	health    *service.State
	jrnl      journal.Journal

	mu        sync.Mutex
	positions map[string]*models.Position // symbol -> tracked position
	levCap    map[string]int              // symbol -> effective leverage

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(
	cfg *config.Config,
	overrides map[string]config.SymbolOverride,
	ex exchange.Exchange,
	engine strategy.Engine,
	det *strategy.Detector,
	exec *executor.Executor,
	n notify.Notifier,
	health *service.State,
	jrnl journal.Journal,
) *Runner {
	return &Runner{
		cfg:       cfg,
		overrides: overrides,
		ex:        ex,
		engine:    engine,
		det:       det,
		exec:      exec,
		n:         n,
		health:    health,
		jrnl:      jrnl,
		positions: make(map[string]*models.Position),
		levCap:    make(map[string]int),
		done:      make(chan struct{}),
	}
}

// Start discovers per-symbol leverage caps, reconciles against live
// positions and launches the cycle loop. It returns once the loop is
// running; a failure to reach the exchange at startup is fatal.
func (r *Runner) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	if err := r.discoverLeverage(ctx); err != nil {
		cancel()
		return err
	}
	if err := r.reconcile(ctx); err != nil {
		log.Printf("[RUNNER] startup reconcile failed (continuing): %v", err)
	}

	r.health.SetReady(true)
	r.health.SetCheck("exchange", true)
	r.n.Sendf("🤖 %s loop started: %v every %s", r.engine.Name(), r.cfg.Symbols, r.cfg.Timeframe)
	log.Printf("[RUNNER] started, symbols=%v timeframe=%s", r.cfg.Symbols, r.cfg.Timeframe)

	go r.loop(ctx)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	for {
		wait := time.Until(nextTick(time.Now(), r.cfg.Interval()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			r.RunCycle(ctx)
		}
	}
}

// nextTick returns the first candle boundary after now, plus the grace
// delay.
func nextTick(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval).Add(graceDelay)
}

// RunCycle evaluates every symbol once. If a previous cycle is still in
// flight the call is skipped entirely, never queued: a stale evaluation
// fired late is worse than a missed one.
func (r *Runner) RunCycle(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		log.Printf("[RUNNER] cycle still in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	span := opentracing.StartSpan("cycle")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	if err := r.reconcile(ctx); err != nil {
		log.Printf("[RUNNER] reconcile: %v", err)
	}

	allOK := true
	for _, symbol := range r.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		if err := r.processSymbol(ctx, symbol); err != nil {
			allOK = false
			log.Printf("[CYCLE] %s: %v", symbol, err)
		}
	}
	r.health.SetCheck("exchange", allOK)
	r.health.SetCheck("cycle", true)
	r.health.MarkCycle()
}

// TriggerManual opens a position in the given direction outside the
// schedule. Sizing, leverage caps and protective orders are the same as
// for a detected signal; the detector is untouched because no crossover
// happened. Rejected while a cycle is running or a position exists.
func (r *Runner) TriggerManual(ctx context.Context, symbol string, side models.Side) error {
	if side != models.SideBuy && side != models.SideSell {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrBadTrigger, side)
	}
	watched := false
	for _, s := range r.cfg.Symbols {
		if s == symbol {
			watched = true
			break
		}
	}
	if !watched {
		return fmt.Errorf("%w: %s is not a watched symbol", ErrBadTrigger, symbol)
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("cycle already in flight")
	}
	defer r.inFlight.Store(false)

	span := opentracing.StartSpan("manual_trade")
	span.SetTag("symbol", symbol)
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	if blocked, why := r.entryBlocked(symbol); blocked {
		return fmt.Errorf("%s: %s", symbol, why)
	}

	inst, err := r.ex.InstrumentMeta(ctx, symbol)
	if err != nil {
		return fmt.Errorf("instrument meta: %w", err)
	}
	price, err := r.ex.MidPrice(ctx, symbol)
	if err != nil || price <= 0 {
		// No live mid; the instrument meta carries the venue's last trade.
		price = inst.LastPx
	}
	if price <= 0 {
		return fmt.Errorf("no price available for %s", symbol)
	}
	candles, err := r.ex.RecentCandles(ctx, symbol, r.cfg.Timeframe, r.cfg.LookbackCandles)
	if err != nil {
		return fmt.Errorf("candles: %w", err)
	}

	sl, tp, err := r.protectionPrices(side, price, inst, candles)
	if err != nil {
		return fmt.Errorf("protection prices: %w", err)
	}
	collateral, leverage := r.sizingParams(symbol)
	intent, err := sizer.BuildIntent(symbol, side, collateral, leverage, price, inst, sl, tp)
	if err != nil {
		return fmt.Errorf("build intent: %w", err)
	}

	log.Printf("[MANUAL] %s %s @ %.4f", symbol, side, price)
	res, pos := r.exec.Execute(ctx, intent)
	if pos == nil {
		return fmt.Errorf("entry rejected: %w", res.Err)
	}

	r.mu.Lock()
	r.positions[symbol] = pos
	r.mu.Unlock()
	r.recordExecution(ctx, pos, true, "manual trigger")

	if pos.Status == models.StatusFailed {
		r.health.SetCheck("protection", false)
		return res.Err
	}
	return nil
}

func (r *Runner) processSymbol(ctx context.Context, symbol string) error {
	candles, err := r.ex.RecentCandles(ctx, symbol, r.cfg.Timeframe, r.cfg.LookbackCandles)
	if err != nil {
		return fmt.Errorf("candles: %w", err)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	fast, ferr := indicator.EMA(closes, r.cfg.EMAFast)
	slow, serr := indicator.EMA(closes, r.cfg.EMASlow)
	if ferr == nil && serr == nil {
		r.health.SetDetail("trend:"+symbol, indicator.Trend(fast, slow))
	}

	sig, err := r.engine.Evaluate(symbol, candles)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if sig.Side == models.SideNone {
		return nil
	}
	if !r.det.Allow(sig) {
		log.Printf("[SIGNAL] %s %s suppressed (%s)", symbol, sig.Side, r.det.Dump(symbol))
		return nil
	}

	if blocked, why := r.entryBlocked(symbol); blocked {
		log.Printf("[SIGNAL] %s %s ignored: %s", symbol, sig.Side, why)
		return nil
	}

	rsi := math.NaN()
	if series, rerr := indicator.RSI(closes, rsiPeriod); rerr == nil {
		rsi = indicator.Last(series)
	}
	log.Printf("[SIGNAL] %s %s @ %.4f rsi=%.1f (%s)", symbol, sig.Side, sig.Price, rsi, sig.Reason)

	inst, err := r.ex.InstrumentMeta(ctx, symbol)
	if err != nil {
		return fmt.Errorf("instrument meta: %w", err)
	}
	price, err := r.ex.MidPrice(ctx, symbol)
	if err != nil || price <= 0 {
		// A signal exists but the live price does not: use the close
		// the signal was computed on.
		price = sig.Price
	}

	sl, tp, err := r.protectionPrices(sig.Side, price, inst, candles)
	if err != nil {
		return fmt.Errorf("protection prices: %w", err)
	}

	collateral, leverage := r.sizingParams(symbol)
	intent, err := sizer.BuildIntent(symbol, sig.Side, collateral, leverage, price, inst, sl, tp)
	if err != nil {
		if errors.Is(err, sizer.ErrSizeBelowMinimum) {
			// Not committed: the same signal re-reports until the
			// candle advances, in case collateral or price move.
			r.n.Sendf("⚠️ %s %s signal skipped: %v", symbol, sig.Side, err)
			return nil
		}
		return fmt.Errorf("build intent: %w", err)
	}

	res, pos := r.exec.Execute(ctx, intent)
	if pos == nil {
		// Entry was not accepted, nothing executed. The detector state
		// is untouched so the signal can be retried next cycle.
		r.n.Sendf("❗️ %s %s entry rejected: %v", symbol, sig.Side, res.Err)
		return res.Err
	}

	// The entry is live on the venue: commit the signal now so a restart
	// or later failure never re-fires this crossover.
	r.det.Commit(sig, indicator.Last(fast), indicator.Last(slow))

	r.mu.Lock()
	r.positions[symbol] = pos
	r.mu.Unlock()

	r.recordExecution(ctx, pos, false, sig.Reason)

	switch pos.Status {
	case models.StatusOpen:
		r.n.Sendf("✅ %s OPEN %s @ %.4f | SL=%.4f TP=%.4f lev=%dx size=%.6f (ordId=%s)",
			symbol, pos.Side, pos.EntryPrice, pos.StopLoss, pos.TakeProfit, pos.Leverage, pos.Size, pos.EntryOrderID)
	case models.StatusFailed:
		r.health.SetCheck("protection", false)
		return res.Err
	}
	return nil
}

// entryBlocked enforces one tracked position per symbol. FAILED blocks
// too: an unprotected position needs an operator, not more exposure.
func (r *Runner) entryBlocked(symbol string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[symbol]
	if !ok {
		return false, ""
	}
	switch pos.Status {
	case models.StatusOpening, models.StatusOpen:
		return true, fmt.Sprintf("position already %s", pos.Status)
	case models.StatusFailed:
		return true, "previous position FAILED, manual action required"
	}
	return false, ""
}

// sizingParams resolves collateral and effective leverage for a symbol,
// applying per-symbol overrides and the exchange's own cap.
func (r *Runner) sizingParams(symbol string) (collateral float64, leverage int) {
	collateral = r.cfg.CollateralUSD
	leverage = r.cfg.Leverage

	if ov, ok := r.overrides[symbol]; ok {
		if ov.CollateralUSD > 0 {
			collateral = ov.CollateralUSD
		}
		if ov.MaxLeverage > 0 && leverage > ov.MaxLeverage {
			leverage = ov.MaxLeverage
		}
	}

	r.mu.Lock()
	venueCap, ok := r.levCap[symbol]
	r.mu.Unlock()
	if ok && leverage > venueCap {
		leverage = venueCap
	}
	return collateral, leverage
}

// discoverLeverage asks the venue for each symbol's maximum leverage. A
// symbol the venue does not answer for gets the configured fallback.
func (r *Runner) discoverLeverage(ctx context.Context) error {
	caps := make(map[string]int, len(r.cfg.Symbols))

	var lastErr error
	resolved := 0
	for _, symbol := range r.cfg.Symbols {
		inst, err := r.ex.InstrumentMeta(ctx, symbol)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", symbol, err)
			caps[symbol] = r.cfg.MaxLeverageFallback
			log.Printf("[RUNNER] %s max leverage unknown, using fallback %dx: %v",
				symbol, r.cfg.MaxLeverageFallback, err)
			continue
		}
		resolved++
		if inst.MaxLeverage > 0 {
			caps[symbol] = inst.MaxLeverage
		} else {
			caps[symbol] = r.cfg.MaxLeverageFallback
		}
		log.Printf("[RUNNER] %s max leverage %dx", symbol, caps[symbol])
	}

	// Fail startup only when no symbol could be resolved at all.
	if lastErr != nil && resolved == 0 {
		return lastErr
	}

	r.mu.Lock()
	for s, c := range caps {
		r.levCap[s] = c
	}
	r.mu.Unlock()
	return nil
}

// reconcile syncs tracked positions with the venue. A tracked OPEN
// position the venue no longer reports was closed by its stop or target;
// it is marked CLOSED and the symbol is free for new entries. FAILED
// positions are never auto-cleared.
func (r *Runner) reconcile(ctx context.Context) error {
	live, err := r.ex.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}

	onVenue := make(map[string]bool, len(live))
	for _, p := range live {
		onVenue[p.Symbol] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for symbol, pos := range r.positions {
		if pos.Status != models.StatusOpen || onVenue[symbol] {
			continue
		}
		pos.Status = models.StatusClosed
		pos.Updated = time.Now().UTC()
		log.Printf("[RECONCILE] %s %s closed on venue (SL/TP or external)", symbol, pos.Side)
		r.n.Sendf("🏁 %s %s position closed on venue", symbol, pos.Side)
	}
	return nil
}

// Positions returns a snapshot of the tracked positions.
func (r *Runner) Positions() []models.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Position, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, *p)
	}
	return out
}

func (r *Runner) recordExecution(ctx context.Context, pos *models.Position, manual bool, note string) {
	err := r.jrnl.RecordExecution(ctx, journal.Entry{
		Time:       pos.Updated,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Status:     pos.Status,
		EntryPrice: pos.EntryPrice,
		Size:       pos.Size,
		Leverage:   pos.Leverage,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		OrderID:    pos.EntryOrderID,
		Manual:     manual,
		Note:       note,
	})
	if err != nil {
		log.Printf("[JOURNAL] %s: %v", pos.Symbol, err)
	}
}
