package strategy

import (
	"fmt"
	"sync"
	"time"

	"emabot/internal/models"
)

// crossoverState is the per-symbol memory the detector keeps between
// cycles: the EMA pair of the last committed signal and when it fired.
type crossoverState struct {
	priorFast      float64
	priorSlow      float64
	lastSide       models.Side
	lastCandleTime time.Time
}

// Detector de-duplicates raw strategy signals. It is created per scheduler
// instance and its state map is never shared as a package global, so
// multiple schedulers (tests included) do not interfere.
//
// Detection and commit are two explicit steps: Allow answers "is this a
// fresh signal", Commit records it as acted upon. A downstream failure
// leaves the state untouched and the same signal passes again next cycle.
type Detector struct {
	mu     sync.Mutex
	states map[string]*crossoverState
}

func NewDetector() *Detector {
	return &Detector{states: make(map[string]*crossoverState)}
}

// Allow reports whether sig should be acted upon. A signal is fresh only
// when its candle is strictly newer than the last committed one and its
// side differs from the last committed side.
func (d *Detector) Allow(sig models.Signal) bool {
	if sig.Side == models.SideNone {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[sig.Symbol]
	if !ok {
		return true
	}
	if !sig.CandleTime.After(st.lastCandleTime) {
		return false
	}
	if sig.Side == st.lastSide {
		// Same direction twice without an opposite cross in between.
		return false
	}
	return true
}

// Commit records a signal that was actually acted upon, together with the
// EMA pair it was based on.
func (d *Detector) Commit(sig models.Signal, fastEMA, slowEMA float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[sig.Symbol]
	if !ok {
		st = &crossoverState{}
		d.states[sig.Symbol] = st
	}
	st.priorFast = fastEMA
	st.priorSlow = slowEMA
	st.lastSide = sig.Side
	st.lastCandleTime = sig.CandleTime
}

// Reset forgets a symbol's state, re-arming both directions.
func (d *Detector) Reset(symbol string) {
	d.mu.Lock()
	delete(d.states, symbol)
	d.mu.Unlock()
}

// Dump renders a symbol's state for logs.
func (d *Detector) Dump(symbol string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[symbol]
	if !ok {
		return "no signal yet"
	}
	return fmt.Sprintf("last=%s @ %s fast=%.4f slow=%.4f",
		st.lastSide, st.lastCandleTime.Format(time.RFC3339), st.priorFast, st.priorSlow)
}
