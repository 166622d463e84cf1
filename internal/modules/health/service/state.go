package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// State aggregates liveness info written by the trading loop and read by
// the HTTP handlers. Check names are free-form ("exchange", "cycle", ...).
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	mu         sync.RWMutex
	checks     map[string]bool
	details    map[string]string
	checkCount uint64
	lastCheck  time.Time
}

func NewState() *State {
	s := &State{
		startedAt: time.Now(),
		checks:    map[string]bool{},
		details:   map[string]string{},
	}
	s.ready.Store(false)
	return s
}

// SetReady flips once the trading loop has started; until then /health
// reports 503 so orchestrators do not route to a half-started bot.
func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetCheck(name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = ok
	s.lastCheck = time.Now()
}

// MarkCycle bumps the cumulative cycle counter. Two otherwise identical
// health payloads a candle apart differ by it.
func (s *State) MarkCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCount++
	s.lastCheck = time.Now()
}

func (s *State) CheckCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkCount
}

// SetDetail records a free-form readout (market trend, last signal) shown
// in the health payload. Details never affect the status code.
func (s *State) SetDetail(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[name] = value
}

func (s *State) Details() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.details))
	for k, v := range s.details {
		out[k] = v
	}
	return out
}

// Checks returns a copy of the check map and the time of the last update.
func (s *State) Checks() (map[string]bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.checks))
	for k, v := range s.checks {
		out[k] = v
	}
	return out, s.lastCheck
}

// Healthy is true when the loop is running and no check is failing.
func (s *State) Healthy() bool {
	if !s.ready.Load() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ok := range s.checks {
		if !ok {
			return false
		}
	}
	return true
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
