package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState uint8

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker is the three-state {CLOSED, OPEN, HALF_OPEN} breaker
// guarding order submission, grounded on the single-state trip/cooldown
// breaker in risk/circuit_breaker.go, generalized to the half-open trial
// state of spec.md §4.4 (the teacher's breaker never re-opens on a
// half-open failure; it just waits out the same cooldown again).
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	state               BreakerState
	consecutiveFailures int
	trippedAt           time.Time
	reason              string
}

// NewCircuitBreaker builds a breaker that opens after `threshold`
// consecutive failures and offers a half-open trial `cooldown` after
// tripping.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// CheckAllowed reports whether a new pre-trade check may proceed. In OPEN
// state, once cooldown has elapsed it transitions to HALF_OPEN and allows
// the check through as the trial. While HALF_OPEN, every further check is
// allowed too, until RecordSuccess or RecordFailure settles the trial; the
// breaker does not limit HALF_OPEN to a single check.
func (cb *CircuitBreaker) CheckAllowed() (allowed bool, state BreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true, BreakerClosed
	case BreakerHalfOpen:
		// Another check is already in flight as the trial; as a simple
		// single-engine model we just allow it (no trial recursion).
		return true, BreakerHalfOpen
	case BreakerOpen:
		if time.Since(cb.trippedAt) >= cb.cooldown {
			cb.state = BreakerHalfOpen
			log.Info().Msg("risk: circuit breaker entering half-open trial")
			return true, BreakerHalfOpen
		}
		return false, BreakerOpen
	default:
		return false, cb.state
	}
}

// RecordSuccess reports a successful pre-trade check (an Approved outcome).
// In HALF_OPEN, a success closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	if cb.state == BreakerHalfOpen {
		cb.state = BreakerClosed
		log.Info().Msg("risk: circuit breaker closed after successful half-open trial")
	}
}

// RecordFailure reports a rejected pre-trade check or trading loss. In
// HALF_OPEN, a failure re-opens the breaker immediately; in CLOSED, N
// consecutive failures trip it open.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.open(reason)
		return
	}

	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.threshold {
		cb.open(reason)
	}
}

func (cb *CircuitBreaker) open(reason string) {
	cb.state = BreakerOpen
	cb.trippedAt = time.Now()
	cb.reason = reason
	log.Warn().
		Str("reason", reason).
		Int("consecutive_failures", cb.consecutiveFailures).
		Dur("cooldown", cb.cooldown).
		Msg("risk: circuit breaker tripped OPEN")
}

// Trip administratively opens the breaker regardless of failure count.
func (cb *CircuitBreaker) Trip(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open(reason)
}

// Reset administratively closes the breaker and clears failure state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.consecutiveFailures = 0
	cb.reason = ""
	log.Info().Msg("risk: circuit breaker manually reset")
}

// State returns the current breaker state and last trip reason.
func (cb *CircuitBreaker) State() (state BreakerState, reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.reason
}

// BreakerSnapshot is a point-in-time read of breaker state for the
// management surface, grounded on the teacher's CircuitBreaker.GetStats.
type BreakerSnapshot struct {
	State               BreakerState
	ConsecutiveFailures int
	Reason              string
	TrippedAt           time.Time
}

// Snapshot returns the breaker's current state for display/export.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		Reason:              cb.reason,
		TrippedAt:           cb.trippedAt,
	}
}
