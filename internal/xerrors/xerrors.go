// Package xerrors is the error taxonomy shared across the engine
// (spec.md §7): sentinel/wrapped errors via fmt.Errorf/%w and errors.As,
// following the teacher's plain wrapping style throughout exec/client.go
// and risk/*.go rather than a custom exception hierarchy — the teacher
// never introduces one, so none is introduced here either.
package xerrors

import "fmt"

// InvalidInput is a validation failure at the core boundary: missing
// symbol, non-positive quantity, and similar local, no-state-change
// rejections returned directly to the caller.
type InvalidInput struct {
	Field  string
	Reason string
}

func (e *InvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// IllegalTransition is an attempted invalid state change on an order or
// algorithm; logged by the caller, never applied.
type IllegalTransition struct {
	Entity string
	From   string
	To     string
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Entity, e.From, e.To)
}

// ScaleMismatch is raised when a trade's scale contradicts a non-flat
// position's scale; the trade is rejected and the breach counted in
// metrics by the caller.
type ScaleMismatch struct {
	Symbol   string
	Existing int64
	Incoming int64
}

func (e *ScaleMismatch) Error() string {
	return fmt.Sprintf("scale mismatch for %s: existing=%d incoming=%d", e.Symbol, e.Existing, e.Incoming)
}

// RiskRejected carries a precomputed pre-trade rejection: the rule that
// fired and a human-readable reason, counted in risk stats by the caller.
type RiskRejected struct {
	Rule   string
	Reason string
}

func (e *RiskRejected) Error() string {
	return fmt.Sprintf("risk rejected [%s]: %s", e.Rule, e.Reason)
}

// VenueErrorKind classifies a VenueError for retry/backoff decisions.
type VenueErrorKind int

const (
	VenueRateLimited VenueErrorKind = iota
	VenueUnauthorized
	VenueNotFound
	VenueInsufficientFunds
	VenueInvalidOrder
	VenueTransport
	VenueServer
	VenueTimeout
)

func (k VenueErrorKind) String() string {
	switch k {
	case VenueRateLimited:
		return "RateLimited"
	case VenueUnauthorized:
		return "Unauthorized"
	case VenueNotFound:
		return "NotFound"
	case VenueInsufficientFunds:
		return "InsufficientFunds"
	case VenueInvalidOrder:
		return "InvalidOrder"
	case VenueTransport:
		return "Transport"
	case VenueServer:
		return "Server"
	case VenueTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// VenueError is surfaced by a VenueAdapter. Retryable marks the kinds
// (RateLimited, Transport, Server, Timeout) that a repeat attempt may clear.
// Nothing in this module retries: the engine's submit path rejects the
// order on any SubmitOrder error, retryable or not.
type VenueError struct {
	Kind      VenueErrorKind
	Code      string
	Message   string
	Retryable bool
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue error [%s/%s]: %s", e.Kind, e.Code, e.Message)
}

// CircuitBreakerTripped means all new order intents are rejected until
// cooldown; existing orders are unaffected.
type CircuitBreakerTripped struct {
	Reason string
}

func (e *CircuitBreakerTripped) Error() string {
	return fmt.Sprintf("circuit breaker open: %s", e.Reason)
}

// Internal wraps an unexpected error with context; for algorithms this
// causes FAILED, for managers it bubbles up and is never silently
// swallowed.
type Internal struct {
	Context string
	Err     error
}

func (e *Internal) Error() string {
	return fmt.Sprintf("internal error in %s: %v", e.Context, e.Err)
}

func (e *Internal) Unwrap() error { return e.Err }
