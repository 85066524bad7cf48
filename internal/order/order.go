// Package order implements the order manager: the authoritative record of
// every order the engine has created, its status-transition table, and
// fill-averaging semantics, grounded on the lifecycle state machine in
// execution/executor.go (OrderState, Order, updatePosition) and the
// acknowledgement/reconciliation loop in execution/reconciler.go.
package order

import (
	"time"

	"github.com/tradecore/engine/internal/money"
)

// Status is the lifecycle state of an order (spec.md §4.2).
type Status uint8

const (
	StatusPending Status = iota
	StatusSubmitted
	StatusAccepted
	StatusPartiallyFilled
	StatusFilled
	StatusRejected
	StatusCancelled
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusRejected:
		return "REJECTED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status can never transition again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Side mirrors event.Side without importing the event package, avoiding a
// dependency cycle (order is consumed by event handlers registered from
// outside both packages).
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// Type is the order type.
type Type uint8

const (
	TypeMarket Type = iota
	TypeLimit
)

func (t Type) String() string {
	if t == TypeMarket {
		return "MARKET"
	}
	return "LIMIT"
}

// TimeInForce controls how long a resting order remains eligible to fill
// (spec.md §6's full venue-facing set).
type TimeInForce uint8

const (
	TIFDay TimeInForce = iota
	TIFGTC
	TIFIOC
	TIFFOK
	TIFGTD
	TIFOPG
	TIFCLS
)

func (t TimeInForce) String() string {
	switch t {
	case TIFGTC:
		return "GTC"
	case TIFIOC:
		return "IOC"
	case TIFFOK:
		return "FOK"
	case TIFGTD:
		return "GTD"
	case TIFOPG:
		return "OPG"
	case TIFCLS:
		return "CLS"
	default:
		return "DAY"
	}
}

// Order is a mutable, pool-reusable record of a single order's lifecycle.
// Invariants: FilledQuantity + RemainingQuantity == Quantity; Status only
// advances along the table in transitions.go; AverageFilledPrice is the
// qty-weighted mean of fills applied so far.
type Order struct {
	ClientOrderID   uint64
	ExchangeOrderID string

	Symbol money.Symbol
	Side   Side
	Type   Type
	TIF    TimeInForce
	Status Status

	Price      money.Scaled
	StopPrice  money.Scaled
	PriceScale money.Scale

	Quantity          money.Scaled
	FilledQuantity    money.Scaled
	RemainingQuantity money.Scaled
	AverageFilledPrice money.Scaled

	LastFillPrice    money.Scaled
	LastFillQuantity money.Scaled

	CreatedTSNs     int64
	SubmittedTSNs   int64
	AcceptedTSNs    int64
	LastUpdatedTSNs int64

	StrategyID   string
	RejectReason string
}

// SubmitLatency returns the submitted-minus-created delay, or 0 if either
// timestamp is unset.
func (o *Order) SubmitLatency() time.Duration {
	if o.SubmittedTSNs == 0 || o.CreatedTSNs == 0 {
		return 0
	}
	return time.Duration(o.SubmittedTSNs - o.CreatedTSNs)
}

// AckLatency returns the accepted-minus-submitted delay.
func (o *Order) AckLatency() time.Duration {
	if o.AcceptedTSNs == 0 || o.SubmittedTSNs == 0 {
		return 0
	}
	return time.Duration(o.AcceptedTSNs - o.SubmittedTSNs)
}

// FillLatency returns the last-update-minus-created delay, meaningful only
// once the order has reached a terminal filled status.
func (o *Order) FillLatency() time.Duration {
	if o.LastUpdatedTSNs == 0 || o.CreatedTSNs == 0 {
		return 0
	}
	return time.Duration(o.LastUpdatedTSNs - o.CreatedTSNs)
}

// Reset clears an order back to its zero value for reuse from the pool,
// without deallocating the struct itself. Satisfies pool.Resettable.
func (o *Order) Reset() {
	*o = Order{}
}
