package notify

import "testing"

func TestNewWithEmptyTokenReturnsNoop(t *testing.T) {
	n, err := New("", 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.api != nil {
		t.Fatal("expected a no-op notifier with a nil api client")
	}
}

func TestNoopNotifierMethodsDoNotPanic(t *testing.T) {
	n := NewNoop()
	n.BreakerTripped("daily loss limit breached")
	n.BreakerReset()
	n.RiskRejected("MaxOrderSize", "exceeds limit", "AAPL@NASDAQ")
	n.AlgoCompleted("algo-1", "AAPL@NASDAQ", 1000)
	n.AlgoFailed("algo-2", "AAPL@NASDAQ", "venue timeout")
	n.Startup("sim")
}

func TestNoopNotifierCooldownMapStaysEmpty(t *testing.T) {
	n := NewNoop()
	n.BreakerTripped("x")
	n.BreakerTripped("x")
	if len(n.lastSent) != 0 {
		t.Fatalf("no-op notifier should never populate lastSent, got %d entries", len(n.lastSent))
	}
}
