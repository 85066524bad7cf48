package strategy

import (
	"testing"

	"github.com/tradecore/engine/internal/event"
	"github.com/tradecore/engine/internal/money"
)

func TestPopulationStatsKnownSeries(t *testing.T) {
	mean, stddev := populationStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("mean = %v, want 5", mean)
	}
	if !approxEqual(stddev, 2, 1e-9) {
		t.Fatalf("stddev = %v, want 2", stddev)
	}
}

func TestMeanReversionEntersAgainstDeviation(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	var lastSide Side
	var lastQty money.Scaled
	submit := func(s money.Symbol, side Side, qty, price money.Scaled, scale money.Scale) (uint64, error) {
		lastSide, lastQty = side, qty
		return 1, nil
	}
	params := NewParams().Set("lookback", "16").Set("entry_z", "1.5").Set("max_position_size", "100")
	r := NewMeanReversion([]money.Symbol{sym}, params, submit)

	// Window isn't full yet: no signal should fire regardless of deviation.
	for i := 0; i < 10; i++ {
		r.OnQuote(sym, event.Quote{BidPrice: 9995, AskPrice: 10005, PriceScale: money.ScaleEquityCents})
	}
	if lastQty != 0 {
		t.Fatalf("expected no signal before the rolling window is full, got qty=%d", lastQty)
	}

	// Flat series around 100 fills the 16-sample window with zero deviation
	// (no signal), then a sharp spike up should register a large positive
	// z-score against that window.
	for i := 0; i < 15; i++ {
		r.OnQuote(sym, event.Quote{BidPrice: 9995, AskPrice: 10005, PriceScale: money.ScaleEquityCents})
	}
	r.OnQuote(sym, event.Quote{BidPrice: 10495, AskPrice: 10505, PriceScale: money.ScaleEquityCents})

	if lastQty == 0 {
		t.Fatalf("expected an entry order once |z| exceeds entry_z")
	}
	// Price spiked above the mean -> z > 0 -> strategy sells into the spike,
	// expecting reversion back down.
	if lastSide != SideSell {
		t.Fatalf("side = %v, want sell against an upward deviation", lastSide)
	}
}

func TestMeanReversionExitsWhenWithinExitBand(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	params := NewParams().Set("exit_z", "0.5")
	r := NewMeanReversion([]money.Symbol{sym}, params, noopSubmit)

	target := r.nextTarget(sym.String(), 0.1, sym) // |z| well inside exit band
	if target != 0 {
		t.Fatalf("target = %d, want 0 once price has reverted inside the exit band", target)
	}
	if r.inPosition[sym.String()] {
		t.Fatalf("inPosition should be cleared once flattened")
	}
}

func TestMeanReversionDoubleDownCapsAtTwiceMaxPosition(t *testing.T) {
	sym := money.NewSymbol("AAPL", "NASDAQ")
	params := NewParams().Set("entry_z", "1.0").Set("double_down_z", "2.0").Set("max_position_size", "100")
	r := NewMeanReversion([]money.Symbol{sym}, params, noopSubmit)

	key := sym.String()
	// First, establish an entry position against a positive deviation.
	r.nextTarget(key, 1.5, sym)
	if !r.inPosition[key] {
		t.Fatalf("expected entry to mark inPosition")
	}

	// Further adverse extension should double the size, capped at 2x max.
	target := r.nextTarget(key, 2.5, sym)
	if target != -200 {
		t.Fatalf("target = %d, want -200 (sold into a further upward extension, capped at 2x max)", target)
	}
}
