package money

import "testing"

func TestToCentsCrossScale(t *testing.T) {
	// S3: AAPL (scale 100) realized 100_000 cents; BTCUSDT (scale 1e8)
	// realized 100_000_000_000 -> both normalize to 100_000 cents ($1000).
	aaplCents := Scaled(100_000).ToCents(ScaleEquityCents)
	btcCents := Scaled(100_000_000_000).ToCents(ScaleCrypto8dp)

	if aaplCents != 100_000 {
		t.Fatalf("aaplCents = %d, want 100000", aaplCents)
	}
	if btcCents != 100_000 {
		t.Fatalf("btcCents = %d, want 100000", btcCents)
	}
	if total := aaplCents + btcCents; total != 200_000 {
		t.Fatalf("total cents = %d, want 200000", total)
	}
}

func TestDecimalString(t *testing.T) {
	cases := []struct {
		v     Scaled
		scale Scale
		want  string
	}{
		{15000, 100, "150.00"},
		{-15000, 100, "-150.00"},
		{100_000_000, 100_000_000, "1.00000000"},
		{0, 100, "0.00"},
	}
	for _, c := range cases {
		got := c.v.DecimalString(c.scale)
		if got != c.want {
			t.Errorf("DecimalString(%d, %d) = %q, want %q", c.v, c.scale, got, c.want)
		}
	}
}

func TestMidIntegerDivision(t *testing.T) {
	if got := Mid(100, 101); got != 100 {
		t.Fatalf("Mid(100,101) = %d, want 100 (integer division)", got)
	}
}

func TestSymbolCanonicalization(t *testing.T) {
	s := NewSymbol("aapl", "NASDAQ")
	if s.Ticker() != "AAPL" {
		t.Fatalf("ticker = %q, want AAPL", s.Ticker())
	}
	if s.AssetClass() != AssetClassEquity {
		t.Fatalf("asset class = %v, want EQUITY", s.AssetClass())
	}
	other := NewSymbol("AAPL", "NASDAQ")
	if !s.Equal(other) {
		t.Fatalf("expected symbols to be equal")
	}
}

func TestNotional(t *testing.T) {
	// qty=200 price=10 scale=1 -> notional 2000 (S7 risk ordering scenario inputs)
	if n := Notional(10, 200, 1); n != 2000 {
		t.Fatalf("Notional = %d, want 2000", n)
	}
}
