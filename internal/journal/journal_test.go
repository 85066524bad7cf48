package journal

import "testing"

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendOrderAndReplayReconstructsLatestStatus(t *testing.T) {
	j := openTestJournal(t)

	rows := []OrderRecord{
		{ClientOrderID: 1, Symbol: "AAPL@NASDAQ", Side: "BUY", Type: "LIMIT", Status: "PENDING", QuantityScaled: 100, TSNs: 1},
		{ClientOrderID: 1, Symbol: "AAPL@NASDAQ", Side: "BUY", Type: "LIMIT", Status: "SUBMITTED", QuantityScaled: 100, TSNs: 2},
		{ClientOrderID: 1, Symbol: "AAPL@NASDAQ", Side: "BUY", Type: "LIMIT", Status: "FILLED", QuantityScaled: 100, FilledScaled: 100, TSNs: 3},
	}
	for _, r := range rows {
		if err := j.AppendOrder(r); err != nil {
			t.Fatalf("AppendOrder: %v", err)
		}
	}

	orders, _, err := j.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	got, ok := orders[1]
	if !ok {
		t.Fatal("expected order 1 to be present in replay")
	}
	if got.Status != "FILLED" {
		t.Fatalf("expected replayed status FILLED, got %s", got.Status)
	}
}

func TestTombstonedOrderIsExcludedFromReplay(t *testing.T) {
	j := openTestJournal(t)

	if err := j.AppendOrder(OrderRecord{ClientOrderID: 7, Symbol: "AAPL@NASDAQ", Status: "PENDING", TSNs: 1}); err != nil {
		t.Fatalf("AppendOrder: %v", err)
	}
	if err := j.Tombstone(7, 5); err != nil {
		t.Fatalf("Tombstone: %v", err)
	}

	orders, _, err := j.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if _, ok := orders[7]; ok {
		t.Fatal("expected tombstoned order to be excluded from replay")
	}
}

func TestReplayPositionFoldsTradesSinceLatestSnapshot(t *testing.T) {
	j := openTestJournal(t)

	if err := j.SnapshotPosition(PositionSnapshot{
		Symbol: "AAPL@NASDAQ", NetQuantityScaled: 100, AverageCostScaled: 10000, Scale: 100, TSNs: 10,
	}); err != nil {
		t.Fatalf("SnapshotPosition: %v", err)
	}

	// Predates the snapshot: must be ignored.
	if err := j.AppendTrade(TradeRecord{Symbol: "AAPL@NASDAQ", Side: "BUY", PriceScaled: 9000, QuantityScaled: 50, PriceScale: 100, ExecutedTSNs: 5}); err != nil {
		t.Fatalf("AppendTrade: %v", err)
	}
	// Postdates the snapshot: must be folded in.
	if err := j.AppendTrade(TradeRecord{Symbol: "AAPL@NASDAQ", Side: "BUY", PriceScaled: 11000, QuantityScaled: 50, PriceScale: 100, ExecutedTSNs: 15}); err != nil {
		t.Fatalf("AppendTrade: %v", err)
	}

	_, positions, err := j.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	pos, ok := positions["AAPL@NASDAQ"]
	if !ok {
		t.Fatal("expected a replayed position for AAPL@NASDAQ")
	}
	if pos.NetQuantityScaled != 150 {
		t.Fatalf("expected net quantity 150 (100 snapshot + 50 post-snapshot trade), got %d", pos.NetQuantityScaled)
	}
}

func TestAppendAuditAndStrategyTargetSucceed(t *testing.T) {
	j := openTestJournal(t)

	if err := j.AppendAudit(AuditRecord{Category: "breaker_tripped", Detail: "daily loss limit breached", TSNs: 1}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := j.AppendStrategyTarget(StrategyTargetRecord{StrategyName: "momentum", Symbol: "AAPL@NASDAQ", TargetScaled: 500, TSNs: 1}); err != nil {
		t.Fatalf("AppendStrategyTarget: %v", err)
	}
}
