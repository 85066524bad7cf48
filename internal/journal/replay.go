package journal

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ReplayedOrder is the reconstructed tail state of one order's lifecycle,
// derived by folding its OrderRecord rows in TSNs order.
type ReplayedOrder struct {
	ClientOrderID   uint64
	ExchangeOrderID string
	Symbol          string
	Side            string
	Type            string
	Status          string
	PriceScaled     int64
	PriceScale      int64
	QuantityScaled  int64
	FilledScaled    int64
	StrategyID      string
	LastTSNs        int64
}

// ReplayedPosition is the reconstructed state of one symbol's position,
// starting from its latest snapshot (if any) and folding every trade
// recorded after it.
type ReplayedPosition struct {
	Symbol            string
	NetQuantityScaled int64
	AverageCostScaled int64
	RealizedPnLCents  int64
	Scale             int64
}

// Replay reconstructs order and position state from the journal, skipping
// any ClientOrderID whose most recent record predates a tombstone — the
// append-only equivalent of a logical delete, grounded on the teacher's
// execution.Reconciler.RecoverPositions startup pass that rebuilds
// in-memory book state from persisted rows rather than trusting venue
// state alone.
func (j *Journal) Replay() (map[uint64]*ReplayedOrder, map[string]*ReplayedPosition, error) {
	var tombstones []Tombstone
	if err := j.db.Find(&tombstones).Error; err != nil {
		return nil, nil, fmt.Errorf("journal: replay tombstones: %w", err)
	}
	tombstoneTSNs := make(map[uint64]int64, len(tombstones))
	for _, t := range tombstones {
		tombstoneTSNs[t.ClientOrderID] = t.TSNs
	}

	var orderRows []OrderRecord
	if err := j.db.Order("ts_ns ASC").Find(&orderRows).Error; err != nil {
		return nil, nil, fmt.Errorf("journal: replay orders: %w", err)
	}

	orders := make(map[uint64]*ReplayedOrder)
	skipped := 0
	for _, r := range orderRows {
		if tombTSNs, ok := tombstoneTSNs[r.ClientOrderID]; ok && r.TSNs <= tombTSNs {
			skipped++
			continue
		}
		orders[r.ClientOrderID] = &ReplayedOrder{
			ClientOrderID:   r.ClientOrderID,
			ExchangeOrderID: r.ExchangeOrderID,
			Symbol:          r.Symbol,
			Side:            r.Side,
			Type:            r.Type,
			Status:          r.Status,
			PriceScaled:     r.PriceScaled,
			PriceScale:      r.PriceScale,
			QuantityScaled:  r.QuantityScaled,
			FilledScaled:    r.FilledScaled,
			StrategyID:      r.StrategyID,
			LastTSNs:        r.TSNs,
		}
	}

	positions, err := j.replayPositions()
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int("orders", len(orders)).
		Int("skipped_tombstoned", skipped).
		Int("positions", len(positions)).
		Msg("journal: replay complete")
	return orders, positions, nil
}

func (j *Journal) replayPositions() (map[string]*ReplayedPosition, error) {
	positions := make(map[string]*ReplayedPosition)

	var latestBySymbol []PositionSnapshot
	if err := j.db.Order("ts_ns DESC").Find(&latestBySymbol).Error; err != nil {
		return nil, fmt.Errorf("journal: replay snapshots: %w", err)
	}
	sinceTSNs := make(map[string]int64)
	for _, snap := range latestBySymbol {
		if _, seen := positions[snap.Symbol]; seen {
			continue
		}
		positions[snap.Symbol] = &ReplayedPosition{
			Symbol:            snap.Symbol,
			NetQuantityScaled: snap.NetQuantityScaled,
			AverageCostScaled: snap.AverageCostScaled,
			RealizedPnLCents:  snap.RealizedPnLCents,
			Scale:             snap.Scale,
		}
		sinceTSNs[snap.Symbol] = snap.TSNs
	}

	var trades []TradeRecord
	if err := j.db.Order("executed_ts_ns ASC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("journal: replay trades: %w", err)
	}
	for _, tr := range trades {
		if floor, ok := sinceTSNs[tr.Symbol]; ok && tr.ExecutedTSNs <= floor {
			continue
		}
		pos, ok := positions[tr.Symbol]
		if !ok {
			pos = &ReplayedPosition{Symbol: tr.Symbol, Scale: tr.PriceScale}
			positions[tr.Symbol] = pos
		}
		applyTradeToReplayedPosition(pos, tr)
	}

	return positions, nil
}

// applyTradeToReplayedPosition folds one trade into a running position the
// same way internal/position.Apply does (qty-weighted average cost,
// realized P&L on any reduction/flip), kept independent of that package so
// journal has no import-time dependency on the live position manager.
func applyTradeToReplayedPosition(pos *ReplayedPosition, tr TradeRecord) {
	signedQty := tr.QuantityScaled
	if tr.Side == "SELL" {
		signedQty = -signedQty
	}

	switch {
	case pos.NetQuantityScaled == 0:
		pos.NetQuantityScaled = signedQty
		pos.AverageCostScaled = tr.PriceScaled

	case sameSign(pos.NetQuantityScaled, signedQty):
		totalCost := pos.AverageCostScaled*abs64(pos.NetQuantityScaled) + tr.PriceScaled*abs64(signedQty)
		pos.NetQuantityScaled += signedQty
		if pos.NetQuantityScaled != 0 {
			pos.AverageCostScaled = totalCost / abs64(pos.NetQuantityScaled)
		}

	default:
		closingQty := minInt64(abs64(signedQty), abs64(pos.NetQuantityScaled))
		direction := int64(1)
		if pos.NetQuantityScaled < 0 {
			direction = -1
		}
		pnl := direction * (tr.PriceScaled - pos.AverageCostScaled) * closingQty
		if tr.PriceScale > 0 {
			pnl = pnl * 100 / tr.PriceScale
		}
		pos.RealizedPnLCents += pnl
		flipped := abs64(signedQty) > abs64(pos.NetQuantityScaled)
		pos.NetQuantityScaled += signedQty
		switch {
		case pos.NetQuantityScaled == 0:
			pos.AverageCostScaled = 0
		case flipped:
			pos.AverageCostScaled = tr.PriceScaled
		}
	}
}

func sameSign(a, b int64) bool {
	return (a >= 0) == (b >= 0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
