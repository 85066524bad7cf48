// Package journal is the engine's append-only persistence layer (spec.md
// §6): every order transition, fill, position snapshot, strategy target
// change, and risk/audit event is written as an immutable row, and the
// journal can replay those rows to reconstruct in-memory state after a
// restart. Grounded on the teacher's internal/database/database.go
// dual sqlite/postgres gorm setup, generalized from Polymarket-specific
// tables (Market, Opportunity, ArbTrade) to the venue-agnostic record
// types this engine needs.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OrderRecord is one append-only row per order-status transition; a single
// ClientOrderID accumulates multiple rows over its lifetime instead of
// being updated in place, so the full history can be replayed.
type OrderRecord struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	ClientOrderID   uint64 `gorm:"index"`
	ExchangeOrderID string `gorm:"index"`
	Symbol          string `gorm:"index"`
	Side            string
	Type            string
	Status          string `gorm:"index"`
	PriceScaled     int64
	PriceScale      int64
	QuantityScaled  int64
	FilledScaled    int64
	StrategyID      string
	TSNs            int64
	CreatedAt       time.Time
}

func (OrderRecord) TableName() string { return "order_records" }

// TradeRecord is one append-only row per fill.
type TradeRecord struct {
	TradeID         string `gorm:"column:trade_id;primaryKey"`
	ExchangeTradeID string `gorm:"index"`
	ClientOrderID   uint64 `gorm:"index"`
	Symbol          string `gorm:"index"`
	Side            string
	PriceScaled     int64
	QuantityScaled  int64
	PriceScale      int64
	ExecutedTSNs    int64
	CreatedAt       time.Time
}

func (TradeRecord) TableName() string { return "trade_records" }

// PositionSnapshot is a periodic point-in-time capture of a symbol's
// position, used to bound replay cost: on startup the journal replays
// trades only since the latest snapshot rather than from genesis.
type PositionSnapshot struct {
	ID                   uint `gorm:"primaryKey;autoIncrement"`
	Symbol               string `gorm:"index"`
	NetQuantityScaled    int64
	AverageCostScaled    int64
	RealizedPnLCents     int64
	Scale                int64
	TSNs                 int64
	CreatedAt            time.Time
}

func (PositionSnapshot) TableName() string { return "position_snapshots" }

// StrategyTargetRecord logs every target-position change a strategy
// requests, independent of whether an order was ultimately submitted.
type StrategyTargetRecord struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	StrategyName   string `gorm:"index"`
	Symbol         string `gorm:"index"`
	TargetScaled   int64
	TSNs           int64
	CreatedAt      time.Time
}

func (StrategyTargetRecord) TableName() string { return "strategy_target_records" }

// AuditRecord captures risk rejections, circuit-breaker trips, and other
// operator-relevant events that are not order/trade state by themselves.
type AuditRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Category  string `gorm:"index"` // "risk_rejected", "breaker_tripped", "algo_failed", ...
	Detail    string
	TSNs      int64
	CreatedAt time.Time
}

func (AuditRecord) TableName() string { return "audit_records" }

// Tombstone marks a ClientOrderID's history as logically deleted (e.g. a
// test run being cleared, or an operator purging a cancelled order's
// trail) without physically removing the append-only rows; Replay skips
// any order whose ID has a tombstone newer than its last record.
type Tombstone struct {
	ClientOrderID uint64 `gorm:"primaryKey"`
	TSNs          int64
	CreatedAt     time.Time
}

func (Tombstone) TableName() string { return "tombstones" }

// Journal wraps a gorm connection to either sqlite or postgres, selected
// exactly as the teacher's database.New does: a postgres:// DSN opens the
// postgres driver, anything else is treated as a sqlite file path.
type Journal struct {
	db *gorm.DB
}

// Open connects to the backing store and migrates every table. dsn is
// either a filesystem path (sqlite) or a postgres://... connection string.
func Open(dsn string) (*Journal, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("journal: open postgres: %w", err)
		}
		log.Info().Msg("journal connected (postgres)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("journal: create data dir: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("journal: open sqlite: %w", err)
		}
		log.Info().Str("path", dsn).Msg("journal initialized (sqlite)")
	}

	if err := db.AutoMigrate(
		&OrderRecord{}, &TradeRecord{}, &PositionSnapshot{},
		&StrategyTargetRecord{}, &AuditRecord{}, &Tombstone{},
	); err != nil {
		return nil, fmt.Errorf("journal: automigrate: %w", err)
	}

	return &Journal{db: db}, nil
}

// AppendOrder writes one immutable order-transition row.
func (j *Journal) AppendOrder(rec OrderRecord) error {
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	return j.db.Create(&rec).Error
}

// AppendTrade writes one immutable fill row, generating a trade ID if the
// caller left it blank.
func (j *Journal) AppendTrade(rec TradeRecord) error {
	if rec.TradeID == "" {
		rec.TradeID = uuid.NewString()
	}
	return j.db.Create(&rec).Error
}

// SnapshotPosition records a point-in-time position capture.
func (j *Journal) SnapshotPosition(snap PositionSnapshot) error {
	snap.ID = 0
	snap.CreatedAt = time.Time{}
	return j.db.Create(&snap).Error
}

// AppendStrategyTarget records a strategy's requested target position.
func (j *Journal) AppendStrategyTarget(rec StrategyTargetRecord) error {
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	return j.db.Create(&rec).Error
}

// AppendAudit records an operator-relevant event.
func (j *Journal) AppendAudit(rec AuditRecord) error {
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	return j.db.Create(&rec).Error
}

// Tombstone marks clientOrderID's history as logically deleted as of tsNs.
func (j *Journal) Tombstone(clientOrderID uint64, tsNs int64) error {
	return j.db.Save(&Tombstone{ClientOrderID: clientOrderID, TSNs: tsNs}).Error
}

// Close releases the underlying database connection.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
