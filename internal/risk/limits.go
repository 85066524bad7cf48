package risk

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Limits holds every configurable pre-trade and post-trade threshold
// (spec.md §4.4). Raw quantities/notionals stay integer (money.Scaled-
// compatible int64 cents/units); ratio-like settings use decimal.Decimal,
// grounded on risk/gate.go's env-driven decimal percentage fields.
type Limits struct {
	MaxOrderSize       int64
	MaxOrderNotional   int64
	MaxPositionSize    int64
	MaxOrdersPerDay    int
	MaxDailyNotional   int64
	MaxDailyLossCents  int64
	MaxPositionDrawdownCents int64
	MaxPositionUnrealizedLossCents int64
	MaxNetExposureCents int64

	// ParticipationRateCap is a risk-owned participation ratio loaded from
	// RISK_PARTICIPATION_RATE_CAP. No Engine rule and no algorithm reads
	// it; VWAP/TWAP receive their participation cap as a constructor
	// argument.
	ParticipationRateCap decimal.Decimal
}

// DefaultLimits returns conservative defaults, overridable individually via
// environment variables the way risk/gate.go reads MAX_POSITION_PCT,
// MAX_DAILY_LOSS_PCT, MAX_CONSECUTIVE_LOSSES from os.Getenv.
func DefaultLimits() Limits {
	return Limits{
		MaxOrderSize:                   envInt64("RISK_MAX_ORDER_SIZE", 10_000),
		MaxOrderNotional:               envInt64("RISK_MAX_ORDER_NOTIONAL_CENTS", 5_000_000),
		MaxPositionSize:                envInt64("RISK_MAX_POSITION_SIZE", 50_000),
		MaxOrdersPerDay:                int(envInt64("RISK_MAX_ORDERS_PER_DAY", 500)),
		MaxDailyNotional:               envInt64("RISK_MAX_DAILY_NOTIONAL_CENTS", 50_000_000),
		MaxDailyLossCents:              envInt64("RISK_MAX_DAILY_LOSS_CENTS", 1_000_000),
		MaxPositionDrawdownCents:       envInt64("RISK_MAX_POSITION_DRAWDOWN_CENTS", 500_000),
		MaxPositionUnrealizedLossCents: envInt64("RISK_MAX_POSITION_UNREALIZED_LOSS_CENTS", 300_000),
		MaxNetExposureCents:            envInt64("RISK_MAX_NET_EXPOSURE_CENTS", 20_000_000),
		ParticipationRateCap:           envDecimal("RISK_PARTICIPATION_RATE_CAP", "0.10"),
	}
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(def)
	return d
}
