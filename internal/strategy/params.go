// Package strategy implements the trading-strategy plug-in interface and
// the Momentum/MeanReversion signal generators, grounded on the Strategy
// interface shape in strategy/interface.go (Name/OnTick/Enabled/Config) and
// the rolling-window odds scanner in internal/arbitrage/mean_reversion.go.
package strategy

import "strconv"

// Params is a heterogeneous key->value parameter bag with typed accessors
// and defaults (spec.md §4.6), replacing the teacher's
// map[string]interface{} strategy Config() with a small typed builder so
// callers get get_int/get_long/get_double/get_bool/get_string without type
// assertions scattered through strategy code.
type Params struct {
	values map[string]string
}

// NewParams builds an empty, ready-to-populate Params bag.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set stores v under key, stringifying it the way os.Getenv-style config
// readers expect (mirrors internal/config.go's env-var parsing idiom).
func (p *Params) Set(key, value string) *Params {
	p.values[key] = value
	return p
}

// GetInt returns the int value for key, or def if absent/unparseable.
func (p *Params) GetInt(key string, def int) int {
	if v, ok := p.values[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// GetLong returns the int64 value for key, or def if absent/unparseable.
func (p *Params) GetLong(key string, def int64) int64 {
	if v, ok := p.values[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// GetDouble returns the float64 value for key, or def if absent/unparseable.
func (p *Params) GetDouble(key string, def float64) float64 {
	if v, ok := p.values[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// GetBool returns the bool value for key, or def if absent/unparseable.
func (p *Params) GetBool(key string, def bool) bool {
	if v, ok := p.values[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// GetString returns the string value for key, or def if absent.
func (p *Params) GetString(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}
