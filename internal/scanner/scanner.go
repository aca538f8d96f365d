// Package scanner picks the weekly option contracts worth tracking.
//
// Preference order follows the desk rule: contracts whose premium sits in
// the tradable band come first; when the band is empty, fall back to
// contracts two to three strikes out of the money relative to the
// underlying index; failing that, the nearest expiries.
package scanner

import (
	"fmt"
	"sort"

	"option-traderv1/internal/model"
)

// Config bounds the selection.
type Config struct {
	MinPrice       float64 // tradable premium band, index points
	MaxPrice       float64
	OTMMinDistance float64 // strike distance from the underlying, index points
	OTMMaxDistance float64
	MaxCandidates  int
}

// DefaultConfig mirrors the production settings: 0.1–0.3 premium band,
// 2–6 points OTM fallback, at most 10 candidates.
func DefaultConfig() Config {
	return Config{
		MinPrice:       0.1,
		MaxPrice:       0.3,
		OTMMinDistance: 2.0,
		OTMMaxDistance: 6.0,
		MaxCandidates:  10,
	}
}

// Validate rejects malformed scanner settings at startup.
func (c Config) Validate() error {
	if c.MinPrice < 0 || c.MinPrice >= c.MaxPrice {
		return fmt.Errorf("scanner: price band must satisfy 0 <= min < max, got [%v, %v]", c.MinPrice, c.MaxPrice)
	}
	if c.OTMMinDistance < 0 || c.OTMMinDistance >= c.OTMMaxDistance {
		return fmt.Errorf("scanner: OTM distances must satisfy 0 <= min < max, got [%v, %v]",
			c.OTMMinDistance, c.OTMMaxDistance)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("scanner: max candidates must be >= 1, got %d", c.MaxCandidates)
	}
	return nil
}

// OTMDistance returns how far the strike sits out of the money for the
// given underlying level. Negative means in the money.
func OTMDistance(o model.Option, underlying float64) float64 {
	if o.Type == model.Call {
		return o.Strike - underlying
	}
	return underlying - o.Strike
}

// Select returns the tracked candidates from the weekly universe.
func Select(universe []model.Option, underlying float64, cfg Config) []model.Option {
	inBand := make([]model.Option, 0, len(universe))
	for _, o := range universe {
		if o.Price >= cfg.MinPrice && o.Price <= cfg.MaxPrice {
			inBand = append(inBand, o)
		}
	}
	if len(inBand) > 0 {
		sort.SliceStable(inBand, func(i, j int) bool {
			if !inBand[i].Expiry.Equal(inBand[j].Expiry) {
				return inBand[i].Expiry.Before(inBand[j].Expiry)
			}
			return inBand[i].Price < inBand[j].Price
		})
		return limit(inBand, cfg.MaxCandidates)
	}

	otm := make([]model.Option, 0, len(universe))
	for _, o := range universe {
		d := OTMDistance(o, underlying)
		if d >= cfg.OTMMinDistance && d <= cfg.OTMMaxDistance {
			otm = append(otm, o)
		}
	}
	if len(otm) > 0 {
		sort.SliceStable(otm, func(i, j int) bool {
			return OTMDistance(otm[i], underlying) < OTMDistance(otm[j], underlying)
		})
		return limit(otm, cfg.MaxCandidates)
	}

	// Nothing fits; fall back to the nearest expiries.
	rest := append([]model.Option(nil), universe...)
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Expiry.Before(rest[j].Expiry)
	})
	return limit(rest, 5)
}

func limit(opts []model.Option, n int) []model.Option {
	if len(opts) > n {
		return opts[:n]
	}
	return opts
}
