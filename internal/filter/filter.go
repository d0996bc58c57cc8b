// Package filter gates parsed listings on price, floor-plan presence and
// derived area.
package filter

import (
	"github.com/bminaiev/zoopla-parser/internal/domain"
)

// Reason explains a rejection. Price and area rejects are re-evaluated on
// every cycle; none of them is grounds for the permanently-skipped ledger.
type Reason string

const (
	PriceBelowMin Reason = "price below min"
	PriceAboveMax Reason = "price above max"
	PriceUnknown  Reason = "price unknown"
	NoFloorPlan   Reason = "no floor plan"
	AreaUnknown   Reason = "area unknown"
	AreaTooSmall  Reason = "area too small"
)

// Verdict is the filter outcome; Reason is empty on accept.
type Verdict struct {
	Accept bool
	Reason Reason
}

func accept() Verdict         { return Verdict{Accept: true} }
func reject(r Reason) Verdict { return Verdict{Reason: r} }

// Filter holds the global defaults applied when a query sets no bounds.
type Filter struct {
	DefaultMinPrice int
	DefaultMaxPrice int
	MinAreaSqM      float64
}

// Decide gates one listing against one query. Bounds are inclusive: a price
// exactly at min or max is accepted. Floor-plan and area checks run only
// after the price passes, so out-of-range listings never pay for OCR-derived
// checks.
func (f Filter) Decide(l *domain.Listing, q domain.SearchQuery) Verdict {
	if l.Price == nil {
		return reject(PriceUnknown)
	}

	min := f.DefaultMinPrice
	if q.MinPrice != nil {
		min = *q.MinPrice
	}
	max := f.DefaultMaxPrice
	if q.MaxPrice != nil {
		max = *q.MaxPrice
	}

	if l.Price.PoundsPerMonth < min {
		return reject(PriceBelowMin)
	}
	if l.Price.PoundsPerMonth > max {
		return reject(PriceAboveMax)
	}

	if l.FloorPlanURL == "" {
		return reject(NoFloorPlan)
	}
	if l.AreaSqM == nil {
		return reject(AreaUnknown)
	}
	if *l.AreaSqM < f.MinAreaSqM {
		return reject(AreaTooSmall)
	}

	return accept()
}
