package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

func newFilter() Filter {
	return Filter{DefaultMinPrice: 2000, DefaultMaxPrice: 8000, MinAreaSqM: 25}
}

func okListing(price int) *domain.Listing {
	area := 40.0
	return &domain.Listing{
		ID:           1,
		Price:        &domain.RentCost{PoundsPerMonth: price},
		FloorPlanURL: "https://lc.zoocdn.com/plan.jpg",
		AreaSqM:      &area,
	}
}

func TestDecide_PriceBounds(t *testing.T) {
	f := newFilter()
	q := domain.SearchQuery{Tag: "t"}

	cases := []struct {
		price  int
		accept bool
		reason Reason
	}{
		{1999, false, PriceBelowMin},
		{2000, true, ""}, // bounds are inclusive
		{8000, true, ""},
		{8001, false, PriceAboveMax},
	}
	for _, tc := range cases {
		v := f.Decide(okListing(tc.price), q)
		assert.Equal(t, tc.accept, v.Accept, "price %d", tc.price)
		assert.Equal(t, tc.reason, v.Reason, "price %d", tc.price)
	}
}

func TestDecide_QueryOverridesDefaults(t *testing.T) {
	f := newFilter()
	min, max := 3000, 3500
	q := domain.SearchQuery{Tag: "t", MinPrice: &min, MaxPrice: &max}

	assert.Equal(t, PriceBelowMin, f.Decide(okListing(2500), q).Reason)
	assert.True(t, f.Decide(okListing(3000), q).Accept)
	assert.Equal(t, PriceAboveMax, f.Decide(okListing(3600), q).Reason)
}

func TestDecide_PriceUnknown(t *testing.T) {
	l := okListing(2500)
	l.Price = nil
	v := newFilter().Decide(l, domain.SearchQuery{Tag: "t"})
	assert.False(t, v.Accept)
	assert.Equal(t, PriceUnknown, v.Reason)
}

func TestDecide_AreaChecks(t *testing.T) {
	f := newFilter()
	q := domain.SearchQuery{Tag: "t"}

	l := okListing(2500)
	l.AreaSqM = nil
	assert.Equal(t, AreaUnknown, f.Decide(l, q).Reason)

	small := 18.0
	l = okListing(2500)
	l.AreaSqM = &small
	assert.Equal(t, AreaTooSmall, f.Decide(l, q).Reason)

	exact := 25.0
	l = okListing(2500)
	l.AreaSqM = &exact
	assert.True(t, f.Decide(l, q).Accept, "threshold itself is plausible")
}

func TestDecide_NoFloorPlan(t *testing.T) {
	l := okListing(2500)
	l.FloorPlanURL = ""
	v := newFilter().Decide(l, domain.SearchQuery{Tag: "t"})
	assert.Equal(t, NoFloorPlan, v.Reason)
}

func TestDecide_PriceCheckedBeforeArea(t *testing.T) {
	// Out-of-range listings are rejected on price alone even when the
	// area is unknown.
	l := okListing(9000)
	l.AreaSqM = nil
	v := newFilter().Decide(l, domain.SearchQuery{Tag: "t"})
	assert.Equal(t, PriceAboveMax, v.Reason)
}
