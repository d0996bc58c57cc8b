// Package listing resolves a candidate listing id into a domain.Listing,
// distinguishing transient failures (retry next cycle) from the one
// permanent condition, a page that carries no floor plan at all.
package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bminaiev/zoopla-parser/internal/domain"
	"github.com/bminaiev/zoopla-parser/internal/fetch"
	"github.com/bminaiev/zoopla-parser/internal/site"
)

// ErrNoFloorPlan reports structural absence: the detail page loaded but has
// no floor-plan image. Unlike transient fetch failures this will never
// change, so the listing is eligible for the permanently-skipped ledger.
var ErrNoFloorPlan = errors.New("listing has no floor plan")

// AreaReader derives a floor area from a floor-plan image URL. A nil result
// means the area is unknown for this fetch, never that it is zero.
type AreaReader interface {
	AreaSqM(ctx context.Context, imageURL string) *float64
}

// Parser builds Listings from live pages via the site adapter.
type Parser struct {
	fetcher fetch.Fetcher
	adapter site.Adapter
	area    AreaReader
	log     logrus.FieldLogger
}

// NewParser wires the fetcher, site adapter and area reader.
func NewParser(fetcher fetch.Fetcher, adapter site.Adapter, area AreaReader, logger logrus.FieldLogger) *Parser {
	return &Parser{
		fetcher: fetcher,
		adapter: adapter,
		area:    area,
		log:     logger.WithField("component", "parser"),
	}
}

// Parse fetches the detail and photos pages for id and assembles a Listing
// tagged with the originating search. Errors are either fetch.ErrTransient
// (including malformed pages, which may render correctly next time) or
// ErrNoFloorPlan. An unparsable price or unreadable floor plan does not
// fail the parse; the listing comes back with the field unset so the filter
// can reject it with an explicit reason.
func (p *Parser) Parse(ctx context.Context, id int, tag string) (*domain.Listing, error) {
	log := p.log.WithField("listing_id", id)
	link := p.adapter.ListingURL(id)

	detailHTML, err := p.fetcher.Fetch(ctx, link, true)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}

	fields, err := p.adapter.ParseListing(detailHTML)
	if err != nil {
		// Malformed markup can be a half-rendered page; retry next cycle.
		return nil, fmt.Errorf("%w: listing %d: %v", fetch.ErrTransient, id, err)
	}

	if fields.FloorPlanURL == "" {
		return nil, fmt.Errorf("%w: listing %d", ErrNoFloorPlan, id)
	}

	photosHTML, err := p.fetcher.Fetch(ctx, p.adapter.PhotosURL(id), true)
	if err != nil {
		return nil, fmt.Errorf("fetch photos page: %w", err)
	}
	photos, err := p.adapter.PhotoURLs(photosHTML)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %d: %v", fetch.ErrTransient, id, err)
	}

	l := &domain.Listing{
		ID:           id,
		Link:         link,
		Address:      domain.NewAddress(fields.AddressText),
		FloorPlanURL: fields.FloorPlanURL,
		Photos:       photos,
		Tag:          tag,
	}

	if cost, err := domain.ParseRentCost(fields.PriceText); err != nil {
		log.WithError(err).Warn("Price text did not validate, treating as unknown")
	} else {
		l.Price = &cost
	}

	if p.area != nil {
		l.AreaSqM = p.area.AreaSqM(ctx, fields.FloorPlanURL)
	}

	return l, nil
}
