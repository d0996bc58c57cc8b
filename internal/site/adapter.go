// Package site isolates everything coupled to a listing site's markup:
// CSS selectors, embedded data blobs and URL shapes. Markup changes should
// only ever touch one adapter.
package site

import (
	"fmt"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

// RawFields are the structured values pulled from one detail page before
// any validation. An empty FloorPlanURL means the page carries no floor
// plan at all, which is a permanent property of the listing.
type RawFields struct {
	PriceText    string
	AddressText  string
	FloorPlanURL string
}

// Adapter maps one site's pages to ids, fields and photo lists.
type Adapter interface {
	Name() string

	SearchURL(q domain.SearchQuery) string
	ListingURL(id int) string
	PhotosURL(id int) string

	ListingIDs(indexHTML string) ([]int, error)
	ParseListing(detailHTML string) (RawFields, error)
	PhotoURLs(photosHTML string) ([]string, error)
}

// ByName resolves a configured adapter name.
func ByName(name string) (Adapter, error) {
	switch name {
	case "", "zoopla":
		return NewZoopla(), nil
	case "rightmove":
		return NewRightMove(), nil
	}
	return nil, fmt.Errorf("unknown site adapter %q", name)
}
