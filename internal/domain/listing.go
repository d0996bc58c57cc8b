package domain

import "fmt"

// Listing is the fully resolved view of one rental property, built fresh on
// every poll cycle from the live detail and photos pages. Only its ID ever
// reaches durable storage; the struct itself is never persisted.
type Listing struct {
	// ID is the stable external identifier assigned by the listings site.
	ID int

	// Link points at the public detail page.
	Link string

	// Price is the parsed monthly rent. Nil means the price text on the
	// page did not validate; callers must treat that as price unknown,
	// never as zero.
	Price *RentCost

	// Address is the display address plus a derived map-search link.
	Address Address

	// FloorPlanURL is the floor-plan image. Always non-empty: a listing
	// with no floor plan never becomes a Listing at all.
	FloorPlanURL string

	// Photos are the gallery images in page order. The floor plan is kept
	// out of this slice and prepended at delivery time.
	Photos []string

	// AreaSqM is the OCR-derived floor area in square meters, nil when
	// the text on the plan could not be read.
	AreaSqM *float64

	// Tag names the search query that surfaced this listing.
	Tag string
}

// AreaLabel renders the area for captions and logs.
func (l *Listing) AreaLabel() string {
	if l.AreaSqM == nil {
		return "???"
	}
	return fmt.Sprintf("%.3f sq. m.", *l.AreaSqM)
}
