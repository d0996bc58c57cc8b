package domain

import "net/url"

// Address pairs the display address from the listing page with a derived
// Google Maps search link for quick orientation.
type Address struct {
	Text     string
	MapsLink string
}

// NewAddress builds the map-search link by URL-encoding the display text.
func NewAddress(text string) Address {
	return Address{
		Text:     text,
		MapsLink: "https://www.google.com/maps/search/" + url.QueryEscape(text),
	}
}
