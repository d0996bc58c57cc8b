package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPrice reports price text that is not in the exact "£<amount> pcm"
// form. An older revision of this tool coerced such text to zero, which made
// every listing fail the min-price check; the parser now refuses instead so
// the filter can reject with an explicit price-unknown reason.
var ErrBadPrice = errors.New("unparsable rent price")

// RentCost is a validated monthly rent.
type RentCost struct {
	PoundsPerMonth int
}

// ParseRentCost accepts only the literal form "£2,500 pcm": a pound sign,
// digits with optional thousand separators, one space, and the per-calendar-
// month marker. Weekly prices, other currencies and malformed digit runs all
// return ErrBadPrice.
func ParseRentCost(s string) (RentCost, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "£")
	if !ok {
		return RentCost{}, fmt.Errorf("%w: %q lacks £ prefix", ErrBadPrice, s)
	}
	amount, marker, ok := strings.Cut(rest, " ")
	if !ok || marker != "pcm" {
		return RentCost{}, fmt.Errorf("%w: %q is not a pcm price", ErrBadPrice, s)
	}
	digits := strings.ReplaceAll(amount, ",", "")
	if digits == "" {
		return RentCost{}, fmt.Errorf("%w: %q has no amount", ErrBadPrice, s)
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return RentCost{}, fmt.Errorf("%w: %q: %v", ErrBadPrice, s, err)
	}
	return RentCost{PoundsPerMonth: value}, nil
}

func (c RentCost) String() string {
	return fmt.Sprintf("%d£", c.PoundsPerMonth)
}
