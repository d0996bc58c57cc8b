// Package floorplan turns a floor-plan image into a best-guess floor area.
// OCR itself is external (tesseract); this package owns what is done with
// the recognized text.
package floorplan

import (
	"math"
	"strconv"
	"strings"
)

// sqftPerSqm converts square feet to square meters.
const sqftPerSqm = 10.7639

// lookahead bounds how far past a digit a unit token is searched for.
const lookahead = 15

// ExtractArea scans OCR text for area figures and returns the best guess in
// square meters. Floor plans usually print the area more than once (heading
// plus per-room legend) and in either unit in arbitrary order; the largest
// recognized value is taken as the most prominent one. Square-meter figures
// win over square-feet figures whenever any exist. This is a best-effort
// heuristic, not a guaranteed parse.
func ExtractArea(text string) (float64, bool) {
	runes := []rune(strings.ToLower(text))

	var sqMeters, sqFeet []float64
	for i := 0; i < len(runes); {
		if runes[i] < '0' || runes[i] > '9' {
			i++
			continue
		}
		end := i + lookahead
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[i:end]

		sqmPos := subseqEnd(window, "sqm")
		sqftPos := subseqEnd(window, "sqft")
		value, ok := leadingNumber(window)

		switch {
		case ok && sqmPos < sqftPos:
			sqMeters = append(sqMeters, value)
			i += sqmPos
		case ok && sqftPos < sqmPos:
			sqFeet = append(sqFeet, value)
			i += sqftPos
		default:
			i++
		}
	}

	if len(sqMeters) > 0 {
		return maxOf(sqMeters), true
	}
	if len(sqFeet) > 0 {
		return maxOf(sqFeet) / sqftPerSqm, true
	}
	return 0, false
}

// subseqEnd finds the earliest match of pattern as a subsequence of window
// (characters in order, arbitrary gaps) and returns the index just past the
// last matched character, or MaxInt when the pattern does not fit.
func subseqEnd(window []rune, pattern string) int {
	iter := 0
	for _, c := range pattern {
		for iter != len(window) && window[iter] != c {
			iter++
		}
		if iter == len(window) {
			return math.MaxInt
		}
		iter++
	}
	return iter
}

// leadingNumber parses the maximal run of digits and decimal points at the
// start of window.
func leadingNumber(window []rune) (float64, bool) {
	end := 0
	for end != len(window) && (window[end] == '.' || (window[end] >= '0' && window[end] <= '9')) {
		end++
	}
	value, err := strconv.ParseFloat(string(window[:end]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func maxOf(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
