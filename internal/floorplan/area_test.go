package floorplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArea_SquareMeters(t *testing.T) {
	area, ok := ExtractArea("Total area 32.5 sqm")
	require.True(t, ok)
	assert.InDelta(t, 32.5, area, 1e-9)
}

func TestExtractArea_SquareFeetConverted(t *testing.T) {
	area, ok := ExtractArea("350 sqft only")
	require.True(t, ok)
	assert.InDelta(t, 350/10.7639, area, 1e-9)
}

func TestExtractArea_MetersWinOverFeet(t *testing.T) {
	// Both units present: the sqm figure wins regardless of order or size.
	area, ok := ExtractArea("45.3 sqm / 488 sqft")
	require.True(t, ok)
	assert.InDelta(t, 45.3, area, 1e-9)

	area, ok = ExtractArea("488 sqft (45.3 sqm)")
	require.True(t, ok)
	assert.InDelta(t, 45.3, area, 1e-9)
}

func TestExtractArea_PicksLargestFigure(t *testing.T) {
	// Plans print the area more than once; the most prominent (largest)
	// recognized value is preferred over per-room noise.
	area, ok := ExtractArea("Bedroom 12.1 sqm\nLiving room 20.4 sqm\nTotal 54.8 sqm")
	require.True(t, ok)
	assert.InDelta(t, 54.8, area, 1e-9)
}

func TestExtractArea_SubsequenceMatching(t *testing.T) {
	// OCR output rarely prints clean unit tokens; "sq. m." still matches
	// "sqm" as a subsequence within the lookahead window.
	area, ok := ExtractArea("Approx. 38.2 sq. m.")
	require.True(t, ok)
	assert.InDelta(t, 38.2, area, 1e-9)
}

func TestExtractArea_CaseInsensitive(t *testing.T) {
	area, ok := ExtractArea("TOTAL 41 SQM")
	require.True(t, ok)
	assert.InDelta(t, 41, area, 1e-9)
}

func TestExtractArea_NoUnitToken(t *testing.T) {
	_, ok := ExtractArea("3 bedroom flat, great location, floor 2")
	assert.False(t, ok)
}

func TestExtractArea_EmptyText(t *testing.T) {
	_, ok := ExtractArea("")
	assert.False(t, ok)
}

func TestExtractArea_UnitBeyondLookahead(t *testing.T) {
	// The unit token is searched only within 15 characters of the digit.
	_, ok := ExtractArea("32 xxxxxxxxxxxxxxxxxxxx sqm")
	assert.False(t, ok)
}
