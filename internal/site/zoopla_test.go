package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

const zooplaDetailHTML = `
<html><body>
  <span data-testid="price">£2,500 pcm</span>
  <span data-testid="address-label">Britton Street, Farringdon, London EC1M</span>
  <script id="__NEXT_DATA__" type="application/json">
    {"props":{"pageProps":{"listingDetails":{"floorPlan":{"image":[
      {"filename":"98ee31d14914d9721f2065543998d910caa3cf82.jpg"}
    ]}}}}}
  </script>
</body></html>`

const zooplaNoPlanHTML = `
<html><body>
  <span data-testid="price">£2,500 pcm</span>
  <span data-testid="address-label">Somewhere</span>
  <script id="__NEXT_DATA__" type="application/json">
    {"props":{"pageProps":{"listingDetails":{"floorPlan":{"image":[]}}}}}
  </script>
</body></html>`

func TestZooplaListingIDs(t *testing.T) {
	html := `
	<div>
	  <a data-testid="listing-details-link" href="/to-rent/details/60395544/">one</a>
	  <a data-testid="listing-details-link" href="/to-rent/details/60395545/">two</a>
	  <a data-testid="listing-details-link" href="/to-rent/details/broken/">bad</a>
	  <a href="/to-rent/details/11111111/">not a listing link</a>
	</div>`

	ids, err := NewZoopla().ListingIDs(html)
	require.NoError(t, err)
	assert.Equal(t, []int{60395544, 60395545}, ids)
}

func TestZooplaParseListing(t *testing.T) {
	fields, err := NewZoopla().ParseListing(zooplaDetailHTML)
	require.NoError(t, err)

	assert.Equal(t, "£2,500 pcm", fields.PriceText)
	assert.Equal(t, "Britton Street, Farringdon, London EC1M", fields.AddressText)
	assert.Equal(t,
		"https://lc.zoocdn.com/98ee31d14914d9721f2065543998d910caa3cf82.jpg",
		fields.FloorPlanURL)
}

func TestZooplaParseListing_NoFloorPlan(t *testing.T) {
	fields, err := NewZoopla().ParseListing(zooplaNoPlanHTML)
	require.NoError(t, err)
	assert.Empty(t, fields.FloorPlanURL, "absent floor plan must be reported, not invented")
}

func TestZooplaParseListing_MalformedPage(t *testing.T) {
	_, err := NewZoopla().ParseListing(`<html><body>half rendered</body></html>`)
	assert.Error(t, err)

	_, err = NewZoopla().ParseListing(`
		<span data-testid="price">£1,000 pcm</span>`)
	assert.Error(t, err, "page without __NEXT_DATA__ is malformed")
}

func TestZooplaPhotoURLs(t *testing.T) {
	html := `
	<div>
	  <img style="width:100%" src="https://lc.zoocdn.com/a.jpg">
	  <img src="https://lc.zoocdn.com/tracking-pixel.gif">
	  <img style="width:100%" src="https://lc.zoocdn.com/b.jpg">
	</div>`

	urls, err := NewZoopla().PhotoURLs(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://lc.zoocdn.com/a.jpg", "https://lc.zoocdn.com/b.jpg"}, urls,
		"only styled gallery images, in page order")
}

func TestZooplaURLs(t *testing.T) {
	z := NewZoopla()
	assert.Equal(t, "https://www.zoopla.co.uk/to-rent/details/60395544/", z.ListingURL(60395544))
	assert.Equal(t, "https://www.zoopla.co.uk/to-rent/details/photos/60395544", z.PhotosURL(60395544))

	u := z.SearchURL(domain.SearchQuery{URL: "/to-rent/property/angel/?q=Angel", Tag: "Angel"})
	assert.Contains(t, u, "https://www.zoopla.co.uk/to-rent/property/angel/")
	assert.Contains(t, u, "results_sort=newest_listings")
}

func TestByName(t *testing.T) {
	a, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, "zoopla", a.Name())

	a, err = ByName("rightmove")
	require.NoError(t, err)
	assert.Equal(t, "rightmove", a.Name())

	_, err = ByName("craigslist")
	assert.Error(t, err)
}
