package site

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

const (
	zooplaBase = "https://www.zoopla.co.uk"
	zooplaCDN  = "https://lc.zoocdn.com/"

	// Fixed search refinements: small flats, newest first, last 24h.
	zooplaSearchSuffix = "&beds_max=2&page_size=100&include_shared_accommodation=false" +
		"&price_frequency=per_month&results_sort=newest_listings&search_source=refine&added=24_hours"

	zooplaListingSel = "a[data-testid=listing-details-link]"
	zooplaPriceSel   = "span[data-testid=price]"
	zooplaAddressSel = "span[data-testid=address-label]"
	zooplaNextData   = "script[id=__NEXT_DATA__]"
)

// Zoopla parses zoopla.co.uk search, detail and photo pages.
type Zoopla struct{}

// NewZoopla returns the zoopla.co.uk adapter.
func NewZoopla() *Zoopla { return &Zoopla{} }

func (z *Zoopla) Name() string { return "zoopla" }

// SearchURL joins the configured query path with the fixed refinements.
func (z *Zoopla) SearchURL(q domain.SearchQuery) string {
	if strings.HasPrefix(q.URL, "http") {
		return q.URL + zooplaSearchSuffix
	}
	return zooplaBase + q.URL + zooplaSearchSuffix
}

func (z *Zoopla) ListingURL(id int) string {
	return fmt.Sprintf("%s/to-rent/details/%d/", zooplaBase, id)
}

func (z *Zoopla) PhotosURL(id int) string {
	return fmt.Sprintf("%s/to-rent/details/photos/%d", zooplaBase, id)
}

// ListingIDs extracts candidate listing ids from a search results page.
func (z *Zoopla) ListingIDs(indexHTML string) ([]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexHTML))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	var ids []int
	doc.Find(zooplaListingSel).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if id, err := idFromZooplaLink(href); err == nil {
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// idFromZooplaLink parses ".../details/60395544/" into 60395544.
func idFromZooplaLink(link string) (int, error) {
	link = strings.TrimSuffix(link, "/")
	last := link[strings.LastIndex(link, "/")+1:]
	id, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("listing link %q has no numeric id: %w", link, err)
	}
	return id, nil
}

// nextData mirrors the fragment of the embedded __NEXT_DATA__ blob holding
// the floor-plan image descriptors.
type nextData struct {
	Props struct {
		PageProps struct {
			ListingDetails struct {
				FloorPlan struct {
					Image []struct {
						Filename string `json:"filename"`
					} `json:"image"`
				} `json:"floorPlan"`
			} `json:"listingDetails"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ParseListing pulls price, address and the floor-plan image URL out of a
// detail page. A page without a floor-plan descriptor yields an empty
// FloorPlanURL; a page missing price or address markup is malformed.
func (z *Zoopla) ParseListing(detailHTML string) (RawFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detailHTML))
	if err != nil {
		return RawFields{}, fmt.Errorf("parse detail page: %w", err)
	}

	fields := RawFields{
		PriceText:   strings.TrimSpace(doc.Find(zooplaPriceSel).First().Text()),
		AddressText: strings.TrimSpace(doc.Find(zooplaAddressSel).Text()),
	}
	if fields.PriceText == "" {
		return RawFields{}, fmt.Errorf("detail page has no price element")
	}

	raw := doc.Find(zooplaNextData).First().Text()
	if raw == "" {
		return RawFields{}, fmt.Errorf("detail page has no __NEXT_DATA__ blob")
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return RawFields{}, fmt.Errorf("decode __NEXT_DATA__: %w", err)
	}

	images := data.Props.PageProps.ListingDetails.FloorPlan.Image
	if len(images) > 0 && images[0].Filename != "" {
		fields.FloorPlanURL = zooplaCDN + images[0].Filename
	}
	return fields, nil
}

// PhotoURLs lists the gallery images from the photos page, in page order.
// Only styled img tags belong to the gallery.
func (z *Zoopla) PhotoURLs(photosHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(photosHTML))
	if err != nil {
		return nil, fmt.Errorf("parse photos page: %w", err)
	}

	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if style, ok := sel.Attr("style"); !ok || style == "" {
			return
		}
		if src, ok := sel.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})
	return urls, nil
}
