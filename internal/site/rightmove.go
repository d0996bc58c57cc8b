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
	rightmoveBase    = "https://www.rightmove.co.uk"
	rightmoveCardSel = ".propertyCard-link"
	pageModelPrefix  = "window.PAGE_MODEL = "
)

// RightMove parses rightmove.co.uk pages. The detail page carries the full
// property model in a script blob, so the photos "page" is the detail page
// itself.
type RightMove struct{}

// NewRightMove returns the rightmove.co.uk adapter.
func NewRightMove() *RightMove { return &RightMove{} }

func (r *RightMove) Name() string { return "rightmove" }

func (r *RightMove) SearchURL(q domain.SearchQuery) string {
	if strings.HasPrefix(q.URL, "http") {
		return q.URL
	}
	return rightmoveBase + q.URL
}

func (r *RightMove) ListingURL(id int) string {
	return fmt.Sprintf("%s/property-to-rent/property-%d.html", rightmoveBase, id)
}

// PhotosURL matches ListingURL so the cached detail fetch is reused.
func (r *RightMove) PhotosURL(id int) string {
	return r.ListingURL(id)
}

// ListingIDs extracts ids from property cards on a search results page.
// Example link: /property-to-rent/property-85423135.html -> 85423135.
func (r *RightMove) ListingIDs(indexHTML string) ([]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexHTML))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	var ids []int
	doc.Find(rightmoveCardSel).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		tail := href[strings.LastIndex(href, "-")+1:]
		tail = strings.TrimSuffix(tail, ".html")
		if id, err := strconv.Atoi(tail); err == nil {
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// pageModel mirrors the fragment of window.PAGE_MODEL this adapter reads.
type pageModel struct {
	PropertyData struct {
		Floorplans []struct {
			URL string `json:"url"`
		} `json:"floorplans"`
		Prices struct {
			PrimaryPrice string `json:"primaryPrice"`
		} `json:"prices"`
		Address struct {
			DisplayAddress string `json:"displayAddress"`
		} `json:"address"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"propertyData"`
}

func (r *RightMove) parsePageModel(html string) (pageModel, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageModel{}, fmt.Errorf("parse detail page: %w", err)
	}

	var blob string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if idx := strings.Index(text, pageModelPrefix); idx >= 0 {
			blob = strings.TrimSpace(text[idx+len(pageModelPrefix):])
			return false
		}
		return true
	})
	if blob == "" {
		return pageModel{}, fmt.Errorf("detail page has no PAGE_MODEL blob")
	}

	// The blob may be followed by further script statements; decode just
	// the first JSON value.
	var model pageModel
	if err := json.NewDecoder(strings.NewReader(blob)).Decode(&model); err != nil {
		return pageModel{}, fmt.Errorf("decode PAGE_MODEL: %w", err)
	}
	return model, nil
}

// ParseListing pulls price, address and floor plan from the PAGE_MODEL blob.
func (r *RightMove) ParseListing(detailHTML string) (RawFields, error) {
	model, err := r.parsePageModel(detailHTML)
	if err != nil {
		return RawFields{}, err
	}

	fields := RawFields{
		PriceText:   strings.TrimSpace(model.PropertyData.Prices.PrimaryPrice),
		AddressText: strings.TrimSpace(model.PropertyData.Address.DisplayAddress),
	}
	if fields.PriceText == "" {
		return RawFields{}, fmt.Errorf("PAGE_MODEL has no primary price")
	}
	if plans := model.PropertyData.Floorplans; len(plans) > 0 {
		fields.FloorPlanURL = plans[0].URL
	}
	return fields, nil
}

// PhotoURLs lists the gallery images embedded in the detail page.
func (r *RightMove) PhotoURLs(photosHTML string) ([]string, error) {
	model, err := r.parsePageModel(photosHTML)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(model.PropertyData.Images))
	for _, img := range model.PropertyData.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls, nil
}
