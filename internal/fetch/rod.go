package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodFetcher renders pages in a headless browser. It is the fallback for
// markup the site only serves to real browsers; responses are never cached
// because the rendered DOM can differ between visits.
type RodFetcher struct {
	log logrus.FieldLogger
}

// NewRodFetcher creates a browser-backed fetcher. A fresh browser is
// launched per fetch, which keeps the implementation simple at the cost of
// startup latency; the poller is latency-tolerant.
func NewRodFetcher(logger logrus.FieldLogger) *RodFetcher {
	return &RodFetcher{log: logger.WithField("component", "rod-fetcher")}
}

// Fetch navigates to the URL and returns the rendered HTML. The useCache
// hint is ignored.
func (f *RodFetcher) Fetch(ctx context.Context, url string, _ bool) (html string, err error) {
	log := f.log.WithField("url", url)

	path, exists := launcher.LookPath()
	if !exists {
		return "", errors.New("rod browser dependency not found")
	}
	u := launcher.New().Bin(path).MustLaunch()
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		return "", fmt.Errorf("%w: connect browser: %v", ErrTransient, err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close browser: %w", closeErr)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("%w: open page %s: %v", ErrTransient, url, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close page: %w", closeErr)
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.Warn("Page load timed out")
			return "", fmt.Errorf("%w: load %s timed out", ErrTransient, url)
		}
		return "", fmt.Errorf("%w: wait load %s: %v", ErrTransient, url, err)
	}

	html, err = page.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: read html %s: %v", ErrTransient, url, err)
	}
	log.Debug("Rendered page fetched")
	return html, nil
}
