package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTransient marks fetch failures that may succeed on a later cycle:
// network errors, timeouts, non-200 responses. Listings hit by one must
// never be written to the permanently-skipped ledger.
var ErrTransient = errors.New("transient fetch failure")

// HTTPFetcher fetches pages over plain HTTP with an optional on-disk
// response cache keyed by the md5 of the URL. Caching can be disabled
// globally via config; individual calls opt out with useCache=false.
type HTTPFetcher struct {
	client   *http.Client
	cacheDir string
	useCache bool
	log      logrus.FieldLogger
}

// NewHTTPFetcher creates a fetcher. cacheDir is created on demand; when
// enableCache is false the cache is bypassed entirely.
func NewHTTPFetcher(cacheDir string, enableCache bool, logger logrus.FieldLogger) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
		useCache: enableCache,
		log:      logger.WithField("component", "fetcher"),
	}
}

func cacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Fetch returns the page body, consulting the response cache first when both
// the fetcher and the call allow it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, useCache bool) (string, error) {
	log := f.log.WithField("url", url)
	cached := f.useCache && useCache

	var cachePath string
	if f.cacheDir != "" {
		cachePath = filepath.Join(f.cacheDir, cacheKey(url))
	}

	if cached && cachePath != "" {
		if body, err := os.ReadFile(cachePath); err == nil {
			log.Debug("Serving response from cache")
			return string(body), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("Request failed")
		return "", fmt.Errorf("%w: get %s: %v", ErrTransient, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.Status).Warn("Unexpected response status")
		return "", fmt.Errorf("%w: get %s: %s", ErrTransient, url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrTransient, url, err)
	}

	if cached && cachePath != "" {
		if err := os.MkdirAll(f.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cachePath, body, 0o644); err != nil {
				log.WithError(err).Warn("Failed to write response cache")
			}
		}
	}

	return string(body), nil
}

// Download copies a remote resource (floor-plan image) into dir and returns
// the local path. Bodies are never cached: images are fetched once per parse.
func (f *HTTPFetcher) Download(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrTransient, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: get %s: %s", ErrTransient, url, resp.Status)
	}

	path := filepath.Join(dir, cacheKey(url)+".jpeg")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("%w: download %s: %v", ErrTransient, url, err)
	}
	return path, nil
}
