package fetch

import "context"

// Fetcher retrieves one page body by URL. useCache controls the response
// cache: index pages are time-sensitive and always fetched fresh, detail and
// photo pages may be served from cache.
type Fetcher interface {
	Fetch(ctx context.Context, url string, useCache bool) (string, error)
}
