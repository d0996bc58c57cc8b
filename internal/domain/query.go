package domain

// SearchQuery is one saved search, read from configuration and immutable at
// runtime. MinPrice/MaxPrice override the global defaults when set.
type SearchQuery struct {
	// URL is the search page, absolute or relative to the site base.
	URL string

	// Tag labels this query; accepted listings are routed to subscribers
	// by tag membership. Tags are opaque, no normalization is applied.
	Tag string

	MinPrice *int
	MaxPrice *int
}

// Subscriber is one delivery recipient, read from configuration.
type Subscriber struct {
	Name   string
	ChatID int64
	Tags   map[string]struct{}
}

// SubscribedTo reports whether the subscriber follows the given search tag.
func (s Subscriber) SubscribedTo(tag string) bool {
	_, ok := s.Tags[tag]
	return ok
}
