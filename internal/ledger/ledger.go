// Package ledger holds the only state carried between poll cycles: the
// per-(listing, subscriber) seen set and the listing-level permanently-
// skipped set. Both are append-only.
package ledger

import "context"

// Ledger is a pair of durable key sets with O(1) existence checks.
//
// MarkSeen and MarkSkipped are the atomic insert-if-absent primitives: the
// boolean reports whether the record was newly inserted, so concurrent
// callers racing on the same pair cannot both observe absence. Both are
// idempotent.
type Ledger interface {
	// HasSeen reports whether the listing was already delivered to the
	// subscriber.
	HasSeen(ctx context.Context, listingID int, subscriber string) (bool, error)

	// MarkSeen records a confirmed delivery. Returns true when the pair
	// was newly inserted.
	MarkSeen(ctx context.Context, listingID int, subscriber string) (bool, error)

	// IsSkipped reports whether the listing is permanently skipped.
	IsSkipped(ctx context.Context, listingID int) (bool, error)

	// MarkSkipped records structural absence of a floor plan. Must never
	// be called for transient failures. Returns true when newly inserted.
	MarkSkipped(ctx context.Context, listingID int) (bool, error)

	Close() error
}
