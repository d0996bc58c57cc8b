// Package poller drives one full poll cycle: enumerate each configured
// search, resolve candidate listings, filter them and deliver matches to
// not-yet-seen subscribers.
package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bminaiev/zoopla-parser/internal/domain"
	"github.com/bminaiev/zoopla-parser/internal/fetch"
	"github.com/bminaiev/zoopla-parser/internal/filter"
	"github.com/bminaiev/zoopla-parser/internal/ledger"
	"github.com/bminaiev/zoopla-parser/internal/listing"
	"github.com/bminaiev/zoopla-parser/internal/site"
)

// Deliverer pushes one listing to one subscriber. A nil return means the
// delivery completed (or was terminally refused by the transport); an error
// means the pair must stay undelivered so the next cycle retries it.
type Deliverer interface {
	Send(ctx context.Context, sub domain.Subscriber, l *domain.Listing) error
}

// ListingParser resolves a candidate id into a Listing.
type ListingParser interface {
	Parse(ctx context.Context, id int, tag string) (*domain.Listing, error)
}

// Poller owns one poll cycle across all configured queries.
type Poller struct {
	fetcher     fetch.Fetcher
	adapter     site.Adapter
	parser      ListingParser
	filter      filter.Filter
	ledger      ledger.Ledger
	deliverer   Deliverer
	queries     []domain.SearchQuery
	subscribers []domain.Subscriber

	// RecheckSkipped forces re-fetching of permanently-skipped listings
	// for this run only.
	RecheckSkipped bool

	log logrus.FieldLogger
}

// Deps wires everything the poller needs.
type Deps struct {
	Fetcher     fetch.Fetcher
	Adapter     site.Adapter
	Parser      ListingParser
	Filter      filter.Filter
	Ledger      ledger.Ledger
	Deliverer   Deliverer
	Queries     []domain.SearchQuery
	Subscribers []domain.Subscriber
	Logger      logrus.FieldLogger
}

// New constructs a Poller.
func New(deps Deps) *Poller {
	return &Poller{
		fetcher:     deps.Fetcher,
		adapter:     deps.Adapter,
		parser:      deps.Parser,
		filter:      deps.Filter,
		ledger:      deps.Ledger,
		deliverer:   deps.Deliverer,
		queries:     deps.Queries,
		subscribers: deps.Subscribers,
		log:         deps.Logger.WithField("component", "poller"),
	}
}

// RunCycle executes one full poll cycle. Failures on individual queries,
// listings or deliveries are logged and contained; only context
// cancellation aborts the cycle early. Cancellation is checked between
// listings, never mid-listing, because every underlying action is
// idempotent or checked before acted on.
func (p *Poller) RunCycle(ctx context.Context) error {
	for _, q := range p.queries {
		subs := p.subscribersFor(q.Tag)
		log := p.log.WithField("tag", q.Tag)
		if len(subs) == 0 {
			log.Info("No subscribers for query, skipping")
			continue
		}

		// Index contents are time-sensitive, never served from cache.
		indexHTML, err := p.fetcher.Fetch(ctx, p.adapter.SearchURL(q), false)
		if err != nil {
			log.WithError(err).Error("Failed to fetch search index")
			continue
		}

		ids, err := p.adapter.ListingIDs(indexHTML)
		if err != nil {
			log.WithError(err).Error("Failed to enumerate listings")
			continue
		}
		log.WithField("total", len(ids)).Info("Candidate listings found")

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("poll cycle interrupted: %w", err)
			}
			p.processListing(ctx, id, q, subs)
		}
	}
	return nil
}

// processListing is the per-listing error boundary: nothing that goes wrong
// here escapes to the query loop.
func (p *Poller) processListing(ctx context.Context, id int, q domain.SearchQuery, subs []domain.Subscriber) {
	log := p.log.WithFields(logrus.Fields{"listing_id": id, "tag": q.Tag})

	if !p.RecheckSkipped {
		skipped, err := p.ledger.IsSkipped(ctx, id)
		if err != nil {
			log.WithError(err).Error("Skipped-ledger lookup failed")
			return
		}
		if skipped {
			log.Debug("Listing permanently skipped, not re-fetching")
			return
		}
	}

	l, err := p.parser.Parse(ctx, id, q.Tag)
	switch {
	case errors.Is(err, listing.ErrNoFloorPlan):
		log.Info("No floor plan on page, will not check this listing any more")
		if _, err := p.ledger.MarkSkipped(ctx, id); err != nil {
			log.WithError(err).Error("Failed to record skipped listing")
		}
		return
	case err != nil:
		// Transient: fetch failure or half-rendered page. Next cycle
		// retries; nothing is ledgered.
		log.WithError(err).Warn("Listing unavailable this cycle")
		return
	}

	verdict := p.filter.Decide(l, q)
	if !verdict.Accept {
		// Price and area rejects are re-evaluated every cycle: listings
		// get re-priced and OCR quality varies per fetch.
		log.WithField("reason", verdict.Reason).Info("Listing rejected")
		return
	}

	for _, sub := range subs {
		p.deliver(ctx, l, sub, log)
	}
}

// deliver is the per-delivery error boundary.
func (p *Poller) deliver(ctx context.Context, l *domain.Listing, sub domain.Subscriber, log logrus.FieldLogger) {
	log = log.WithField("subscriber", sub.Name)

	seen, err := p.ledger.HasSeen(ctx, l.ID, sub.Name)
	if err != nil {
		log.WithError(err).Error("Seen-ledger lookup failed")
		return
	}
	if seen {
		log.Debug("Already delivered, skipping")
		return
	}

	if err := p.deliverer.Send(ctx, sub, l); err != nil {
		// Typically retry exhaustion. The pair stays unseen so the next
		// cycle retries the delivery.
		log.WithError(err).Error("Delivery failed for this pair")
		return
	}

	if _, err := p.ledger.MarkSeen(ctx, l.ID, sub.Name); err != nil {
		log.WithError(err).Error("Failed to record delivery")
	}
}

// CheckOne processes a single listing end to end and delivers it to the
// given recipient, without touching either ledger. Used by the diagnostic
// command for manual verification.
func (p *Poller) CheckOne(ctx context.Context, id int, sub domain.Subscriber) error {
	log := p.log.WithField("listing_id", id)

	l, err := p.parser.Parse(ctx, id, "test-tag")
	if err != nil {
		return fmt.Errorf("parse listing %d: %w", id, err)
	}

	verdict := p.filter.Decide(l, domain.SearchQuery{Tag: "test-tag"})
	log.WithFields(logrus.Fields{
		"accept": verdict.Accept,
		"reason": verdict.Reason,
		"area":   l.AreaLabel(),
	}).Info("Diagnostic verdict")

	return p.deliverer.Send(ctx, sub, l)
}

func (p *Poller) subscribersFor(tag string) []domain.Subscriber {
	var subs []domain.Subscriber
	for _, s := range p.subscribers {
		if s.SubscribedTo(tag) {
			subs = append(subs, s)
		}
	}
	return subs
}
