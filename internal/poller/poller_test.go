package poller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bminaiev/zoopla-parser/internal/domain"
	"github.com/bminaiev/zoopla-parser/internal/fetch"
	"github.com/bminaiev/zoopla-parser/internal/filter"
	"github.com/bminaiev/zoopla-parser/internal/listing"
	"github.com/bminaiev/zoopla-parser/internal/site"
)

// fakeFetcher serves the index page for every search URL.
type fakeFetcher struct {
	indexHTML string
	err       error
}

func (f *fakeFetcher) Fetch(context.Context, string, bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.indexHTML, nil
}

// fakeParser resolves ids from a fixed table.
type fakeParser struct {
	listings map[int]*domain.Listing
	errs     map[int]error
	parsed   []int
}

func (p *fakeParser) Parse(_ context.Context, id int, tag string) (*domain.Listing, error) {
	p.parsed = append(p.parsed, id)
	if err, ok := p.errs[id]; ok {
		return nil, err
	}
	l, ok := p.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown id %d", fetch.ErrTransient, id)
	}
	cp := *l
	cp.Tag = tag
	return &cp, nil
}

// memLedger is an in-memory Ledger for tests.
type memLedger struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	skipped map[int]struct{}
}

func newMemLedger() *memLedger {
	return &memLedger{seen: map[string]struct{}{}, skipped: map[int]struct{}{}}
}

func (m *memLedger) HasSeen(_ context.Context, id int, sub string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[fmt.Sprintf("%d:%s", id, sub)]
	return ok, nil
}

func (m *memLedger) MarkSeen(_ context.Context, id int, sub string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d:%s", id, sub)
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

func (m *memLedger) IsSkipped(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.skipped[id]
	return ok, nil
}

func (m *memLedger) MarkSkipped(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.skipped[id]; ok {
		return false, nil
	}
	m.skipped[id] = struct{}{}
	return true, nil
}

func (m *memLedger) Close() error { return nil }

// fakeDeliverer records deliveries and can fail specific pairs.
type fakeDeliverer struct {
	sent []string
	fail map[string]error
}

func (d *fakeDeliverer) Send(_ context.Context, sub domain.Subscriber, l *domain.Listing) error {
	key := fmt.Sprintf("%d:%s", l.ID, sub.Name)
	if err, ok := d.fail[key]; ok {
		return err
	}
	d.sent = append(d.sent, key)
	return nil
}

func indexPage(ids ...int) string {
	html := "<div>"
	for _, id := range ids {
		html += fmt.Sprintf(`<a data-testid="listing-details-link" href="/to-rent/details/%d/">x</a>`, id)
	}
	return html + "</div>"
}

func goodListing(id int) *domain.Listing {
	area := 45.0
	return &domain.Listing{
		ID:           id,
		Link:         fmt.Sprintf("https://www.zoopla.co.uk/to-rent/details/%d/", id),
		Price:        &domain.RentCost{PoundsPerMonth: 2500},
		Address:      domain.NewAddress("Angel, London"),
		FloorPlanURL: "https://lc.zoocdn.com/plan.jpg",
		AreaSqM:      &area,
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

type fixture struct {
	poller    *Poller
	parser    *fakeParser
	ledger    *memLedger
	deliverer *fakeDeliverer
}

func newFixture(indexHTML string, parser *fakeParser, subs []domain.Subscriber) *fixture {
	led := newMemLedger()
	del := &fakeDeliverer{fail: map[string]error{}}
	p := New(Deps{
		Fetcher:     &fakeFetcher{indexHTML: indexHTML},
		Adapter:     site.NewZoopla(),
		Parser:      parser,
		Filter:      filter.Filter{DefaultMinPrice: 2000, DefaultMaxPrice: 8000, MinAreaSqM: 25},
		Ledger:      led,
		Deliverer:   del,
		Queries:     []domain.SearchQuery{{URL: "/to-rent/property/angel/", Tag: "Angel"}},
		Subscribers: subs,
		Logger:      testLogger(),
	})
	return &fixture{poller: p, parser: parser, ledger: led, deliverer: del}
}

func subscribers(names ...string) []domain.Subscriber {
	subs := make([]domain.Subscriber, 0, len(names))
	for i, name := range names {
		subs = append(subs, domain.Subscriber{
			Name:   name,
			ChatID: int64(100 + i),
			Tags:   map[string]struct{}{"Angel": {}},
		})
	}
	return subs
}

func TestRunCycle_DeliversToMatchingSubscribers(t *testing.T) {
	parser := &fakeParser{listings: map[int]*domain.Listing{1: goodListing(1)}}
	subs := subscribers("borys", "anton")
	subs = append(subs, domain.Subscriber{
		Name: "sofia", ChatID: 300, Tags: map[string]struct{}{"Vauxhall": {}},
	})
	f := newFixture(indexPage(1), parser, subs)

	require.NoError(t, f.poller.RunCycle(context.Background()))

	assert.ElementsMatch(t, []string{"1:borys", "1:anton"}, f.deliverer.sent,
		"only subscribers of the query tag receive the listing")

	seen, _ := f.ledger.HasSeen(context.Background(), 1, "borys")
	assert.True(t, seen, "confirmed delivery must be recorded")
	seen, _ = f.ledger.HasSeen(context.Background(), 1, "sofia")
	assert.False(t, seen)
}

func TestRunCycle_SecondCycleDeliversNothing(t *testing.T) {
	parser := &fakeParser{listings: map[int]*domain.Listing{1: goodListing(1), 2: goodListing(2)}}
	f := newFixture(indexPage(1, 2), parser, subscribers("borys"))
	ctx := context.Background()

	require.NoError(t, f.poller.RunCycle(ctx))
	require.Len(t, f.deliverer.sent, 2)

	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Len(t, f.deliverer.sent, 2, "unchanged ledger state must produce zero new deliveries")
}

func TestRunCycle_FailedDeliveryRetriedNextCycle(t *testing.T) {
	parser := &fakeParser{listings: map[int]*domain.Listing{1: goodListing(1)}}
	f := newFixture(indexPage(1), parser, subscribers("borys"))
	ctx := context.Background()

	f.deliverer.fail["1:borys"] = errors.New("delivery retries exhausted")
	require.NoError(t, f.poller.RunCycle(ctx), "a failed delivery must not abort the cycle")
	assert.Empty(t, f.deliverer.sent)

	seen, _ := f.ledger.HasSeen(ctx, 1, "borys")
	assert.False(t, seen, "failed delivery must not be marked seen")

	delete(f.deliverer.fail, "1:borys")
	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Equal(t, []string{"1:borys"}, f.deliverer.sent)
}

func TestRunCycle_StructuralAbsenceIsLedgered(t *testing.T) {
	parser := &fakeParser{
		listings: map[int]*domain.Listing{2: goodListing(2)},
		errs:     map[int]error{1: fmt.Errorf("%w: listing 1", listing.ErrNoFloorPlan)},
	}
	f := newFixture(indexPage(1, 2), parser, subscribers("borys"))
	ctx := context.Background()

	require.NoError(t, f.poller.RunCycle(ctx))

	skipped, _ := f.ledger.IsSkipped(ctx, 1)
	assert.True(t, skipped)
	assert.Equal(t, []string{"2:borys"}, f.deliverer.sent, "other listings continue")

	// Next cycle never re-fetches the skipped listing.
	f.parser.parsed = nil
	require.NoError(t, f.poller.RunCycle(ctx))
	assert.NotContains(t, f.parser.parsed, 1)
}

func TestRunCycle_TransientFailureIsNotLedgered(t *testing.T) {
	parser := &fakeParser{
		errs: map[int]error{1: fmt.Errorf("%w: timeout", fetch.ErrTransient)},
	}
	f := newFixture(indexPage(1), parser, subscribers("borys"))
	ctx := context.Background()

	require.NoError(t, f.poller.RunCycle(ctx))

	skipped, _ := f.ledger.IsSkipped(ctx, 1)
	assert.False(t, skipped, "transient failures must stay retryable")

	// The listing is re-fetched on the next cycle.
	f.parser.parsed = nil
	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Contains(t, f.parser.parsed, 1)
}

func TestRunCycle_RecheckSkippedOverride(t *testing.T) {
	parser := &fakeParser{listings: map[int]*domain.Listing{1: goodListing(1)}}
	f := newFixture(indexPage(1), parser, subscribers("borys"))
	ctx := context.Background()

	_, err := f.ledger.MarkSkipped(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Empty(t, f.parser.parsed, "skipped listing must not be fetched")

	f.poller.RecheckSkipped = true
	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Contains(t, f.parser.parsed, 1, "override must force the re-check")
}

func TestRunCycle_RejectsAreNotLedgered(t *testing.T) {
	expensive := goodListing(1)
	expensive.Price = &domain.RentCost{PoundsPerMonth: 9500}
	parser := &fakeParser{listings: map[int]*domain.Listing{1: expensive}}
	f := newFixture(indexPage(1), parser, subscribers("borys"))
	ctx := context.Background()

	require.NoError(t, f.poller.RunCycle(ctx))
	assert.Empty(t, f.deliverer.sent)

	skipped, _ := f.ledger.IsSkipped(ctx, 1)
	assert.False(t, skipped, "a re-priced listing may pass on a later cycle")
}

func TestRunCycle_IndexFetchFailureDoesNotAbort(t *testing.T) {
	led := newMemLedger()
	del := &fakeDeliverer{}
	p := New(Deps{
		Fetcher:     &fakeFetcher{err: fmt.Errorf("%w: down", fetch.ErrTransient)},
		Adapter:     site.NewZoopla(),
		Parser:      &fakeParser{},
		Filter:      filter.Filter{DefaultMinPrice: 2000, DefaultMaxPrice: 8000, MinAreaSqM: 25},
		Ledger:      led,
		Deliverer:   del,
		Queries:     []domain.SearchQuery{{URL: "/a", Tag: "Angel"}, {URL: "/b", Tag: "Angel"}},
		Subscribers: subscribers("borys"),
		Logger:      testLogger(),
	})

	assert.NoError(t, p.RunCycle(context.Background()),
		"index failures are contained per query")
}

func TestCheckOne_NoLedgerWrites(t *testing.T) {
	parser := &fakeParser{listings: map[int]*domain.Listing{1: goodListing(1)}}
	f := newFixture(indexPage(1), parser, subscribers("borys"))
	ctx := context.Background()

	sub := domain.Subscriber{Name: "diagnostic", ChatID: 42}
	require.NoError(t, f.poller.CheckOne(ctx, 1, sub))

	assert.Equal(t, []string{"1:diagnostic"}, f.deliverer.sent)
	seen, _ := f.ledger.HasSeen(ctx, 1, "diagnostic")
	assert.False(t, seen, "diagnostic mode must not write the ledger")
	skipped, _ := f.ledger.IsSkipped(ctx, 1)
	assert.False(t, skipped)
}
