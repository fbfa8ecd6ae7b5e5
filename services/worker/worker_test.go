package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sjsage522/reviewworker/internal/crawler"
	"sjsage522/reviewworker/pkg/errors"
	"sjsage522/reviewworker/services/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	siteRoot        = "https://www.tripadvisor.com"
	listingTemplate = siteRoot + "/Attractions-g60898-Activities-oa{offset}-Atlanta_Georgia.html"
)

// MockFetcher serves canned pages and fails every other URL
type MockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

// Ensure MockFetcher implements crawler.Fetcher
var _ crawler.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Fetch(_ context.Context, url string) (*crawler.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	body, ok := m.pages[url]
	m.mu.Unlock()

	if !ok {
		return nil, errors.NewNetwork(url, "unexpected status code: 503", nil)
	}
	return crawler.NewDocumentFromString(url, body)
}

func (m *MockFetcher) called(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == url {
			n++
		}
	}
	return n
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu         sync.Mutex
	messages   map[string][][]byte
	trimCalls  int
	publishErr error
}

// Ensure MockPublisher implements publisher.Publisher
var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}

	// Copy the message to ensure thread safety
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages[key] = append(m.messages[key], messageCopy)
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimCalls++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func (m *MockPublisher) records(t *testing.T, key string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]any
	for _, msg := range m.messages[key] {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(msg, &rec))
		out = append(out, rec)
	}
	return out
}

// MockFailures implements helpers.FailureRecorder
type MockFailures struct {
	mu   sync.Mutex
	urls []string
}

func (m *MockFailures) RecordFailure(component, url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, component+" "+url)
}

func listing(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<div class="attraction_element"><div class="listing_title"><a href="%s">x</a></div>`+
			`<div class="rs rating"><span></span><span><a>%s</a></span></div></div>`, r[0], r[1])
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func reviews(name string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1 id="HEADING">%s</h1>`, name)
	for i := range n {
		fmt.Fprintf(&b, `<div class="review-container"><div><div><div>`+
			`<div><div><div><div><div><span class="expand_inline scrname">user%d</span></div></div></div></div></div>`+
			`</div></div></div></div>`, i)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func target(offsetPages int) crawler.CrawlTarget {
	return crawler.CrawlTarget{
		City:                  "Atlanta",
		ListingURLTemplate:    listingTemplate,
		MaxListingOffsetPages: offsetPages,
	}
}

func TestWorkerRunOnce(t *testing.T) {
	park := siteRoot + "/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html"
	zoo := siteRoot + "/Attraction_Review-g60898-d2-Reviews-Zoo_Atlanta.html"

	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": listing(
			[2]string{"/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html", "21 reviews"},
			[2]string{"/Attraction_Review-g60898-d2-Reviews-Zoo_Atlanta.html", "no reviews"},
		),
		park: reviews("Piedmont Park", 3),
		siteRoot + "/Attraction_Review-g60898-d1-Reviews-or10-Piedmont_Park.html": reviews("Piedmont Park", 2),
		zoo: reviews("Zoo Atlanta", 1),
	}}
	pub := NewMockPublisher()
	failures := &MockFailures{}

	w := NewWorker(context.Background(), target(1), fetcher, pub, failures, Options{Concurrency: 3, MaxConsecutiveFailures: 3})
	s := w.RunOnce()

	// oa30 listing page is missing
	assert.Equal(t, int64(1), s.ListingPages)
	assert.Equal(t, int64(1), s.ListingFailures)
	assert.Equal(t, int64(2), s.Activities)
	assert.Equal(t, int64(3), s.ReviewPages)
	assert.Equal(t, int64(6), s.Records)
	assert.Equal(t, 1, pub.trimCalls)

	records := pub.records(t, "atlanta")
	require.Len(t, records, 6)
	names := map[string]int{}
	for _, r := range records {
		assert.Equal(t, "atlanta", r["city"])
		assert.Nil(t, r["location"])
		names[r["activity_name"].(string)]++
	}
	assert.Equal(t, map[string]int{"Piedmont Park": 5, "Zoo Atlanta": 1}, names)

	assert.Equal(t, []string{"listing " + siteRoot + "/Attractions-g60898-Activities-oa30-Atlanta_Georgia.html"}, failures.urls)
}

func TestWorkerAbandonsActivityAfterConsecutiveFailures(t *testing.T) {
	park := siteRoot + "/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html"
	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": listing(
			[2]string{"/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html", "200 reviews"},
		),
		park: reviews("Piedmont Park", 10),
	}}
	pub := NewMockPublisher()

	w := NewWorker(context.Background(), target(0), fetcher, pub, nil, Options{Concurrency: 2, MaxConsecutiveFailures: 3})
	s := w.RunOnce()

	assert.Equal(t, int64(1), s.Abandoned)
	assert.Equal(t, int64(1), s.ReviewPages)
	assert.Equal(t, int64(3), s.PageFailures)
	assert.Equal(t, int64(10), s.Records)
	assert.Equal(t, 0, fetcher.called(siteRoot+"/Attraction_Review-g60898-d1-Reviews-or40-Piedmont_Park.html"))
}

func TestWorkerWithoutAbandonLimit(t *testing.T) {
	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": listing(
			[2]string{"/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html", "50 reviews"},
		),
	}}

	w := NewWorker(context.Background(), target(0), fetcher, NewMockPublisher(), nil, Options{Concurrency: 1})
	s := w.RunOnce()

	assert.Equal(t, int64(0), s.Abandoned)
	assert.Equal(t, int64(5), s.PageFailures)
}

func TestWorkerPublishFailureDoesNotStopCrawl(t *testing.T) {
	park := siteRoot + "/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html"
	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": listing(
			[2]string{"/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html", "8 reviews"},
		),
		park: reviews("Piedmont Park", 4),
	}}
	pub := NewMockPublisher()
	pub.publishErr = errors.NewPublisher("mock", "sink down", nil)

	w := NewWorker(context.Background(), target(0), fetcher, pub, nil, Options{Concurrency: 1, Production: true})
	s := w.RunOnce()

	assert.Equal(t, int64(4), s.PublishFailures)
	assert.Equal(t, int64(0), s.Records)
	assert.Equal(t, 1, pub.trimCalls)
}

func TestWorkerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &MockFetcher{pages: map[string]string{}}
	w := NewWorker(ctx, target(2), fetcher, NewMockPublisher(), nil, Options{Concurrency: 1, CrawlInterval: time.Hour})

	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestWorkerUsesSelectorOverrides(t *testing.T) {
	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": `<html><body>` +
			`<section class="attraction"><div class="listing_title"><a href="/Attraction_Review-g60898-d1-Reviews-A.html">a</a></div></section>` +
			`</body></html>`,
		siteRoot + "/Attraction_Review-g60898-d1-Reviews-A.html": `<html><body><h1 id="HEADING">A</h1>` +
			`<article class="review"><b class="name">walker</b></article></body></html>`,
	}}
	pub := NewMockPublisher()

	selectors := crawler.DefaultSelectors()
	selectors.Listing.Row = "section.attraction"
	selectors.Review.Block = `//article[@class="review"]`
	selectors.Review.Username = `./b[@class="name"]/text()`

	w := NewWorker(context.Background(), target(0), fetcher, pub, nil, Options{Concurrency: 1, Selectors: &selectors})
	s := w.RunOnce()

	assert.Equal(t, int64(1), s.Records)
	records := pub.records(t, "atlanta")
	require.Len(t, records, 1)
	assert.Equal(t, "walker", records[0]["username"])
	assert.Equal(t, "A", records[0]["activity_name"])
}

func TestWorkerTagsRecordsWithTrimmedCity(t *testing.T) {
	fetcher := &MockFetcher{pages: map[string]string{
		siteRoot + "/Attractions-g60898-Activities-Atlanta_Georgia.html": listing(
			[2]string{"/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html", "2 reviews"},
		),
		siteRoot + "/Attraction_Review-g60898-d1-Reviews-Piedmont_Park.html": reviews("Piedmont Park", 2),
	}}
	pub := NewMockPublisher()

	tgt := target(0)
	tgt.City = " Atlanta "
	w := NewWorker(context.Background(), tgt, fetcher, pub, nil, Options{Concurrency: 1})
	s := w.RunOnce()

	assert.Equal(t, int64(2), s.Records)
	records := pub.records(t, "atlanta")
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "atlanta", r["city"])
	}
}
