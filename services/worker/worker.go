package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/reviewworker/helpers"
	"sjsage522/reviewworker/internal/crawler"
	"sjsage522/reviewworker/logger"
	"sjsage522/reviewworker/pkg/errors"
	"sjsage522/reviewworker/services/metrics"
	"sjsage522/reviewworker/services/publisher"

	"golang.org/x/sync/errgroup"
)

// Options tunes one worker
type Options struct {
	Concurrency            int
	MaxConsecutiveFailures int // 0 never abandons an activity
	CrawlInterval          time.Duration
	Production             bool
	Selectors              *crawler.SelectorSet // nil uses the defaults
}

// Summary counts what one crawl did
type Summary struct {
	ListingPages    int64
	ListingFailures int64
	Activities      int64
	ReviewPages     int64
	PageFailures    int64
	Records         int64
	PublishFailures int64
	Abandoned       int64
	Elapsed         time.Duration
}

type counters struct {
	listingPages, listingFailures atomic.Int64
	activities, reviewPages       atomic.Int64
	pageFailures, records         atomic.Int64
	publishFailures, abandoned    atomic.Int64
}

// Worker handles the crawling and publishing process for one city
type Worker struct {
	ctx       context.Context
	target    crawler.CrawlTarget
	fetcher   crawler.Fetcher
	planner   *crawler.Planner
	extractor *crawler.Extractor
	publisher publisher.Publisher
	failures  helpers.FailureRecorder
	opts      Options
	log       *logger.Logger
	pubLog    *logger.Logger

	sampleOnce sync.Once
}

// NewWorker creates a new worker. failures may be nil.
func NewWorker(
	ctx context.Context,
	target crawler.CrawlTarget,
	fetcher crawler.Fetcher,
	pub publisher.Publisher,
	failures helpers.FailureRecorder,
	opts Options,
) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	planner := crawler.NewPlanner(target)
	extractor := crawler.NewExtractor()
	if opts.Selectors != nil {
		planner.Selectors = opts.Selectors.Listing
		extractor.Selectors = opts.Selectors.Review
	}

	return &Worker{
		ctx:       ctx,
		target:    target,
		fetcher:   fetcher,
		planner:   planner,
		extractor: extractor,
		publisher: pub,
		failures:  failures,
		opts:      opts,
		log:       logger.ForTarget(target.OutputCity()),
		pubLog:    logger.ForPublisher(),
	}
}

// Start runs a crawl, then repeats every CrawlInterval until the context is
// done. A zero interval runs once.
func (w *Worker) Start() {
	for {
		w.RunOnce()
		if w.opts.CrawlInterval <= 0 {
			return
		}

		select {
		case <-w.ctx.Done():
			return
		case <-time.After(w.opts.CrawlInterval):
		}
	}
}

// RunOnce crawls every listing page and the review pages they lead to, then
// trims the sink.
func (w *Worker) RunOnce() Summary {
	start := time.Now()
	var c counters
	w.sampleOnce = sync.Once{}

	listings := w.fetchListings(&c)

	g, ctx := errgroup.WithContext(w.ctx)
	g.SetLimit(w.opts.Concurrency)

	var activity []crawler.ReviewPageRequest
	flush := func() {
		if len(activity) == 0 {
			return
		}
		reqs := activity
		activity = nil
		c.activities.Add(1)
		g.Go(func() error {
			w.crawlActivity(ctx, reqs, &c)
			return nil
		})
	}

	// Every activity's requests start at offset 0
	for req := range w.planner.Plan(listings) {
		if req.PageOffset == 0 {
			flush()
		}
		activity = append(activity, req)
	}
	flush()
	_ = g.Wait()

	if err := w.publisher.TrimStreams(); err != nil {
		logger.LogError("StreamTrimming", err, "failed to trim sink")
	}

	s := Summary{
		ListingPages:    c.listingPages.Load(),
		ListingFailures: c.listingFailures.Load(),
		Activities:      c.activities.Load(),
		ReviewPages:     c.reviewPages.Load(),
		PageFailures:    c.pageFailures.Load(),
		Records:         c.records.Load(),
		PublishFailures: c.publishFailures.Load(),
		Abandoned:       c.abandoned.Load(),
		Elapsed:         time.Since(start),
	}
	w.log.Info().
		Int64("listing_pages", s.ListingPages).
		Int64("listing_failures", s.ListingFailures).
		Int64("activities", s.Activities).
		Int64("review_pages", s.ReviewPages).
		Int64("page_failures", s.PageFailures).
		Int64("records", s.Records).
		Int64("publish_failures", s.PublishFailures).
		Int64("abandoned", s.Abandoned).
		Dur("elapsed", s.Elapsed).
		Msg("crawl finished")
	return s
}

// fetchListings fetches every listing page concurrently. Failed pages are nil
// in the result so listing order is kept.
func (w *Worker) fetchListings(c *counters) []*crawler.Document {
	urls := w.target.ListingURLs()
	docs := make([]*crawler.Document, len(urls))

	g, ctx := errgroup.WithContext(w.ctx)
	g.SetLimit(w.opts.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			doc, err := w.fetch(ctx, "listing", url)
			if err != nil {
				c.listingFailures.Add(1)
				return nil
			}
			c.listingPages.Add(1)
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()
	return docs
}

// crawlActivity fetches the review pages of one activity in offset order and
// publishes their records. The rest of the activity is skipped after
// MaxConsecutiveFailures failed pages in a row.
func (w *Worker) crawlActivity(ctx context.Context, reqs []crawler.ReviewPageRequest, c *counters) {
	failed := 0
	for _, req := range reqs {
		if ctx.Err() != nil {
			return
		}

		doc, err := w.fetch(ctx, "review", req.URL)
		if err != nil {
			c.pageFailures.Add(1)
			failed++
			if w.opts.MaxConsecutiveFailures > 0 && failed >= w.opts.MaxConsecutiveFailures {
				c.abandoned.Add(1)
				metrics.ObserveAbandoned()
				w.log.Warn().
					Str("activity", req.ActivityURL).
					Int("offset", req.PageOffset).
					Int("failures", failed).
					Msg("abandoning activity")
				return
			}
			continue
		}
		failed = 0
		c.reviewPages.Add(1)

		for record := range w.extractor.Extract(doc, w.target.OutputCity()) {
			if err := w.publish(record); err != nil {
				c.publishFailures.Add(1)
				continue
			}
			c.records.Add(1)
		}
	}
}

func (w *Worker) fetch(ctx context.Context, kind, url string) (*crawler.Document, error) {
	start := time.Now()
	doc, err := w.fetcher.Fetch(ctx, url)
	metrics.ObserveFetch(kind, err, time.Since(start))
	if err != nil {
		w.log.Error().
			Err(err).
			Str("kind", kind).
			Str("url", url).
			Bool("retryable", errors.Retryable(err)).
			Msg("fetch failed")
		if w.failures != nil {
			w.failures.RecordFailure(kind, url, err)
		}
		return nil, err
	}
	return doc, nil
}

func (w *Worker) publish(record crawler.ReviewRecord) error {
	city := w.target.OutputCity()

	data, err := json.Marshal(record)
	if err != nil {
		logger.LogError("worker", err, "failed to encode record")
		metrics.ObserveRecord(city, err, nil)
		return err
	}

	err = w.publisher.Publish(city, data)
	metrics.ObserveRecord(city, err, record.MissingFields())
	if err != nil {
		w.pubLog.Error().Err(err).Str("city", city).Msg("failed to publish record")
		return err
	}

	if !w.opts.Production {
		// Log one record per crawl
		w.sampleOnce.Do(func() {
			w.log.Debug().RawJSON("record", data).Msg("crawled record")
		})
	}
	return nil
}
