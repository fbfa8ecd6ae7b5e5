package crawler

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"sjsage522/reviewworker/helpers"
	"sjsage522/reviewworker/logger"
	"sjsage522/reviewworker/pkg/errors"
	"sjsage522/reviewworker/services/cache"
	"sjsage522/reviewworker/services/proxy"

	"golang.org/x/time/rate"
)

// FetcherConfig configures an HTTPFetcher
type FetcherConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables the limiter
	CacheEnabled      bool
	CacheTTL          time.Duration
	BlockKey          string
	BlockTime         time.Duration
	ProxyURL          string
}

// HTTPFetcher fetches pages over HTTP with optional response caching, rate
// limiting and a shared block window after the site answers 429.
type HTTPFetcher struct {
	client    *http.Client
	cacheSvc  cache.CacheService
	cacheOn   bool
	cacheTTL  time.Duration
	blockKey  string
	blockTime time.Duration
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewHTTPFetcher creates a fetcher. cacheSvc may be nil.
func NewHTTPFetcher(cfg FetcherConfig, cacheSvc cache.CacheService) (*HTTPFetcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	if cfg.ProxyURL != "" {
		p, err := proxy.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		client.Transport = proxy.Transport(p)
	}

	f := &HTTPFetcher{
		client:    client,
		cacheSvc:  cacheSvc,
		cacheOn:   cfg.CacheEnabled && cacheSvc != nil,
		cacheTTL:  cfg.CacheTTL,
		blockKey:  cfg.BlockKey,
		blockTime: cfg.BlockTime,
		log:       logger.ForFetcher(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return f, nil
}

// Fetch returns the parsed page at url
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if body, ok := f.cached(url); ok {
		return NewDocumentFromBytes(url, body)
	}

	if f.blocked() {
		return nil, errors.NewRateLimit(url, f.blockTime)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.NewNetwork(url, "rate limiter wait aborted", err)
		}
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, f.client, url)
	if err != nil {
		if errors.Is(err, errors.ErrorTypeRateLimit) {
			f.block()
		}
		return nil, err
	}

	if f.cacheOn {
		if setErr := f.cacheSvc.Set(pageKey(url), body, f.cacheTTL); setErr != nil {
			f.log.Warn().Err(setErr).Str("url", url).Msg("failed to cache page")
		}
	}

	return NewDocumentFromBytes(url, body)
}

func (f *HTTPFetcher) cached(url string) ([]byte, bool) {
	if !f.cacheOn {
		return nil, false
	}
	body, err := f.cacheSvc.Get(pageKey(url))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (f *HTTPFetcher) blocked() bool {
	if f.cacheSvc == nil || f.blockKey == "" {
		return false
	}
	_, err := f.cacheSvc.Get(f.blockKey)
	return err == nil
}

func (f *HTTPFetcher) block() {
	if f.cacheSvc == nil || f.blockKey == "" || f.blockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", f.blockTime/time.Second))
	if err := f.cacheSvc.Set(f.blockKey, value, f.blockTime); err != nil {
		f.log.Warn().Err(err).Str("key", f.blockKey).Msg("failed to set block key")
		return
	}
	f.log.Warn().Str("key", f.blockKey).Dur("block_time", f.blockTime).Msg("rate limited, pausing requests")
}

// pageKey hashes url into a key that fits memcache's key rules
func pageKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "page:" + hex.EncodeToString(sum[:])
}
