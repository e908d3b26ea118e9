package mmolb

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/fortuna/stathistory/internal/cache"
)

const (
	// DefaultMaxConnections caps simultaneous upstream requests.
	DefaultMaxConnections = 4
	// DefaultCacheTTL is how long a cached response stays valid.
	DefaultCacheTTL = 25 * time.Minute

	// UserAgent identifies the tool to the community API.
	UserAgent = "stathistory/1.0 (+https://github.com/fortuna/stathistory)"

	maxBodyBytes = 32 << 20
)

// Progress is told how many fetches of a batch have finished.
type Progress func(done, total int)

// Fetcher performs cached GET requests under a shared concurrency cap.
// Every request, from any batch, holds one permit of the same semaphore
// while it is on the wire.
type Fetcher struct {
	httpClient *http.Client
	cache      cache.Cache
	ttl        time.Duration
	permits    *semaphore.Weighted
	inflight   singleflight.Group
	logger     *log.Logger
}

// NewFetcher builds a fetcher. A nil cache disables caching; a nil logger
// logs with a "[fetcher]" prefix.
func NewFetcher(httpClient *http.Client, c cache.Cache, ttl time.Duration, maxConnections int, logger *log.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxConnections < 1 {
		maxConnections = DefaultMaxConnections
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[fetcher] ", log.LstdFlags)
	}

	return &Fetcher{
		httpClient: httpClient,
		cache:      c,
		ttl:        ttl,
		permits:    semaphore.NewWeighted(int64(maxConnections)),
		logger:     logger,
	}
}

// Get returns the body at url, from cache when fresh. Concurrent calls for
// the same url share one request. The shared request is detached from any
// one caller's cancellation; a cancelled caller stops waiting but the
// others still get the result.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shared := context.WithoutCancel(ctx)
	ch := f.inflight.DoChan(url, func() (any, error) {
		return f.get(shared, url)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	cached, ok, err := f.cache.Get(ctx, url)
	if err != nil {
		f.logger.Printf("⚠️  cache read failed for %s: %v", url, err)
	} else if ok {
		return cached, nil
	}

	if err := f.permits.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	body, err := f.do(ctx, url)
	f.permits.Release(1)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, url, body, f.ttl); err != nil {
		f.logger.Printf("⚠️  cache write failed for %s: %v", url, err)
	}
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: status %d: %s", url, resp.StatusCode, snippet(body))
	}
	return body, nil
}

// GetAll fetches every url concurrently and returns the bodies in request
// order. The first failure cancels the rest and fails the batch.
func (f *Fetcher) GetAll(ctx context.Context, urls []string, progress Progress) ([][]byte, error) {
	bodies := make([][]byte, len(urls))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			body, err := f.Get(gctx, url)
			if err != nil {
				return err
			}
			bodies[i] = body
			if progress != nil {
				progress(int(done.Add(1)), len(urls))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func snippet(body []byte) string {
	return string(body[:min(len(body), 200)])
}
