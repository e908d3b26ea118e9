package mmolb_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/stathistory/internal/mmolb"
)

// memCache is a map-backed cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("cache down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return fmt.Errorf("cache down")
}

func TestFetcherServesFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "body")
	}))
	defer srv.Close()

	c := newMemCache()
	f := mmolb.NewFetcher(srv.Client(), c, 25*time.Minute, 4, nil)

	for i := 0; i < 3; i++ {
		body, err := f.Get(context.Background(), srv.URL+"/x")
		require.NoError(t, err)
		assert.Equal(t, "body", string(body))
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 25*time.Minute, c.ttls[srv.URL+"/x"])
}

func TestFetcherCacheFailureFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fresh")
	}))
	defer srv.Close()

	f := mmolb.NewFetcher(srv.Client(), failingCache{}, 0, 0, nil)
	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(body))
}

func TestFetcherDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newMemCache()
	f := mmolb.NewFetcher(srv.Client(), c, time.Minute, 1, nil)

	_, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
	_, err = f.Get(context.Background(), srv.URL)
	require.Error(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Empty(t, c.data)
}

func TestFetcherGetAllSingleConnection(t *testing.T) {
	var active, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := active.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		fmt.Fprint(w, r.URL.Query().Get("i"))
	}))
	defer srv.Close()

	f := mmolb.NewFetcher(srv.Client(), nil, time.Minute, 1, nil)

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/?i=%d", srv.URL, i)
	}
	bodies, err := f.GetAll(context.Background(), urls, nil)
	require.NoError(t, err)
	for i, body := range bodies {
		assert.Equal(t, fmt.Sprint(i), string(body))
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestFetcherHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "late")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := mmolb.NewFetcher(srv.Client(), nil, time.Minute, 1, nil)
	_, err := f.GetAll(ctx, []string{srv.URL + "/a", srv.URL + "/b"}, nil)
	assert.Error(t, err)
}

func TestFetcherSharedRequestOutlivesCancelledCaller(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, "body")
	}))
	defer srv.Close()

	f := mmolb.NewFetcher(srv.Client(), nil, time.Minute, 4, nil)
	url := srv.URL + "/x"

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := f.Get(ctxA, url)
		errA <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	type result struct {
		body []byte
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		body, err := f.Get(context.Background(), url)
		resB <- result{body, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, "body", string(res.body))
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the shared result")
	}
	assert.Equal(t, int32(1), hits.Load())
}
