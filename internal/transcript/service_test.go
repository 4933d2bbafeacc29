package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tubenotes/tubenotes/internal/proxy"
)

type fakeResult struct {
	text string
	err  error
}

// fakeStrategy counts calls and records the proxy passed per attempt.
// Results are consumed one per call; the last one repeats.
type fakeStrategy struct {
	name    string
	results []fakeResult

	mu      sync.Mutex
	calls   int
	proxies []*proxy.Endpoint
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(_ context.Context, _ string, via *proxy.Endpoint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	f.proxies = append(f.proxies, via)
	res := f.results[idx]
	return res.text, res.err
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClock records every sleep instead of waiting.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func newTestService(clock *fakeClock, via *proxy.Endpoint, strategies ...Strategy) *Service {
	return NewService(strategies, via,
		WithSleeper(clock.sleep),
		WithBackoff(time.Second, 3*time.Second),
		WithMaxAttempts(3),
		WithOverallTimeout(0),
	)
}

func TestFetchTranscript_InvalidInput(t *testing.T) {
	strat := &fakeStrategy{name: "a", results: []fakeResult{{text: "never"}}}
	svc := newTestService(&fakeClock{}, nil, strat)

	for _, id := range []string{"", "   ", "\t\n"} {
		_, err := svc.FetchTranscript(context.Background(), id)
		require.True(t, IsKind(err, KindInvalidInput), "id %q", id)
	}

	// No strategy was ever invoked.
	require.Zero(t, strat.callCount())
}

func TestFetchTranscript_FirstSuccessWins(t *testing.T) {
	first := &fakeStrategy{name: "a", results: []fakeResult{{text: "hello world"}}}
	second := &fakeStrategy{name: "b", results: []fakeResult{{text: "other"}}}
	svc := newTestService(&fakeClock{}, nil, first, second)

	res, err := svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Text)
	require.Equal(t, "a", res.Source)
	require.Equal(t, 1, first.callCount())
	require.Zero(t, second.callCount())
}

func TestFetchTranscript_AdvanceOnTerminalFailure(t *testing.T) {
	first := &fakeStrategy{name: "a", results: []fakeResult{
		{err: NewError(KindNoCaptions, "no caption track")},
	}}
	second := &fakeStrategy{name: "b", results: []fakeResult{{text: "from strategy two"}}}
	svc := newTestService(&fakeClock{}, nil, first, second)

	res, err := svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "from strategy two", res.Text)
	require.Equal(t, "b", res.Source)
	// NoCaptions is terminal for the strategy: exactly one attempt.
	require.Equal(t, 1, first.callCount())
}

func TestFetchTranscript_BlockedRetrySchedule(t *testing.T) {
	blocked := NewError(KindBlocked, "sign in to confirm you're not a bot")
	first := &fakeStrategy{name: "a", results: []fakeResult{{err: blocked}}}
	second := &fakeStrategy{name: "b", results: []fakeResult{{err: blocked}}}
	clock := &fakeClock{}
	svc := newTestService(clock, nil, first, second)

	_, err := svc.FetchTranscript(context.Background(), "abc123")
	require.True(t, IsKind(err, KindBlocked))
	require.Contains(t, err.Error(), "try again later")

	// Each strategy is retried up to the attempt bound.
	require.Equal(t, 3, first.callCount())
	require.Equal(t, 3, second.callCount())

	// The schedule is a pure function of the attempt index: pre-attempt
	// delays 1s,2s,3s interleaved with escalated 3s,6s waits after each
	// non-final blocked attempt, per strategy.
	perStrategy := []time.Duration{
		1 * time.Second, 3 * time.Second,
		2 * time.Second, 6 * time.Second,
		3 * time.Second,
	}
	want := append(append([]time.Duration{}, perStrategy...), perStrategy...)
	require.Equal(t, want, clock.sleeps)
}

func TestFetchTranscript_UnknownRetriedWithoutEscalation(t *testing.T) {
	boom := errors.New("connection reset by peer")
	strat := &fakeStrategy{name: "a", results: []fakeResult{{err: boom}}}
	clock := &fakeClock{}
	svc := newTestService(clock, nil, strat)

	_, err := svc.FetchTranscript(context.Background(), "abc123")
	require.True(t, IsKind(err, KindUnknown))
	require.Equal(t, 3, strat.callCount())
	require.Equal(t,
		[]time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second},
		clock.sleeps)
}

func TestFetchTranscript_EmptyTextIsFailure(t *testing.T) {
	first := &fakeStrategy{name: "a", results: []fakeResult{{text: ""}}}
	second := &fakeStrategy{name: "b", results: []fakeResult{{text: "non empty"}}}
	svc := newTestService(&fakeClock{}, nil, first, second)

	res, err := svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "non empty", res.Text)
}

func TestFetchTranscript_AggregatePriority(t *testing.T) {
	// CaptionsDisabled outranks NoCaptions in the aggregated result.
	first := &fakeStrategy{name: "a", results: []fakeResult{
		{err: NewError(KindNoCaptions, "no caption track")},
	}}
	second := &fakeStrategy{name: "b", results: []fakeResult{
		{err: NewError(KindCaptionsDisabled, "transcripts disabled").WithDetail("upstream said so")},
	}}
	svc := newTestService(&fakeClock{}, nil, first, second)

	_, err := svc.FetchTranscript(context.Background(), "abc123")
	require.True(t, IsKind(err, KindCaptionsDisabled))

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "upstream said so", terr.Detail)
}

func TestFetchTranscript_Idempotent(t *testing.T) {
	strat := &fakeStrategy{name: "a", results: []fakeResult{
		{err: NewError(KindVideoUnavailable, "video is private")},
	}}
	svc := newTestService(&fakeClock{}, nil, strat)

	for i := 0; i < 3; i++ {
		_, err := svc.FetchTranscript(context.Background(), "abc123")
		require.True(t, IsKind(err, KindVideoUnavailable), "invocation %d", i)
	}
}

func TestFetchTranscript_ProxyToggle(t *testing.T) {
	ep := &proxy.Endpoint{Host: "gate", Port: "8080", Username: "u", Password: "p"}
	blocked := NewError(KindBlocked, "bot check")
	strat := &fakeStrategy{name: "a", results: []fakeResult{{err: blocked}}}
	svc := newTestService(&fakeClock{}, ep, strat)

	_, err := svc.FetchTranscript(context.Background(), "abc123")
	require.Error(t, err)

	// Even attempts ride the shared proxy, odd attempts go direct.
	require.Equal(t, []*proxy.Endpoint{ep, nil, ep}, strat.proxies)
}

func TestFetchTranscript_NoProxyConfigured(t *testing.T) {
	strat := &fakeStrategy{name: "a", results: []fakeResult{{text: "ok then"}}}
	svc := newTestService(&fakeClock{}, nil, strat)

	_, err := svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, []*proxy.Endpoint{nil}, strat.proxies)
}

func TestFetchTranscript_DeadlineSurfacesAsTimeout(t *testing.T) {
	blocked := NewError(KindBlocked, "bot check")
	strat := &fakeStrategy{name: "a", results: []fakeResult{{err: blocked}}}

	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService([]Strategy{strat}, nil,
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel() // the deadline fires during a backoff wait
			return ctx.Err()
		}),
		WithOverallTimeout(0),
	)

	_, err := svc.FetchTranscript(ctx, "abc123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
	require.Zero(t, strat.callCount())
}

type fakeCache struct {
	mu   sync.Mutex
	recs map[string]Record
	gets int
	puts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{recs: make(map[string]Record)}
}

func (c *fakeCache) Get(_ context.Context, videoID string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if rec, ok := c.recs[videoID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (c *fakeCache) Put(_ context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.recs[rec.VideoID] = rec
	return nil
}

func TestFetchTranscript_CacheReadThrough(t *testing.T) {
	strat := &fakeStrategy{name: "a", results: []fakeResult{{text: "the spoken words"}}}
	cache := newFakeCache()
	svc := NewService([]Strategy{strat}, nil,
		WithSleeper((&fakeClock{}).sleep),
		WithCache(cache),
		WithOverallTimeout(0),
	)

	res, err := svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, 1, cache.puts)

	res, err = svc.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Equal(t, "the spoken words", res.Text)
	require.Equal(t, 1, strat.callCount())
}
