package transcript

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tubenotes/tubenotes/internal/proxy"
	"github.com/tubenotes/tubenotes/internal/subtitle"
	"github.com/tubenotes/tubenotes/pkg/log"
)

// Record is one cached transcript.
type Record struct {
	VideoID   string
	Language  string
	Source    string
	Text      string
	FetchedAt time.Time
}

// Cache is a read-through transcript store. Get returns (nil, nil) on a
// miss; implementations decide expiry.
type Cache interface {
	Get(ctx context.Context, videoID string) (*Record, error)
	Put(ctx context.Context, rec Record) error
}

// Result is a successfully retrieved transcript.
type Result struct {
	VideoID  string `json:"video_id"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Source   string `json:"source"`
	Cached   bool   `json:"cached"`
}

// Service drives acquisition strategies in fixed priority order with
// deterministic backoff and maps every terminal failure onto the closed
// taxonomy. One invocation holds no state beyond its own attempt loop;
// concurrent fetches of the same video id are collapsed.
type Service struct {
	strategies []Strategy
	proxy      *proxy.Endpoint

	maxAttempts int
	backoffBase time.Duration
	blockedBase time.Duration
	overall     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	cache Cache
	group singleflight.Group
}

// Option is a function type for configuring Service
type Option func(*Service)

// WithCache enables read-through caching of fetched transcripts.
func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMaxAttempts bounds retries of a single strategy.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

// WithOverallTimeout bounds one whole FetchTranscript invocation,
// including all backoff waits.
func WithOverallTimeout(d time.Duration) Option {
	return func(s *Service) { s.overall = d }
}

// WithBackoff overrides the backoff bases. The pre-attempt delay is
// base*(attempt+1) and the post-block wait is blocked*(attempt+1).
func WithBackoff(base, blocked time.Duration) Option {
	return func(s *Service) {
		s.backoffBase = base
		s.blockedBase = blocked
	}
}

// WithSleeper replaces the sleep function, letting tests run the exact
// backoff schedule against a fake clock.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// NewService builds the orchestrator. Strategies are tried strictly in
// the given order; via is the shared proxy endpoint (nil for direct).
func NewService(strategies []Strategy, via *proxy.Endpoint, opts ...Option) *Service {
	s := &Service{
		strategies:  strategies,
		proxy:       via,
		maxAttempts: 3,
		backoffBase: time.Second,
		blockedBase: 3 * time.Second,
		overall:     45 * time.Second,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchTranscript retrieves the spoken-word text for a video id. It
// returns the first non-empty transcript any strategy produces; on
// exhaustion the recorded failures are aggregated into one *Error.
func (s *Service) FetchTranscript(ctx context.Context, videoID string) (Result, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return Result{}, NewError(KindInvalidInput, "video id must not be empty")
	}

	// Duplicate in-flight fetches for the same video collapse into one
	// upstream retrieval.
	v, err, _ := s.group.Do(videoID, func() (any, error) {
		return s.fetch(ctx, videoID)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) fetch(ctx context.Context, videoID string) (Result, error) {
	if s.cache != nil {
		if rec, err := s.cache.Get(ctx, videoID); err != nil {
			log.Warn("transcript cache lookup failed for %s: %v", videoID, err)
		} else if rec != nil {
			log.Debug("transcript cache hit for %s", videoID)
			return Result{
				VideoID:  videoID,
				Text:     rec.Text,
				Language: rec.Language,
				Source:   rec.Source,
				Cached:   true,
			}, nil
		}
	}

	if s.overall > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.overall)
		defer cancel()
	}

	result, err := s.run(ctx, videoID)
	if err != nil {
		return Result{}, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, Record{
			VideoID:   videoID,
			Language:  result.Language,
			Source:    result.Source,
			Text:      result.Text,
			FetchedAt: time.Now(),
		}); err != nil {
			log.Warn("transcript cache store failed for %s: %v", videoID, err)
		}
	}

	return result, nil
}

// run is the attempt loop: for each strategy in priority order, a
// deterministic pre-attempt delay, one invocation with the proxy toggle
// for that attempt, retry on retryable failures, advance otherwise.
func (s *Service) run(ctx context.Context, videoID string) (Result, error) {
	var failures []*Error

	for _, strategy := range s.strategies {
		for attempt := 0; attempt < s.maxAttempts; attempt++ {
			if err := s.sleep(ctx, s.backoffBase*time.Duration(attempt+1)); err != nil {
				return Result{}, deadlineError(failures)
			}

			via := s.viaFor(attempt)
			log.Debug("transcript attempt %d/%d via %s for %s (proxy: %s)",
				attempt+1, s.maxAttempts, strategy.Name(), videoID, via.Redacted())

			text, err := strategy.Fetch(ctx, videoID, via)
			if err == nil && text != "" {
				log.Info("fetched transcript for %s via %s: %d characters",
					videoID, strategy.Name(), len(text))
				return Result{
					VideoID:  videoID,
					Text:     text,
					Language: langCode(subtitle.DetectLanguage(text)),
					Source:   strategy.Name(),
				}, nil
			}

			failure := attemptFailure(err)
			failures = append(failures, failure)
			log.Warn("transcript attempt %d via %s failed for %s: %v",
				attempt+1, strategy.Name(), videoID, failure)

			if ctx.Err() != nil {
				return Result{}, deadlineError(failures)
			}
			if !IsRetryable(failure.Kind) {
				break
			}
			if failure.Kind == KindBlocked && attempt < s.maxAttempts-1 {
				// Anti-automation trips cool off longer before the retry.
				if err := s.sleep(ctx, s.blockedBase*time.Duration(attempt+1)); err != nil {
					return Result{}, deadlineError(failures)
				}
			}
		}
	}

	return Result{}, aggregate(failures)
}

// viaFor is the proxy toggle: even attempts go through the shared proxy,
// odd attempts go direct. Without a configured proxy everything is direct.
func (s *Service) viaFor(attempt int) *proxy.Endpoint {
	if s.proxy == nil || attempt%2 == 1 {
		return nil
	}
	return s.proxy
}

// attemptFailure types a single failed attempt. A decode or network error
// and a successful-but-empty fetch are the same thing here: the attempt
// produced no transcript.
func attemptFailure(err error) *Error {
	if err != nil {
		return asError(err)
	}
	return NewError(KindNoCaptions, "strategy produced an empty transcript")
}

// kindPriority orders the taxonomy for aggregation: the most actionable
// signal across all recorded failures wins.
var kindPriority = []Kind{
	KindBlocked,
	KindCaptionsDisabled,
	KindVideoUnavailable,
	KindNoCaptions,
	KindUnknown,
}

var kindMessages = map[Kind]string{
	KindBlocked:          "the upstream is blocking requests, try again later",
	KindCaptionsDisabled: "this video has transcripts disabled",
	KindVideoUnavailable: "video is unavailable or private",
	KindNoCaptions:       "no transcript available in any preferred language",
	KindUnknown:          "transcript could not be fetched",
}

// aggregate maps the recorded failures onto one caller-visible error.
// Raw upstream text is retained as detail only.
func aggregate(failures []*Error) *Error {
	if len(failures) == 0 {
		return NewError(KindUnknown, kindMessages[KindUnknown])
	}

	for _, kind := range kindPriority {
		for _, failure := range failures {
			if failure.Kind != kind {
				continue
			}
			err := NewError(kind, kindMessages[kind])
			if failure.Detail != "" {
				err = err.WithDetail(failure.Detail)
			} else if failure.Cause != nil {
				err = err.WithDetail(failure.Cause.Error())
			}
			return err
		}
	}

	return NewError(KindUnknown, kindMessages[KindUnknown])
}

func deadlineError(failures []*Error) *Error {
	err := NewError(KindUnknown, "transcript retrieval timed out")
	if len(failures) > 0 {
		err = err.WithDetail(aggregate(failures).Error())
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
