package transcript

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/tubenotes/tubenotes/internal/proxy"
	"github.com/tubenotes/tubenotes/internal/subtitle"
)

// TimedTextStrategy looks transcripts up directly by video id against the
// timedtext endpoint, walking the language preference list in order. It
// skips the watch page entirely, which makes it cheaper but blind to
// track metadata: a manual and an automatic track are tried per language.
type TimedTextStrategy struct {
	f         *fetcher
	languages []language.Tag
	baseURL   string
}

// TimedTextOption configures a TimedTextStrategy.
type TimedTextOption func(*TimedTextStrategy)

// WithTimedTextBaseURL points the strategy at a different upstream,
// used by tests to target a local fake.
func WithTimedTextBaseURL(url string) TimedTextOption {
	return func(s *TimedTextStrategy) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

func NewTimedTextStrategy(languages []language.Tag, timeout time.Duration, limiter *rate.Limiter, opts ...TimedTextOption) *TimedTextStrategy {
	s := &TimedTextStrategy{
		f:         newFetcher(timeout, limiter),
		languages: languages,
		baseURL:   "https://www.youtube.com",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TimedTextStrategy) Name() string {
	return "timedtext"
}

func (s *TimedTextStrategy) Fetch(ctx context.Context, videoID string, via *proxy.Endpoint) (string, error) {
	for _, lang := range s.languages {
		code := langCode(lang)

		// Manual track first, then the machine-generated one.
		for _, kind := range []string{"", "asr"} {
			url := fmt.Sprintf("%s/api/timedtext?v=%s&lang=%s&fmt=json3", s.baseURL, videoID, code)
			if kind != "" {
				url += "&kind=" + kind
			}

			body, status, err := s.f.get(ctx, url, via)
			if err != nil {
				return "", NewErrorWithCause(KindUnknown, "timedtext request failed", err)
			}

			switch {
			case status == http.StatusTooManyRequests:
				return "", NewError(KindBlocked, "timedtext rate limited").WithDetail(fmt.Sprintf("status %d", status))
			case status == http.StatusForbidden:
				return "", NewError(KindBlocked, "timedtext request rejected").WithDetail(fmt.Sprintf("status %d", status))
			case status == http.StatusNotFound:
				// No track in this language, try the next one.
				continue
			case status != http.StatusOK:
				return "", NewError(KindUnknown, "unexpected timedtext status").WithDetail(fmt.Sprintf("status %d", status))
			}

			// The endpoint answers 200 with an empty body when the
			// track does not exist.
			if len(strings.TrimSpace(string(body))) == 0 {
				continue
			}
			if looksBlocked(string(body)) {
				return "", NewError(KindBlocked, "timedtext served an anti-automation page").WithDetail(snippet(string(body)))
			}

			text, err := subtitle.Decode(body, subtitle.FormatJSON3)
			if err != nil {
				return "", NewErrorWithCause(KindUnknown, "timedtext payload did not decode", err)
			}
			if text != "" {
				return text, nil
			}
		}
	}

	return "", NewError(KindNoCaptions,
		fmt.Sprintf("no transcript available in %s", languageList(s.languages)))
}

// looksBlocked spots anti-automation interstitials served in place of a
// caption payload.
func looksBlocked(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "sign in to confirm") ||
		strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "unusual traffic")
}

func snippet(body string) string {
	const max = 200
	body = strings.TrimSpace(body)
	if len(body) > max {
		return body[:max]
	}
	return body
}

func languageList(tags []language.Tag) string {
	codes := make([]string, 0, len(tags))
	for _, tag := range tags {
		codes = append(codes, langCode(tag))
	}
	return strings.Join(codes, ", ")
}
