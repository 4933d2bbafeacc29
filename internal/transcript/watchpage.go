package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/tubenotes/tubenotes/internal/proxy"
	"github.com/tubenotes/tubenotes/internal/subtitle"
)

// WatchPageStrategy does full extraction: it loads the video's watch page,
// enumerates the caption tracks embedded in the player config, picks the
// best track and downloads its payload for decoding.
type WatchPageStrategy struct {
	f         *fetcher
	languages []language.Tag
	baseURL   string
}

// WatchPageOption configures a WatchPageStrategy.
type WatchPageOption func(*WatchPageStrategy)

// WithWatchPageBaseURL points the strategy at a different upstream,
// used by tests to target a local fake.
func WithWatchPageBaseURL(url string) WatchPageOption {
	return func(s *WatchPageStrategy) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

func NewWatchPageStrategy(languages []language.Tag, timeout time.Duration, limiter *rate.Limiter, opts ...WatchPageOption) *WatchPageStrategy {
	s := &WatchPageStrategy{
		f:         newFetcher(timeout, limiter),
		languages: languages,
		baseURL:   "https://www.youtube.com",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WatchPageStrategy) Name() string {
	return "watchpage"
}

// track is one caption stream from the player config. Kind "asr" marks
// machine-generated tracks.
type track struct {
	BaseUrl      string
	LanguageCode string
	Kind         string
}

type captionsConfig struct {
	PlayerCaptionsTracklistRenderer struct {
		CaptionTracks []track
	}
}

func (s *WatchPageStrategy) Fetch(ctx context.Context, videoID string, via *proxy.Endpoint) (string, error) {
	body, status, err := s.f.get(ctx, fmt.Sprintf("%s/watch?v=%s", s.baseURL, videoID), via)
	if err != nil {
		return "", NewErrorWithCause(KindUnknown, "watch page request failed", err)
	}
	page := string(body)

	if status == http.StatusTooManyRequests {
		return "", NewError(KindBlocked, "watch page rate limited").WithDetail(fmt.Sprintf("status %d", status))
	}
	if status != http.StatusOK {
		return "", NewError(KindUnknown, "unexpected watch page status").WithDetail(fmt.Sprintf("status %d", status))
	}

	if strings.Contains(page, `action="https://consent.youtube.com/s"`) {
		return "", NewError(KindBlocked, "watch page served a consent form")
	}
	if strings.Contains(page, `class="g-recaptcha"`) {
		return "", NewError(KindBlocked, "watch page served a captcha")
	}

	tracks, err := extractTracks(page)
	if err != nil {
		return "", err
	}

	best := pickTrack(tracks, s.languages)
	if best == nil {
		return "", NewError(KindNoCaptions, "no caption track for any preferred language")
	}

	return s.download(ctx, best, via)
}

// extractTracks cuts the captions JSON out of the watch page. The player
// config is one big inline JSON blob, the captions object sits between
// `"captions":` and `,"videoDetails`.
func extractTracks(page string) ([]track, error) {
	split := strings.Split(page, `"captions":`)
	if len(split) <= 1 {
		if strings.Contains(page, `"playabilityStatus"`) && strings.Contains(page, `"ERROR"`) {
			return nil, NewError(KindVideoUnavailable, "video is not playable")
		}
		return nil, NewError(KindNoCaptions, "watch page has no captions config")
	}

	raw := strings.ReplaceAll(strings.Split(split[1], `,"videoDetails`)[0], "\n", "")
	var cfg captionsConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, NewErrorWithCause(KindUnknown, "could not parse captions config", err)
	}

	return cfg.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// pickTrack selects a caption track. Human-authored tracks beat
// machine-generated ("asr") ones; within each class the language
// preference order decides, then any track of that class.
func pickTrack(tracks []track, languages []language.Tag) *track {
	manual := func(t track) bool { return t.Kind != "asr" }

	for _, lang := range languages {
		code := langCode(lang)
		for i, t := range tracks {
			if manual(t) && t.LanguageCode == code {
				return &tracks[i]
			}
		}
	}
	for _, lang := range languages {
		code := langCode(lang)
		for i, t := range tracks {
			if t.LanguageCode == code {
				return &tracks[i]
			}
		}
	}
	for i, t := range tracks {
		if manual(t) {
			return &tracks[i]
		}
	}
	if len(tracks) > 0 {
		return &tracks[0]
	}
	return nil
}

func langCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// download fetches the selected track. The structured json3 encoding is
// preferred; when its payload does not parse, the plain timed-text
// rendition of the same track is fetched as fallback.
func (s *WatchPageStrategy) download(ctx context.Context, t *track, via *proxy.Endpoint) (string, error) {
	body, status, err := s.f.get(ctx, t.BaseUrl+"&fmt=json3", via)
	if err != nil {
		return "", NewErrorWithCause(KindUnknown, "caption track request failed", err)
	}
	if status != http.StatusOK {
		return "", NewError(KindUnknown, "caption track request rejected").WithDetail(fmt.Sprintf("status %d", status))
	}

	text, err := subtitle.Decode(body, subtitle.FormatJSON3)
	if err == nil {
		return text, nil
	}

	body, status, err = s.f.get(ctx, t.BaseUrl+"&fmt=vtt", via)
	if err != nil {
		return "", NewErrorWithCause(KindUnknown, "caption track request failed", err)
	}
	if status != http.StatusOK {
		return "", NewError(KindUnknown, "caption track request rejected").WithDetail(fmt.Sprintf("status %d", status))
	}

	text, err = subtitle.Decode(body, subtitle.FormatTimedText)
	if err != nil {
		return "", NewErrorWithCause(KindUnknown, "caption track payload did not decode", err)
	}
	return text, nil
}
