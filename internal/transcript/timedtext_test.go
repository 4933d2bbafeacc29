package transcript

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newTimedTextStrategy(t *testing.T, url string, langs ...language.Tag) *TimedTextStrategy {
	t.Helper()
	if len(langs) == 0 {
		langs = []language.Tag{language.English, language.Spanish}
	}
	return NewTimedTextStrategy(langs, 5*time.Second, nil, WithTimedTextBaseURL(url))
}

func TestTimedText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/timedtext", r.URL.Path)
		require.Equal(t, "abc", r.URL.Query().Get("v"))
		if r.URL.Query().Get("lang") == "en" && r.URL.Query().Get("kind") == "" {
			fmt.Fprint(w, trackPayload)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL)
	text, err := strat.Fetch(context.Background(), "abc", nil)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestTimedText_LanguageFallback(t *testing.T) {
	var langsTried []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if r.URL.Query().Get("kind") == "" {
			langsTried = append(langsTried, lang)
		}
		if lang == "es" && r.URL.Query().Get("kind") == "" {
			fmt.Fprint(w, `{"events":[{"segs":[{"utf8":"hola"}]}]}`)
			return
		}
		// 200 with empty body means no such track.
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL)
	text, err := strat.Fetch(context.Background(), "abc", nil)
	require.NoError(t, err)
	require.Equal(t, "hola", text)
	require.Equal(t, []string{"en", "es"}, langsTried)
}

func TestTimedText_AutomaticTrackFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "en" && r.URL.Query().Get("kind") == "asr" {
			fmt.Fprint(w, trackPayload)
		}
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL, language.English)
	text, err := strat.Fetch(context.Background(), "abc", nil)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestTimedText_NoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Empty 200 for every language and kind.
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL)
	_, err := strat.Fetch(context.Background(), "abc", nil)
	require.True(t, IsKind(err, KindNoCaptions))
	require.Contains(t, err.Error(), "en, es")
}

func TestTimedText_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL)
	_, err := strat.Fetch(context.Background(), "abc", nil)
	require.True(t, IsKind(err, KindBlocked))
}

func TestTimedText_BlockedInterstitial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>Sign in to confirm you're not a bot</html>`)
	}))
	defer srv.Close()

	strat := newTimedTextStrategy(t, srv.URL)
	_, err := strat.Fetch(context.Background(), "abc", nil)
	require.True(t, IsKind(err, KindBlocked))
}
