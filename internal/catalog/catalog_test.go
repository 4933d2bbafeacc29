package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const popularResponse = `{
	"nextPageToken": "NEXT",
	"pageInfo": {"totalResults": 100, "resultsPerPage": 50},
	"items": [
		{
			"id": "vid1",
			"snippet": {
				"title": "First Video",
				"channelTitle": "Channel One",
				"publishedAt": "2024-01-01T00:00:00Z",
				"thumbnails": {"high": {"url": "https://img/high1.jpg"}, "default": {"url": "https://img/def1.jpg"}}
			},
			"statistics": {"viewCount": "1234"}
		},
		{
			"id": "",
			"snippet": {"title": "Broken entry"}
		}
	]
}`

const searchResponse = `{
	"nextPageToken": "NEXT",
	"prevPageToken": "PREV",
	"pageInfo": {"totalResults": 150, "resultsPerPage": 50},
	"items": [
		{
			"id": {"kind": "youtube#video", "videoId": "vid1"},
			"snippet": {
				"title": "Search Hit",
				"channelTitle": "Channel One",
				"publishedAt": "2024-02-02T00:00:00Z",
				"thumbnails": {"high": {"url": "https://img/high1.jpg"}}
			}
		}
	]
}`

const statsResponse = `{
	"items": [
		{"id": "vid1", "statistics": {"viewCount": "42000"}}
	]
}`

func TestMostPopular(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/videos", r.URL.Path)
		require.Equal(t, "mostPopular", r.URL.Query().Get("chart"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, popularResponse)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	page, err := client.MostPopular(context.Background(), "")
	require.NoError(t, err)

	require.Equal(t, 2, page.TotalPages)
	require.Equal(t, "NEXT", page.NextPageToken)
	// The id-less entry is dropped.
	require.Len(t, page.Data, 1)
	require.Equal(t, "vid1", page.Data[0].VideoID)
	require.Equal(t, "First Video", page.Data[0].Title)
	require.Equal(t, "https://img/high1.jpg", page.Data[0].Thumbnail)
	require.EqualValues(t, 1234, page.Data[0].Views)
}

func TestMostPopular_PageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "TOKEN", r.URL.Query().Get("pageToken"))
		fmt.Fprint(w, popularResponse)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.MostPopular(context.Background(), "TOKEN")
	require.NoError(t, err)
}

func TestSearch_MergesStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			require.Equal(t, "cats", r.URL.Query().Get("q"))
			require.Equal(t, "video", r.URL.Query().Get("type"))
			fmt.Fprint(w, searchResponse)
		case "/videos":
			require.Equal(t, "vid1", r.URL.Query().Get("id"))
			fmt.Fprint(w, statsResponse)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	page, err := client.Search(context.Background(), "cats", "")
	require.NoError(t, err)

	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, "PREV", page.PrevPageToken)
	require.Len(t, page.Data, 1)
	require.EqualValues(t, 42000, page.Data[0].Views)
}

func TestSearch_StatsFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, searchResponse)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	page, err := client.Search(context.Background(), "cats", "")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Zero(t, page.Data[0].Views)
}

func TestQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.MostPopular(context.Background(), "")
	require.ErrorIs(t, err, ErrQuotaExceeded)
}
