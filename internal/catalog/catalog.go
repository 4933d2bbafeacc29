// Package catalog wraps the YouTube Data API v3 endpoints the app needs:
// trending listings, keyword search and per-video statistics.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tubenotes/tubenotes/pkg/log"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

const maxResultsPerPage = 50

var ErrQuotaExceeded = errors.New("quota exceeded")

type Client struct {
	key        string
	baseURL    string
	httpClient *http.Client
}

// Option is a function type for configuring Client
type Option func(*Client)

// WithBaseURL points the client at a different API host, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func NewClient(key string, opts ...Option) *Client {
	c := &Client{
		key:     key,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Video is one catalog entry in the shape the frontend consumes.
type Video struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	VideoID   string `json:"video_id"`
	Channel   string `json:"channel"`
	Views     int64  `json:"views"`
	PostDate  string `json:"postDate"`
}

// Page is one page of catalog results. Page tokens are handed to the
// client and passed back on /next and /prev; the server keeps no
// pagination state.
type Page struct {
	TotalPages    int     `json:"total_pages"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	PrevPageToken string  `json:"prev_page_token,omitempty"`
	Data          []Video `json:"data"`
}

// videoID accepts both shapes the API uses: a bare string on /videos and
// an object with a videoId field on /search.
type videoID string

func (v *videoID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = videoID(s)
		return nil
	}
	var obj struct {
		VideoId string
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*v = videoID(obj.VideoId)
	return nil
}

type thumbnail struct {
	Url string
}

type listResponse struct {
	NextPageToken string
	PrevPageToken string
	PageInfo      struct {
		TotalResults   int
		ResultsPerPage int
	}
	Items []struct {
		Id      videoID
		Snippet struct {
			Title        string
			ChannelTitle string
			PublishedAt  string
			Thumbnails   map[string]thumbnail
		}
		Statistics struct {
			ViewCount string
		}
	}
}

// MostPopular lists the trending chart, optionally continuing from a page
// token. Statistics come inline, no second call needed.
func (c *Client) MostPopular(ctx context.Context, pageToken string) (*Page, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("maxResults", strconv.Itoa(maxResultsPerPage))
	params.Set("regionCode", "US")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var res listResponse
	if err := c.get(ctx, "/videos", params, &res); err != nil {
		return nil, fmt.Errorf("most popular listing: %w", err)
	}

	return c.toPage(&res, nil), nil
}

// Search runs a keyword search. The search endpoint returns no
// statistics, so view counts are resolved with one batched /videos call.
func (c *Client) Search(ctx context.Context, query, pageToken string) (*Page, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("relevanceLanguage", "en")
	params.Set("maxResults", strconv.Itoa(maxResultsPerPage))
	params.Set("type", "video")
	params.Set("regionCode", "US")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var res listResponse
	if err := c.get(ctx, "/search", params, &res); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	ids := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Id != "" {
			ids = append(ids, string(item.Id))
		}
	}

	stats, err := c.stats(ctx, ids)
	if err != nil {
		// Listings still render without view counts.
		log.Warn("fetching video statistics failed: %v", err)
		stats = nil
	}

	return c.toPage(&res, stats), nil
}

// stats fetches view counts for up to one page of video ids in a single
// batched call.
func (c *Client) stats(ctx context.Context, ids []string) (map[string]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("part", "statistics")
	params.Set("id", strings.Join(ids, ","))

	var res listResponse
	if err := c.get(ctx, "/videos", params, &res); err != nil {
		return nil, err
	}

	views := make(map[string]int64, len(res.Items))
	for _, item := range res.Items {
		views[string(item.Id)] = parseViews(item.Statistics.ViewCount)
	}
	return views, nil
}

func (c *Client) toPage(res *listResponse, stats map[string]int64) *Page {
	page := &Page{
		NextPageToken: res.NextPageToken,
		PrevPageToken: res.PrevPageToken,
		Data:          make([]Video, 0, len(res.Items)),
	}

	for _, item := range res.Items {
		id := string(item.Id)
		if id == "" {
			// Entries without a video id cannot be summarized.
			continue
		}

		views := parseViews(item.Statistics.ViewCount)
		if stats != nil {
			views = stats[id]
		}

		page.Data = append(page.Data, Video{
			Title:     item.Snippet.Title,
			Thumbnail: bestThumbnail(item.Snippet.Thumbnails),
			VideoID:   id,
			Channel:   item.Snippet.ChannelTitle,
			Views:     views,
			PostDate:  item.Snippet.PublishedAt,
		})
	}

	if res.PageInfo.ResultsPerPage > 0 {
		page.TotalPages = res.PageInfo.TotalResults / res.PageInfo.ResultsPerPage
	}

	return page
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusForbidden {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("status code %d: %q", res.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshalling response: %w", err)
	}
	return nil
}

var thumbSizes = []string{"maxres", "high", "medium", "standard", "default"}

// bestThumbnail returns the highest resolution thumbnail available.
func bestThumbnail(thumbs map[string]thumbnail) string {
	for _, size := range thumbSizes {
		if thumb, ok := thumbs[size]; ok && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

func parseViews(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
