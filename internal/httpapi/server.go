package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tubenotes/tubenotes/internal/catalog"
	"github.com/tubenotes/tubenotes/internal/summary"
	"github.com/tubenotes/tubenotes/internal/transcript"
)

type catalogClient interface {
	MostPopular(ctx context.Context, pageToken string) (*catalog.Page, error)
	Search(ctx context.Context, query, pageToken string) (*catalog.Page, error)
}

type transcriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (transcript.Result, error)
}

type summarizer interface {
	Summarize(ctx context.Context, text string) (*summary.Summary, error)
}

type Server struct {
	catalog     catalogClient
	transcripts transcriptFetcher
	summarizer  summarizer

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func NewServer(catalog catalogClient, transcripts transcriptFetcher, summarizer summarizer, opts ...Option) *Server {
	s := &Server{
		catalog:     catalog,
		transcripts: transcripts,
		summarizer:  summarizer,
		uiEnabled:   false,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/videos", s.handleVideos)
	s.mux.HandleFunc("/search", s.handleSearch)
	s.mux.HandleFunc("/next", s.handleNext)
	s.mux.HandleFunc("/prev", s.handlePrev)
	s.mux.HandleFunc("/summarize", s.handleSummarize)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" {
		http.ServeFile(w, r, indexPath)
		return
	}

	// Extension-less paths like /privacy-policy map to their html page.
	if !strings.Contains(filepath.Base(rel), ".") {
		pagePath := filepath.Join(s.uiStaticDir, rel+".html")
		if _, err := os.Stat(pagePath); err == nil {
			http.ServeFile(w, r, pagePath)
			return
		}
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
