package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tubenotes/tubenotes/internal/transcript"
	"github.com/tubenotes/tubenotes/pkg/log"
)

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, err := s.catalog.MostPopular(r.Context(), r.URL.Query().Get("pageToken"))
	if err != nil {
		log.Error("most popular listing failed: %v", err)
		writeError(w, http.StatusBadGateway, "could not load videos")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "Search query is required",
			"total_pages": 0,
			"data":        []any{},
		})
		return
	}

	page, err := s.catalog.Search(r.Context(), query, r.URL.Query().Get("pageToken"))
	if err != nil {
		log.Error("search %q failed: %v", query, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       err.Error(),
			"total_pages": 0,
			"data":        []any{},
		})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleNext and handlePrev page through either the search results or the
// trending chart. Tokens live on the client and come back as query
// parameters; the server holds no session state.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.handlePageTurn(w, r)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.handlePageTurn(w, r)
}

func (s *Server) handlePageTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("pageToken"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "pageToken is required")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))

	var err error
	var page any
	if query != "" {
		page, err = s.catalog.Search(r.Context(), query, token)
	} else {
		page, err = s.catalog.MostPopular(r.Context(), token)
	}
	if err != nil {
		log.Error("page turn failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"data":  []any{},
		})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	videoID := r.URL.Query().Get("videoId")
	if strings.TrimSpace(videoID) == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid videoId")
		return
	}

	result, err := s.transcripts.FetchTranscript(r.Context(), videoID)
	if err != nil {
		kind := transcript.KindOf(err)
		log.Error("transcript retrieval for %s failed as %s: %v", videoID, kind, err)
		writeJSON(w, statusForKind(kind), map[string]any{
			"error": userMessage(err),
			"kind":  kind.String(),
		})
		return
	}

	sum, err := s.summarizer.Summarize(r.Context(), result.Text)
	if err != nil {
		log.Error("summarization for %s failed: %v", videoID, err)
		writeError(w, http.StatusBadGateway, "Failed to summarize transcript")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  sum,
		"video_id": result.VideoID,
		"language": result.Language,
		"cached":   result.Cached,
	})
}

// statusForKind maps the transcript error taxonomy onto HTTP statuses.
func statusForKind(kind transcript.Kind) int {
	switch kind {
	case transcript.KindInvalidInput:
		return http.StatusBadRequest
	case transcript.KindCaptionsDisabled, transcript.KindNoCaptions, transcript.KindVideoUnavailable:
		return http.StatusNotFound
	case transcript.KindBlocked:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// userMessage strips internal detail from the outgoing error text.
func userMessage(err error) string {
	var terr *transcript.Error
	if errors.As(err, &terr) {
		return terr.Message
	}
	return "Transcript could not be fetched"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
