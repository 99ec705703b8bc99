// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_lens/internal/app"
	"review_lens/internal/domain"
)

const (
	maxBodyBytes  = 1 << 20
	maxTarget     = 2000
	maxCanvasSide = 4096
)

var appIDRe = regexp.MustCompile(`^\d+$`)

type Handlers struct {
	A *app.AnalysisService
	Q *app.QueryService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type analyzeRequest struct {
	AppURL      string `json:"appUrl"`
	TargetCount int    `json:"targetCount,omitempty"`
}

type wordCloudRequest struct {
	Words    []domain.WordFrequency `json:"words"`
	Width    float64                `json:"width"`
	Height   float64                `json:"height"`
	MaxWords int                    `json:"maxWords,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/analyze", h.analyze)
	s.mux.Post("/v1/wordcloud", h.wordCloud)
	s.mux.Get("/v1/apps/{id}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAppURL):
		writeProblem(w, http.StatusBadRequest, "Invalid App URL", "expected https://apps.apple.com/{region}/app/{name}/id{digits}")
	case errors.Is(err, domain.ErrInvalidCursor):
		writeProblem(w, http.StatusBadRequest, "Invalid cursor", err.Error())
	case errors.Is(err, domain.ErrNoReviews):
		writeProblem(w, http.StatusNotFound, "No Reviews", "no reviews found for this app")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "app not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "upstream took too long")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.AppURL) == "" {
		writeProblem(w, http.StatusBadRequest, "Missing appUrl", "appUrl is required")
		return
	}
	if req.TargetCount < 0 || req.TargetCount > maxTarget {
		writeProblem(w, http.StatusBadRequest, "Invalid targetCount", "targetCount must be between 1 and 2000")
		return
	}

	out, err := h.A.Analyze(r.Context(), req.AppURL, req.TargetCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) wordCloud(w http.ResponseWriter, r *http.Request) {
	var req wordCloudRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Width > maxCanvasSide || req.Height > maxCanvasSide {
		writeProblem(w, http.StatusBadRequest, "Canvas too large", "width and height must not exceed 4096")
		return
	}
	writeJSON(w, http.StatusOK, h.A.WordCloud(req.Words, req.Width, req.Height, req.MaxWords))
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !appIDRe.MatchString(id) {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	page := domain.PageQuery{Limit: limit, Region: strings.ToUpper(r.URL.Query().Get("region"))}
	if c := r.URL.Query().Get("cursor"); c != "" {
		page.Cursor = &c
	}

	out, err := h.Q.ListReviews(r.Context(), id, page)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.Items == nil {
		out.Items = []domain.Review{}
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}
