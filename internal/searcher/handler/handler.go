// Package handler exposes the query engine over HTTP for the external
// presentation layer: GET /search for ranked queries and GET /posts/{id}
// for document metadata. "No valid term" and "term not found" are explicit,
// non-error outcomes carried in a signal field.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/irlabs/postsearch/internal/indexer"
	"github.com/irlabs/postsearch/internal/searcher"
	"github.com/irlabs/postsearch/internal/searcher/cache"
	apperrors "github.com/irlabs/postsearch/pkg/errors"
	"github.com/irlabs/postsearch/pkg/logger"
	"github.com/irlabs/postsearch/pkg/metrics"
)

const (
	signalNoValidTerm  = "no_valid_term"
	signalTermNotFound = "term_not_found"
)

// Handler routes search and metadata requests to the engine, with an
// optional query cache.
type Handler struct {
	engine  *searcher.Engine
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler. queryCache and m may be nil.
func New(engine *searcher.Engine, queryCache *cache.QueryCache, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		cache:   queryCache,
		metrics: m,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

type searchResponse struct {
	*searcher.Result
	Signal string `json:"signal,omitempty"`
}

// Search handles GET /search?q=<query>.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	var result *searcher.Result
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, func() (*searcher.Result, error) {
			return h.engine.Search(ctx, query)
		})
	} else {
		result, err = h.engine.Search(ctx, query)
	}

	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNoValidTerm):
			h.countQuery(signalNoValidTerm)
			h.writeJSON(w, http.StatusOK, searchResponse{
				Result: &searcher.Result{Query: query, Results: []searcher.ScoredDoc{}},
				Signal: signalNoValidTerm,
			})
		case errors.Is(err, apperrors.ErrTermNotFound):
			h.countQuery(signalTermNotFound)
			h.writeJSON(w, http.StatusOK, searchResponse{
				Result: &searcher.Result{Query: query, Results: []searcher.ScoredDoc{}},
				Signal: signalTermNotFound,
			})
		default:
			h.countQuery("error")
			status := apperrors.HTTPStatusCode(err)
			message := "search failed"
			if errors.Is(err, apperrors.ErrNotReady) {
				message = "index not loaded"
			} else {
				log.Error("search failed", "query", query, "error", err, "status_code", status)
			}
			h.writeError(w, status, message)
		}
		return
	}

	h.countQuery("hit")
	h.observeLatency(time.Since(start), cacheHit)
	log.Info("search completed",
		"query", query,
		"term", result.Term,
		"total_matches", result.TotalMatches,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{Result: result})
}

// PostMetadata handles GET /posts/{id}.
func (h *Handler) PostMetadata(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/posts/")
	if id == "" || strings.Contains(id, "/") {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "post id is required"))
		return
	}

	md, err := h.engine.ShowMetadata(id)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		message := "metadata lookup failed"
		switch {
		case errors.Is(err, apperrors.ErrDocumentNotFound):
			message = "post not found"
		case errors.Is(err, apperrors.ErrNotReady):
			message = "index not loaded"
		default:
			h.logger.Error("metadata lookup failed", "post_id", id, "error", err, "status_code", status)
		}
		h.writeError(w, status, message)
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		PostID string `json:"post_id"`
		indexer.DocMetadata
	}{PostID: id, DocMetadata: md})
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":   hits,
		"misses": misses,
	})
}

// Register wires the handler's routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/search", h.Search)
	mux.HandleFunc("/posts/", h.PostMetadata)
	mux.HandleFunc("/cache/stats", h.CacheStats)
}

func (h *Handler) countQuery(resultType string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (h *Handler) observeLatency(d time.Duration, cacheHit bool) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(status).Observe(d.Seconds())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	h.writeError(w, apperrors.HTTPStatusCode(appErr), appErr.Message)
}
