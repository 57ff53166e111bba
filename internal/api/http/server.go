// Package apihttp exposes search and sync administration over HTTP.
package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moviestream/searchservice/internal/domain"
	"moviestream/searchservice/internal/importer"
	"moviestream/searchservice/internal/syncer"
)

const (
	maxQueryLength = 500
	maxImportPages = 50
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) domain.SearchResponse
	Suggest(ctx context.Context, prefix string, limit int) []string
	IndexHealthy(ctx context.Context) bool
}

type SyncService interface {
	FullSync(ctx context.Context) (syncer.FullSyncReport, error)
	SyncMovie(ctx context.Context, slug string) error
	CheckSyncStatus(ctx context.Context) (domain.SyncStatus, error)
}

// Reindexer recreates the indices from scratch.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

type ImportService interface {
	Run(ctx context.Context, pages int) (importer.Report, error)
}

type Server struct {
	search    SearchService
	sync      SyncService
	reindexer Reindexer
	importer  ImportService
	logger    *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func WithSync(sync SyncService) ServerOption {
	return func(s *Server) { s.sync = sync }
}

func WithReindexer(reindexer Reindexer) ServerOption {
	return func(s *Server) { s.reindexer = reindexer }
}

func WithImporter(imp ImportService) ServerOption {
	return func(s *Server) { s.importer = imp }
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/suggest", s.handleSuggest)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/admin/sync/status", s.handleSyncStatus)
	mux.HandleFunc("/admin/sync", s.handleSync)
	mux.HandleFunc("/admin/reindex", s.handleReindex)
	mux.HandleFunc("/admin/import", s.handleImport)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "movie-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"index":     s.search != nil && s.search.IndexHealthy(r.Context()),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	// A blank keyword is valid: with filters it browses, without it returns
	// an empty result set.
	query := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if query == "" {
		query = strings.TrimSpace(r.URL.Query().Get("q"))
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 24)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	if limit > 100 {
		limit = 100
	}

	request := domain.SearchRequest{
		Query:   query,
		Page:    page,
		Limit:   limit,
		SortBy:  domain.NormalizeSortBy(strings.TrimSpace(r.URL.Query().Get("sortBy"))),
		Filters: parseSearchFilters(r),
		NoCache: parseOptionalBool(r.URL.Query().Get("nocache")),
	}

	response := s.search.Search(r.Context(), request)
	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.String("source", response.Source),
		slog.Int("total", response.Total),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/suggest" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if prefix == "" {
		prefix = strings.TrimSpace(r.URL.Query().Get("q"))
	}
	if len(prefix) < 2 {
		writeJSON(w, http.StatusOK, map[string]any{"items": []string{}})
		return
	}
	limit, err := parsePositiveInt(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	if limit > 20 {
		limit = 20
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Suggest(r.Context(), prefix, limit),
	})
}

// handleSync runs a full sync, or a single movie sync when the body names a
// slug.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/admin/sync" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.sync == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "sync service is not configured")
		return
	}

	var payload struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if slug := strings.TrimSpace(payload.Slug); slug != "" {
		if err := s.sync.SyncMovie(r.Context(), slug); err != nil {
			s.logger.Warn("movie sync failed", slog.String("slug", slug), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "sync_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "slug": slug})
		return
	}

	report, err := s.sync.FullSync(r.Context())
	if err != nil {
		s.logger.Error("full sync failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "sync_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/admin/sync/status" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.sync == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "sync service is not configured")
		return
	}

	status, err := s.sync.CheckSyncStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "status_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReindex drops the indices, recreates them and reloads everything
// from the catalog.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/admin/reindex" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.reindexer == nil || s.sync == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "reindex is not configured")
		return
	}

	if err := s.reindexer.Reindex(r.Context()); err != nil {
		s.logger.Error("reindex failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "reindex_failed", err.Error())
		return
	}
	report, err := s.sync.FullSync(r.Context())
	if err != nil {
		s.logger.Error("full sync after reindex failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "sync_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/admin/import" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.importer == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "importer is not configured")
		return
	}

	var payload struct {
		Pages int `json:"pages"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if payload.Pages == 0 {
		pages, err := parsePositiveInt(r, "pages", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		payload.Pages = pages
	}
	if payload.Pages <= 0 {
		payload.Pages = 1
	}
	if payload.Pages > maxImportPages {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("pages must be at most %d", maxImportPages))
		return
	}

	report, err := s.importer.Run(r.Context(), payload.Pages)
	if err != nil {
		s.logger.Error("import failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "import_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseSearchFilters(r *http.Request) domain.SearchFilters {
	q := r.URL.Query()
	var filters domain.SearchFilters

	filters.Type = strings.ToLower(strings.TrimSpace(q.Get("type")))
	filters.Section = strings.ToLower(strings.TrimSpace(q.Get("section")))
	filters.CategorySlugs = parseCSV(q.Get("categories"))
	filters.CountrySlugs = parseCSV(q.Get("countries"))

	if raw := strings.TrimSpace(q.Get("recommended")); raw != "" {
		value := parseOptionalBool(raw)
		filters.Recommended = &value
	}
	if v := strings.TrimSpace(q.Get("yearFrom")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.YearFrom = n
		}
	}
	if v := strings.TrimSpace(q.Get("yearTo")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.YearTo = n
		}
	}
	return filters
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
