package chi

import (
	"context"
	"encoding/json"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	logpkg "github.com/kailas-cloud/pagevec/internal/logger"
	healthuc "github.com/kailas-cloud/pagevec/internal/usecase/health"
	libraryuc "github.com/kailas-cloud/pagevec/internal/usecase/library"
	searchuc "github.com/kailas-cloud/pagevec/internal/usecase/search"
	"github.com/kailas-cloud/pagevec/internal/version"
)

// Ingester stores a page from a URL.
type Ingester interface {
	Ingest(ctx context.Context, owner, rawURL string) (dompage.Record, error)
}

// Library browses and deletes stored pages.
type Library interface {
	List(ctx context.Context, owner string, f dompage.Filter, page, limit int) (libraryuc.Page, error)
	Get(ctx context.Context, owner, id string) (dompage.Record, error)
	Delete(ctx context.Context, owner, id string) error
}

// Searcher answers semantic queries.
type Searcher interface {
	Search(ctx context.Context, owner, query string, limit int) (searchuc.Response, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the pagevec HTTP API.
type Server struct {
	ingest  Ingester
	library Library
	search  Searcher
	health  HealthChecker
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(ingest Ingester, library Library, search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		ingest:  ingest,
		library: library,
		search:  search,
		health:  health,
		logger:  logger,
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r gochi.Router) {
		r.Post("/scrape", s.Scrape)
		r.Get("/scrape", s.ListScrapes)
		r.Get("/scrape/{id}", s.GetScrape)
		r.Delete("/scrape/{id}", s.DeleteScrape)
		r.Post("/search", s.Search)
	})
}

// Scrape handles POST /api/scrape.
func (s *Server) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.ingest.Ingest(r.Context(), OwnerFromContext(r.Context()), req.URL)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, recordToResponse(&rec))
}

// ListScrapes handles GET /api/scrape?title=&url=&page=&limit=.
func (s *Server) ListScrapes(w http.ResponseWriter, r *http.Request) {
	var (
		title, url  string
		page, limit int
	)
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dest any
	}{
		{"title", &title},
		{"url", &url},
		{"page", &page},
		{"limit", &limit},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid query parameter "+p.name)
			return
		}
	}

	res, err := s.library.List(r.Context(), OwnerFromContext(r.Context()),
		dompage.Filter{Title: title, URL: url}, page, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	data := make([]RecordResponse, len(res.Items))
	for i := range res.Items {
		data[i] = recordToResponse(&res.Items[i])
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Data: data,
		Pagination: Pagination{
			Total: res.Total,
			Page:  res.Page,
			Limit: res.Limit,
			Pages: res.Pages,
		},
	})
}

// GetScrape handles GET /api/scrape/{id}.
func (s *Server) GetScrape(w http.ResponseWriter, r *http.Request) {
	rec, err := s.library.Get(r.Context(), OwnerFromContext(r.Context()), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordToResponse(&rec))
}

// DeleteScrape handles DELETE /api/scrape/{id}.
func (s *Server) DeleteScrape(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.Context(), OwnerFromContext(r.Context()), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	res, err := s.search.Search(r.Context(), OwnerFromContext(r.Context()), req.Query, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	hits := make([]SearchHit, len(res.Hits))
	for i := range res.Hits {
		hits[i] = SearchHit{
			RecordResponse: recordToResponse(&res.Hits[i].Record),
			Score:          res.Hits[i].Score,
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:      res.Query,
		SearchText: res.SearchText,
		Rewritten:  res.Rewritten,
		Results:    hits,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	log := logpkg.FromContextOr(r.Context(), s.logger).With(
		zap.String("owner", OwnerFromContext(r.Context())),
		zap.String("path", r.URL.Path),
	)
	if domain.Classify(err) == domain.FailureServer {
		log.Error("internal error", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}
	writeError(w, status, code, msg)
}
