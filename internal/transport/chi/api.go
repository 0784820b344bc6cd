package chi

import (
	"time"

	"github.com/kailas-cloud/pagevec/internal/domain"
	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeInvalidURL       ErrorCode = "invalid_url"
	ErrorCodeAlreadyScraped   ErrorCode = "already_scraped"
	ErrorCodePageLoadFailed   ErrorCode = "page_load_failed"
	ErrorCodeQueryRequired    ErrorCode = "query_required"
	ErrorCodeInvalidQuery     ErrorCode = "invalid_query"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeBusy             ErrorCode = "busy"
	ErrorCodeCanceled         ErrorCode = "canceled"
	ErrorCodeExtractionFailed ErrorCode = "extraction_failed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ScrapeRequest is the body of POST /api/scrape.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// RecordResponse is a stored page without its embedding.
type RecordResponse struct {
	ID        string                   `json:"id"`
	URL       string                   `json:"url"`
	Title     string                   `json:"title"`
	Content   domain.NormalizedContent `json:"content"`
	CreatedAt time.Time                `json:"createdAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListResponse is the body of GET /api/scrape.
type ListResponse struct {
	Data       []RecordResponse `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	RecordResponse
	Score float64 `json:"score"`
}

// SearchResponse is the body of POST /api/search.
type SearchResponse struct {
	Query      string      `json:"query"`
	SearchText string      `json:"searchText"`
	Rewritten  bool        `json:"rewritten"`
	Results    []SearchHit `json:"results"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func recordToResponse(r *dompage.Record) RecordResponse {
	return RecordResponse{
		ID:        r.ID(),
		URL:       r.SourceURL(),
		Title:     r.Title(),
		Content:   r.Content(),
		CreatedAt: r.CreatedAt(),
	}
}
