package pagevec

import (
	"errors"
	"fmt"
)

// Sentinel errors for API error codes. Use errors.Is() to check.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidURL       = errors.New("invalid url")
	ErrAlreadyScraped   = errors.New("URL already scraped")
	ErrPageLoad         = errors.New("failed to load URL")
	ErrQueryRequired    = errors.New("search query is required")
	ErrInvalidQuery     = errors.New("invalid search query")
	ErrNotFound         = errors.New("not found")
	ErrBusy             = errors.New("server busy")
	ErrCanceled         = errors.New("request canceled")
	ErrExtraction       = errors.New("failed to extract content")
	ErrServer           = errors.New("server error")
	errUnexpectedStatus = errors.New("unexpected status")
)

var codeErrors = map[string]error{
	"bad_request":       ErrBadRequest,
	"unauthorized":      ErrUnauthorized,
	"invalid_url":       ErrInvalidURL,
	"already_scraped":   ErrAlreadyScraped,
	"page_load_failed":  ErrPageLoad,
	"query_required":    ErrQueryRequired,
	"invalid_query":     ErrInvalidQuery,
	"not_found":         ErrNotFound,
	"busy":              ErrBusy,
	"canceled":          ErrCanceled,
	"extraction_failed": ErrExtraction,
	"internal_error":    ErrServer,
}

// APIError is a failed API call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pagevec: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the error code onto its sentinel.
func (e *APIError) Unwrap() error {
	if err, ok := codeErrors[e.Code]; ok {
		return err
	}
	if e.Status >= 500 {
		return ErrServer
	}
	return errUnexpectedStatus
}
