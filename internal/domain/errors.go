package domain

import (
	"errors"
)

// Client errors: the caller can correct the request.
var (
	// ErrInvalidURL signals a missing or malformed source URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrAlreadyScraped signals that the owner already ingested the URL.
	ErrAlreadyScraped = errors.New("URL already scraped for this user")
	// ErrPageLoad signals an unreachable page or a navigation timeout.
	ErrPageLoad = errors.New("failed to load URL")
	// ErrQueryRequired signals an empty search query.
	ErrQueryRequired = errors.New("search query is required")
	// ErrInvalidQuery signals a search query outside accepted bounds.
	ErrInvalidQuery = errors.New("invalid search query")
	// ErrNotFound signals a missing record or one owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrBusy signals that every browser slot and queue position is taken.
	ErrBusy = errors.New("too many concurrent ingestions")
	// ErrCanceled signals that the caller gave up (cancelled or timed out)
	// before the work could finish.
	ErrCanceled = errors.New("request canceled")
)

// Server errors: the request was valid but could not be completed.
var (
	// ErrExtraction signals that a loaded page could not be read.
	ErrExtraction = errors.New("failed to extract content")
	// ErrBrowserUnavailable signals that a browser session could not be started.
	ErrBrowserUnavailable = errors.New("browser unavailable")
	// ErrEmbeddingUnavailable signals a model load or inference failure.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrCompletionFailed signals an AI service failure. It never leaves the
	// stage that called the service.
	ErrCompletionFailed = errors.New("completion failed")
)

// FailureKind classifies a failed request.
type FailureKind string

const (
	// FailureClient means the caller can fix the request.
	FailureClient FailureKind = "client"
	// FailureServer means the failure is on our side.
	FailureServer FailureKind = "server"
)

var clientErrors = []error{
	ErrInvalidURL,
	ErrAlreadyScraped,
	ErrPageLoad,
	ErrQueryRequired,
	ErrInvalidQuery,
	ErrNotFound,
	ErrBusy,
	ErrCanceled,
}

// Classify maps an error onto the client/server taxonomy.
// Anything not recognised as a client error is a server error.
func Classify(err error) FailureKind {
	for _, ce := range clientErrors {
		if errors.Is(err, ce) {
			return FailureClient
		}
	}
	return FailureServer
}
