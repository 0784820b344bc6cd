package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// statusClientClosedRequest is the de-facto status for a request the
// client abandoned (nginx convention); net/http has no constant for it.
const statusClientClosedRequest = 499

// errorMapping maps a domain sentinel onto an HTTP response.
type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidURL, http.StatusBadRequest, ErrorCodeInvalidURL},
	{domain.ErrQueryRequired, http.StatusBadRequest, ErrorCodeQueryRequired},
	{domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery},
	{domain.ErrAlreadyScraped, http.StatusConflict, ErrorCodeAlreadyScraped},
	{domain.ErrPageLoad, http.StatusBadRequest, ErrorCodePageLoadFailed},
	{domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound},
	{domain.ErrBusy, http.StatusServiceUnavailable, ErrorCodeBusy},
	{domain.ErrCanceled, statusClientClosedRequest, ErrorCodeCanceled},
	{domain.ErrExtraction, http.StatusInternalServerError, ErrorCodeExtractionFailed},
}

// mapError returns the status, code and client-safe message for err.
// Unrecognised errors become a generic 500 without internal details.
func mapError(err error) (int, ErrorCode, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code, m.sentinel.Error()
		}
	}
	return http.StatusInternalServerError, ErrorCodeInternalError, "internal error"
}
