package apiclient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Common errors surfaced by the client and the refresher.
var (
	// ErrUnauthenticated is returned when an operation needs credentials the
	// store does not hold, or when a token refresh has failed and the session
	// was invalidated.
	ErrUnauthenticated = errors.New("unauthenticated")
)

const maxErrorBody = 64 * 1024

// Error is the normalized form of every non-2xx response. Detail carries the
// server-provided "detail" or "message" field when the body had one, otherwise
// a generic message; raw transport errors never reach callers unwrapped.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return e.Detail
}

// StatusCode extracts the HTTP status from an error chain, 0 when the error
// did not come from an HTTP response (e.g. a transport failure).
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// normalizeError turns a non-2xx response into an *Error, preferring the
// structured detail/message fields the TaskFlow backends use.
func normalizeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			detail = payload.Detail
		} else if payload.Message != "" {
			detail = payload.Message
		}
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	if detail == "" {
		detail = "an error occurred"
	}

	return &Error{StatusCode: resp.StatusCode, Detail: detail}
}
