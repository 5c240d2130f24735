package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrNotFound is returned when a single-row query matches nothing
var ErrNotFound = errors.New("not found")

// ErrTooLarge is returned when a response exceeds the configured body cap
var ErrTooLarge = errors.New("response body too large")

// codeNoRows is the PostgREST error code for a single-object query that
// matched zero (or several) rows
const codeNoRows = "PGRST116"

// APIError is a non-2xx response from the data store
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("unexpected status: %d %s (%s)", e.Status, msg, e.Code)
	}
	return fmt.Sprintf("unexpected status: %d %s", e.Status, msg)
}

// isNoRows reports whether err is the PostgREST zero-rows error
func isNoRows(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeNoRows
}

// isRetryable reports whether a failed attempt may succeed if repeated:
// server errors, 429 and transport failures. Cancellation is final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
