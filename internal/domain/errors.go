package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoInputFiles is returned when a costing run is requested without any BOM file
	ErrNoInputFiles = errors.New("no input BOM files")

	// ErrUnknownEDATool is returned when no BOM reader is registered for a tool name
	ErrUnknownEDATool = errors.New("unknown EDA tool")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPricingAPIFailure is returned when a pricing API request fails
	ErrPricingAPIFailure = errors.New("pricing API request failed")

	// ErrRateLimited is returned when the pricing API rejects a request for rate reasons
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrMalformedPricing is returned when a local pricing string cannot be parsed
	ErrMalformedPricing = errors.New("malformed pricing string")

	// ErrCanceled is returned when a run is stopped before reconciliation finished
	ErrCanceled = errors.New("costing run canceled")
)

// APIError represents a non-success response from the pricing API
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pricing API error (status %d) from %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("pricing API error (status %d) from %s", e.StatusCode, e.Endpoint)
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrPricingAPIFailure:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// Retryable reports whether the request that produced this error may be retried.
// Server errors and rate limiting are transient; other client errors are not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
