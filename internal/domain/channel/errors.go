package channel

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var (
	// Authorization errors
	ErrAuthFailed        = errors.New("channel: authorization failed")
	ErrAuthStateMismatch = errors.New("channel: authorization state mismatch")
	ErrAlreadyAuthorized = errors.New("channel: connector already authorized")
	ErrNotReady          = errors.New("channel: connector not ready")
	ErrRefreshFailed     = errors.New("channel: token refresh failed")

	// Persistence errors
	ErrCredentialNotFound = errors.New("channel: credential not found")
	ErrWatermarkNotFound  = errors.New("channel: order watermark not found")
	ErrStateNotFound      = errors.New("channel: authorization state not found")

	// Connector errors
	ErrUnknownPlatform      = errors.New("channel: unknown platform")
	ErrHooksExist           = errors.New("channel: webhooks already registered")
	ErrHooksUnsupported     = errors.New("channel: platform does not support webhooks")
	ErrOrderPollUnsupported = errors.New("channel: platform does not support order polling")

	// Snapshot errors
	ErrDuplicateSKU    = errors.New("channel: duplicate sku in snapshot")
	ErrInvalidQuantity = errors.New("channel: quantity must not be negative")
)

// ---------------------------------------------------------------------------
// PlatformError
// ---------------------------------------------------------------------------

// PlatformError represents a non-2xx response from an external platform.
// The raw response body is retained for diagnostics; no automatic retry is
// performed on a PlatformError.
type PlatformError struct {
	// Platform identifies the connector that produced the error
	Platform PlatformCode
	// StatusCode is the HTTP status returned by the platform
	StatusCode int
	// Body is the raw response body
	Body string
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: platform request failed with status %d: %s", e.Platform, e.StatusCode, e.Body)
}

// NewPlatformError creates a PlatformError from a platform response
func NewPlatformError(platform PlatformCode, statusCode int, body []byte) *PlatformError {
	return &PlatformError{Platform: platform, StatusCode: statusCode, Body: string(body)}
}

// AsPlatformError unwraps err into a *PlatformError if possible
func AsPlatformError(err error) (*PlatformError, bool) {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
