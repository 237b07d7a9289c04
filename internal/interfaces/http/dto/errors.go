package dto

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeUnauthorized is used when authorization is missing or rejected
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeConflict is used for resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeUpstream is used when an external platform rejected a call
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodeUnsupported is used when a platform lacks the requested capability
	ErrCodeUnsupported = "ERR_UNSUPPORTED"
)
