package simplepresign

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidInput indicates a missing or empty required request field
	ErrInvalidInput = errors.New("invalid input")

	// ErrCredentialUnavailable indicates no usable storage credential could be resolved
	ErrCredentialUnavailable = errors.New("storage credentials not available")

	// ErrSigning indicates the storage provider SDK failed to sign a URL
	ErrSigning = errors.New("signing failed")

	// ErrUnsupportedMethod indicates the transport received an HTTP verb it does not serve
	ErrUnsupportedMethod = errors.New("method not allowed")
)

// Client-facing error messages shared by the transports
const (
	MsgInvalidJSON      = "Invalid JSON format in request body."
	MsgFileNameRequired = "fileName is required in the request body."
	MsgBodyTooLarge     = "Request body too large."
	MsgMethodNotAllowed = "Method Not Allowed"
	MsgInternal         = "An unexpected server error occurred."
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// InputError describes which request field was rejected.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// SigningError represents a provider failure while signing a URL
type SigningError struct {
	Backend string
	Method  string
	Key     string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("%s signing of %s %s failed: %v", e.Backend, e.Method, e.Key, e.Err)
}

func (e *SigningError) Unwrap() []error {
	return []error{ErrSigning, e.Err}
}

// IsClientError reports whether err should be surfaced to the caller as a client error.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
