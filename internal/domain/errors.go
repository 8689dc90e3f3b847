package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the catalog, storage, and application layers.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("invalid catalog credential")
	ErrNotFound   = errors.New("catalog user not found")
	ErrTransport  = errors.New("catalog transport error")
	ErrStorage    = errors.New("storage error")
)

// TransportError carries the non-success response that failed one catalog fetch.
type TransportError struct {
	StatusCode int
	Status     string
}

// Error implements error.
func (e *TransportError) Error() string {
	if e == nil {
		return ErrTransport.Error()
	}
	if e.Status == "" {
		return fmt.Sprintf("%s: status %d", ErrTransport, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", ErrTransport, e.Status)
}

// Unwrap lets errors.Is match ErrTransport.
func (e *TransportError) Unwrap() error {
	return ErrTransport
}
