package schema

import (
	"errors"
	"fmt"
)

// Infrastructure failure kinds. Policy-level failures (unparseable decisions,
// missing files, unknown actions) never surface as errors; they are recorded
// in the conversation instead.
var (
	ErrStorage  = errors.New("storage failure")
	ErrUpstream = errors.New("upstream failure")
	ErrTimeout  = errors.New("timeout")
)

// StorageError wraps a persistence read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// UpstreamError is returned by model clients when a request fails.
// StatusCode is zero for transport failures. Err carries ErrTimeout when
// the request timed out.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": upstream failure"
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}
