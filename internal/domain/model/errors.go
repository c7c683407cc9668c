package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable marks an external provider that is unreachable
	// or returned a non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse marks an unexpected payload shape from an upstream.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// StorageError wraps a persistence or query failure. Read paths treat it as
// non-fatal; the pruning path logs it and retries on the next cycle.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PriceFetchError is the terminal failure of the authoritative median fetch
// after all retries. It fails the whole snapshot request.
type PriceFetchError struct {
	Pairs    []string
	Attempts int
	Err      error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("median fetch failed after %d attempts for %v: %v", e.Attempts, e.Pairs, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }
