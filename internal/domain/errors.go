package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSupplierNotFound     = errors.New("supplier not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrSupplierDisconnected = errors.New("supplier is disconnected")
	ErrNoExtractor          = errors.New("no extractor registered for source type")
	ErrInvalidLocator       = errors.New("invalid source locator")
	ErrTimeout              = errors.New("remote fetch timed out")
	ErrNetwork              = errors.New("remote fetch network failure")
	ErrUnexpectedStatus     = errors.New("remote fetch unexpected status")
)

// SourceError is a fatal source failure: the source could not be detected or
// reached at all, so the run aborted before making progress.
type SourceError struct {
	Locator string
	Stage   string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q failed at %s: %v", e.Locator, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// FetchKind classifies remote fetch failures.
type FetchKind string

const (
	FetchTimeout FetchKind = "timeout"
	FetchNetwork FetchKind = "network"
	FetchStatus  FetchKind = "status"
)

// FetchError is returned by the remote fetch collaborator.
type FetchError struct {
	Kind   FetchKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is maps the fetch kinds onto the package sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == FetchTimeout
	case ErrNetwork:
		return e.Kind == FetchNetwork
	case ErrUnexpectedStatus:
		return e.Kind == FetchStatus
	}
	return false
}

// Retryable reports whether another attempt may succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchNetwork:
		return true
	case FetchStatus:
		return e.Status == 429 || e.Status >= 500
	}
	return false
}

// OperationError wraps any failure leaving the operation surface.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
