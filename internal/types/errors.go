package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoProducts     = errors.New("no products found")
	ErrSessionClosed  = errors.New("session is closed")
	ErrUnsupported    = errors.New("operation not supported by this session")
	ErrUnknownSite    = errors.New("unknown site profile")
	ErrRunInProgress  = errors.New("a crawl run is already in progress")
	ErrNoNextControl  = errors.New("no next page control")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrSelectorAbsent = errors.New("selector not present")
)

// NavigationError is a page-level failure: the page could not be loaded or
// an awaited condition timed out.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation error for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractError is a node-level failure while reading one product node.
type ExtractError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur while parsing page source.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DiscoveryError wraps a failure inside one pagination strategy.
type DiscoveryError struct {
	Strategy string
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("pagination strategy %q failed: %v", e.Strategy, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// SessionError is fatal for a crawl run: the browser session could not be
// launched or has died.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage   string
	Product *Product
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
