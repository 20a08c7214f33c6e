package scraper

import (
	"errors"
	"fmt"
)

// FailureKind tags the recoverable failure modes of a scrape cycle.
type FailureKind int

const (
	KindLaunch FailureKind = iota + 1
	KindAuthTimeout
	KindExtraction
	KindPersistence
	KindInvalidIdentifier
)

func (k FailureKind) String() string {
	switch k {
	case KindLaunch:
		return "launch_failure"
	case KindAuthTimeout:
		return "auth_element_timeout"
	case KindExtraction:
		return "extraction_failure"
	case KindPersistence:
		return "persistence_failure"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidURL        = errors.New("invalid Instagram URL")
	ErrElementNotFound   = errors.New("element not found")
	ErrContentMissing    = errors.New("comment content cell not found")
	ErrContentTimeout    = errors.New("timed out waiting for comment content")
	ErrMalformedDocument = errors.New("malformed comment document")
)

// ScrapeError carries the failure kind alongside the underlying cause.
type ScrapeError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

func newScrapeError(kind FailureKind, op string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Op: op, Err: err}
}

// KindOf reports the failure kind of err, or false when err is not a ScrapeError.
func KindOf(err error) (FailureKind, bool) {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
