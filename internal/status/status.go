package status

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("event: not found")
	ErrSourceAuth         = errors.New("source: authentication failed")
	ErrSourceRequest      = errors.New("source: request failed")
	ErrAmbiguousResult    = errors.New("source: ambiguous result")
	ErrNoListingsObserved = errors.New("zone: no listings observed")
	ErrUnsupported        = errors.New("source: operation not supported")
	ErrArtifactNotFound   = errors.New("artifact: not found")
	ErrStoreScan          = errors.New("store: scan tracked events failed")
)

// SourceError is a non-200 reply from a ticket source. It matches
// ErrSourceRequest (or ErrSourceAuth for token exchange) with errors.Is.
type SourceError struct {
	Source     string
	Op         string
	EventID    int64
	StatusCode int
	Body       string
	auth       bool
}

func NewSourceError(source, op string, eventID int64, statusCode int, body string) *SourceError {
	return &SourceError{Source: source, Op: op, EventID: eventID, StatusCode: statusCode, Body: body}
}

func NewAuthError(source string, statusCode int, body string) *SourceError {
	return &SourceError{Source: source, Op: "login", StatusCode: statusCode, Body: body, auth: true}
}

func (e *SourceError) Error() string {
	if e.auth {
		return fmt.Sprintf("%s login failed. Status: %d. Text: %s", e.Source, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("could not %s for event %d from %s. Status: %d. Text: %s", e.Op, e.EventID, e.Source, e.StatusCode, e.Body)
}

func (e *SourceError) Unwrap() error {
	if e.auth {
		return ErrSourceAuth
	}
	return ErrSourceRequest
}
