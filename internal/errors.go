package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrKind classifies what went wrong with an upstream source.
type ErrKind string

const (
	ErrNetwork   ErrKind = "NETWORK"
	ErrTimeout   ErrKind = "TIMEOUT"
	ErrNotFound  ErrKind = "NOT_FOUND"
	ErrRateLimit ErrKind = "RATE_LIMIT"
	ErrParsing   ErrKind = "PARSING"
	ErrBlocked   ErrKind = "BLOCKED"
	ErrUnknown   ErrKind = "UNKNOWN"
)

// Retryable reports whether a request failing with this kind is worth
// repeating. PARSING and BLOCKED mean the site changed or shut us out.
func (k ErrKind) Retryable() bool {
	switch k {
	case ErrNetwork, ErrTimeout, ErrRateLimit:
		return true
	}
	return false
}

// SourceError wraps an upstream failure with the source it came from.
type SourceError struct {
	Source string
	Kind   ErrKind
	Err    error
}

func NewSourceError(source string, kind ErrKind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Kind)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code to an error kind.
func ClassifyStatus(status int) ErrKind {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return ErrRateLimit
	case status == http.StatusForbidden:
		return ErrBlocked
	case status >= 500:
		return ErrNetwork
	}
	return ErrUnknown
}

// Classify inspects an arbitrary error and picks the closest kind.
func Classify(err error) ErrKind {
	if err == nil {
		return ErrUnknown
	}

	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return ErrTimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "no such host"):
		return ErrNetwork
	case strings.Contains(msg, "json"), strings.Contains(msg, "parse"), strings.Contains(msg, "unexpected"):
		return ErrParsing
	}
	return ErrUnknown
}
