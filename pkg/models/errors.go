package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a download failure for the retry policy.
type ErrorKind int

const (
	// ErrUnknown covers programming errors and anything unclassified.
	// The policy fails fast on these.
	ErrUnknown ErrorKind = iota
	// ErrUnavailable means the content is gone or blocked; retrying cannot help.
	ErrUnavailable
	// ErrAntiAutomation means the upstream challenged or blocked the client
	// identity; the policy rotates identity before retrying.
	ErrAntiAutomation
	// ErrRateLimited means the upstream is throttling; retry after backoff.
	ErrRateLimited
	// ErrTransient covers network hiccups and upstream 5xx; retry after backoff.
	ErrTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnavailable:
		return "unavailable"
	case ErrAntiAutomation:
		return "anti-automation"
	case ErrRateLimited:
		return "rate-limited"
	case ErrTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// DownloadError carries the failure class, a user-facing message and an
// actionable hint alongside the underlying cause.
type DownloadError struct {
	Kind    ErrorKind
	Message string
	Hint    string
	Err     error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError wraps cause with a classification, message and hint.
func NewDownloadError(kind ErrorKind, msg, hint string, cause error) *DownloadError {
	return &DownloadError{Kind: kind, Message: msg, Hint: hint, Err: cause}
}

// KindOf returns the classification of err. Errors not carrying an explicit
// DownloadError are classified heuristically; context cancellation and plain
// network failures count as transient, everything else is unknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrUnknown
	}
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrTransient
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "unexpected eof"),
		strings.Contains(msg, "timeout"):
		return ErrTransient
	case strings.Contains(msg, "too many requests"):
		return ErrRateLimited
	}
	return ErrUnknown
}

// HintOf returns the remediation hint attached to err, if any.
func HintOf(err error) string {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Hint
	}
	return ""
}
