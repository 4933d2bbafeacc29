package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of caller-visible transcript retrieval failures.
// Raw upstream error text never becomes the primary signal; it only rides
// along as Detail.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindCaptionsDisabled
	KindNoCaptions
	KindVideoUnavailable
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindCaptionsDisabled:
		return "CaptionsDisabled"
	case KindNoCaptions:
		return "NoCaptions"
	case KindVideoUnavailable:
		return "VideoUnavailable"
	case KindBlocked:
		return "Blocked"
	case KindUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// Error is the only error type the orchestrator surfaces to callers.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Cause   error
}

func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

func NewErrorWithCause(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message))

	if e.Detail != "" {
		parts = append(parts, fmt.Sprintf("detail: %s", e.Detail))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches raw upstream diagnostics to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// KindOf extracts the taxonomy member from err. Errors produced outside
// this package count as Unknown.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given taxonomy member.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// asError coerces any strategy failure into a typed *Error, classifying
// untyped errors by their upstream text.
func asError(err error) *Error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	return NewErrorWithCause(Classify(err.Error()), "transcript fetch failed", err).
		WithDetail(err.Error())
}
