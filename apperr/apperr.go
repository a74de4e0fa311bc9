package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error for callers and for the HTTP layer.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Unauthorized
	Forbidden
	Conflict
	Persistence
	Aggregation
	Configuration
	InvalidInput
	CorruptCredential
	InvalidToken
	ExpiredToken
	MalformedToken
	Unavailable
	Upstream
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	Validation:        "validation",
	NotFound:          "not_found",
	Unauthorized:      "unauthorized",
	Forbidden:         "forbidden",
	Conflict:          "conflict",
	Persistence:       "persistence",
	Aggregation:       "aggregation",
	Configuration:     "configuration",
	InvalidInput:      "invalid_input",
	CorruptCredential: "corrupt_credential",
	InvalidToken:      "invalid_token",
	ExpiredToken:      "expired_token",
	MalformedToken:    "malformed_token",
	Unavailable:       "unavailable",
	Upstream:          "upstream",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing message carried by err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Internal server error"
}

// Status maps a Kind to an HTTP status code. Missing records answer 400 so
// clients of the storefront keep their existing handling.
func Status(kind Kind) int {
	switch kind {
	case Validation, InvalidInput, NotFound:
		return http.StatusBadRequest
	case Unauthorized, InvalidToken, ExpiredToken, MalformedToken:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Exposed reports whether the message of an error of this kind may be shown
// to clients. Server-side failures get a generic message instead.
func Exposed(kind Kind) bool {
	return Status(kind) < http.StatusInternalServerError || kind == Unavailable || kind == Upstream || kind == Aggregation
}

// OrPersistence keeps typed errors and marks anything else as a storage
// failure with msg.
func OrPersistence(err error, msg string) error {
	if KindOf(err) != Internal {
		return err
	}
	return Wrap(Persistence, msg, err)
}
