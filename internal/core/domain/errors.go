// Package domain defines the error model shared by every srvboot component.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The set is closed: every Kind has a stable
// name used on the wire and a fixed HTTP status.
type Kind uint8

const (
	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = iota

	// Bootstrap kinds.
	KindBind
	KindTLSLoad
	KindAccept
	KindHandshake
	KindIdleTimeout
	KindInterceptor
	KindForcedDrainClosure

	// Application kinds, available to handlers through Mapper registration.
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
)

var kindInfo = [...]struct {
	name   string
	status int
}{
	KindInternal:           {"Internal", http.StatusInternalServerError},
	KindBind:               {"BindError", http.StatusInternalServerError},
	KindTLSLoad:            {"TlsLoadError", http.StatusInternalServerError},
	KindAccept:             {"AcceptError", http.StatusServiceUnavailable},
	KindHandshake:          {"HandshakeError", http.StatusBadRequest},
	KindIdleTimeout:        {"IdleTimeoutError", http.StatusRequestTimeout},
	KindInterceptor:        {"InterceptorError", http.StatusInternalServerError},
	KindForcedDrainClosure: {"ForcedDrainClosure", http.StatusServiceUnavailable},
	KindBadRequest:         {"BadRequest", http.StatusBadRequest},
	KindUnauthorized:       {"Unauthorized", http.StatusUnauthorized},
	KindForbidden:          {"Forbidden", http.StatusForbidden},
	KindNotFound:           {"NotFound", http.StatusNotFound},
	KindConflict:           {"Conflict", http.StatusConflict},
	KindRateLimited:        {"RateLimited", http.StatusTooManyRequests},
	KindUnavailable:        {"Unavailable", http.StatusServiceUnavailable},
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return kindInfo[KindInternal].name
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	if int(k) < len(kindInfo) {
		return kindInfo[k].status
	}
	return http.StatusInternalServerError
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindInfo))
	for i := range kindInfo {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind returns the kind with the given wire name.
func ParseKind(name string) (Kind, bool) {
	for i, info := range kindInfo {
		if info.name == name {
			return Kind(i), true
		}
	}
	return KindInternal, false
}

// Error is a classified failure. Message is safe to show to clients;
// Cause carries diagnostic detail and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

// WithMessage returns a copy of the error with a different public message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Kind: e.Kind, Message: message, Cause: e.Cause}
}

// KindOf extracts the kind of the first *Error in err's chain.
// The second result is false when err carries no classification.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return KindInternal, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sentinels for errors.Is matching by kind.
var (
	ErrBind               = New(KindBind, "failed to bind listener")
	ErrTLSLoad            = New(KindTLSLoad, "failed to load tls material")
	ErrAccept             = New(KindAccept, "accept failed")
	ErrHandshake          = New(KindHandshake, "tls handshake failed")
	ErrIdleTimeout        = New(KindIdleTimeout, "connection idle timeout")
	ErrInterceptor        = New(KindInterceptor, "internal server error")
	ErrForcedDrainClosure = New(KindForcedDrainClosure, "connection closed at drain deadline")

	ErrInternal     = New(KindInternal, "internal server error")
	ErrBadRequest   = New(KindBadRequest, "bad request")
	ErrUnauthorized = New(KindUnauthorized, "unauthorized")
	ErrForbidden    = New(KindForbidden, "forbidden")
	ErrNotFound     = New(KindNotFound, "not found")
	ErrConflict     = New(KindConflict, "conflict")
	ErrRateLimited  = New(KindRateLimited, "too many requests")
	ErrUnavailable  = New(KindUnavailable, "service unavailable")
)
