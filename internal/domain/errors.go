package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common import errors
var (
	ErrCredentialDead     = errors.New("credential permanently rejected")
	ErrCredentialConflict = errors.New("credential was modified concurrently")
	ErrShopInactive       = errors.New("shop is inactive")
	ErrShopNotFound       = errors.New("shop not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrImportNotFound     = errors.New("external import not found")
	ErrNoAdapter          = errors.New("no adapter registered for provider")
	ErrNotConfigured      = errors.New("provider client not configured")
)

// ErrorKind is the provider-neutral failure taxonomy retry and reporting act on
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindAuthExpired
	KindRateLimited
	KindTransientUpstream
	KindNotFound
	KindInvalidRequest
	KindFatalProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthExpired:
		return "auth_expired"
	case KindRateLimited:
		return "rate_limited"
	case KindTransientUpstream:
		return "transient_upstream"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindFatalProtocol:
		return "fatal_protocol"
	default:
		return "unclassified"
	}
}

// ImportError is a classified failure raised at an adapter boundary
type ImportError struct {
	Kind       ErrorKind
	Provider   Provider
	Op         string
	Status     int    // HTTP status when the vendor answered
	Code       string // Vendor error code, e.g. invalid_token
	Message    string
	RetryAfter time.Duration
	cause      error
}

// ErrorOption customizes an ImportError
type ErrorOption func(*ImportError)

// WithStatus records the HTTP status of the failed call
func WithStatus(status int) ErrorOption {
	return func(e *ImportError) { e.Status = status }
}

// WithCode records the vendor error code
func WithCode(code string) ErrorOption {
	return func(e *ImportError) { e.Code = code }
}

// WithMessage overrides the message
func WithMessage(msg string) ErrorOption {
	return func(e *ImportError) { e.Message = msg }
}

// WithRetryAfter records a vendor-provided wait hint
func WithRetryAfter(d time.Duration) ErrorOption {
	return func(e *ImportError) { e.RetryAfter = d }
}

// WithCause wraps the underlying error
func WithCause(err error) ErrorOption {
	return func(e *ImportError) { e.cause = err }
}

// NewImportError builds a classified error
func NewImportError(kind ErrorKind, provider Provider, op string, opts ...ErrorOption) *ImportError {
	e := &ImportError{Kind: kind, Provider: provider, Op: op}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" && e.cause != nil {
		e.Message = e.cause.Error()
	}
	return e
}

func (e *ImportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider.Title())
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ImportError) Unwrap() error {
	return e.cause
}

// HTTPError is the error vendor clients return when a call answered with a non-success status
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

// NewHTTPError creates a status-bearing vendor error
func NewHTTPError(status int, code, message string) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// statusCoder is implemented by any error that carries an HTTP status
type statusCoder interface {
	StatusCode() int
}

// StatusOf extracts an HTTP status from an error chain, or 0
func StatusOf(err error) int {
	var ie *ImportError
	if errors.As(err, &ie) && ie.Status != 0 {
		return ie.Status
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// CodeOf extracts a vendor error code from an error chain
func CodeOf(err error) string {
	var ie *ImportError
	if errors.As(err, &ie) && ie.Code != "" {
		return ie.Code
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// KindForStatus maps an HTTP status to the taxonomy. 403 is a permission problem by
// default; providers whose 403 means an expired grant reclassify it themselves.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthExpired
	case status == http.StatusForbidden:
		return KindInvalidRequest
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case status == http.StatusRequestTimeout, status >= 500:
		return KindTransientUpstream
	default:
		return KindUnclassified
	}
}

// Classify resolves any error into an ImportError. Already classified errors pass through.
func Classify(provider Provider, op string, err error) *ImportError {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}
	if errors.Is(err, ErrCredentialDead) {
		return NewImportError(KindFatalProtocol, provider, op, WithCause(err))
	}
	if status := StatusOf(err); status != 0 {
		return NewImportError(KindForStatus(status), provider, op,
			WithStatus(status), WithCode(CodeOf(err)), WithCause(err))
	}
	return NewImportError(KindUnclassified, provider, op, WithCause(err))
}

// KindOf returns the taxonomy kind of err
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	if errors.Is(err, ErrCredentialDead) {
		return KindFatalProtocol
	}
	if status := StatusOf(err); status != 0 {
		return KindForStatus(status)
	}
	return KindUnclassified
}

// IsRetryable reports whether the retry policy may try again
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransientUpstream:
		return true
	default:
		return false
	}
}

// IsNotFound reports a missing upstream resource
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsAuthExpired reports a rejected token or credential
func IsAuthExpired(err error) bool {
	return KindOf(err) == KindAuthExpired
}

// IsIgnorable reports failures that are logged but never escalated: an AuthExpired
// classified with HTTP 403, which marks a revoked or expired external grant.
func IsIgnorable(err error) bool {
	var ie *ImportError
	if !errors.As(err, &ie) {
		return false
	}
	return ie.Kind == KindAuthExpired && ie.Status == http.StatusForbidden
}

// Availability is the outcome of a liveness probe
type Availability int

const (
	Available Availability = iota
	Inactive
)

// ClassifyAvailability maps a probe error to an availability decision. Only 401 and 404
// mean the shop is gone; any other failure keeps the shop alive.
func ClassifyAvailability(err error) Availability {
	if err == nil {
		return Available
	}
	switch StatusOf(err) {
	case http.StatusUnauthorized, http.StatusNotFound:
		return Inactive
	default:
		return Available
	}
}

// TreatAsInactive reports whether a probe failure should disable the shop
func TreatAsInactive(err error) bool {
	return ClassifyAvailability(err) == Inactive
}
