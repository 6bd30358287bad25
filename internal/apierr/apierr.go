// Package apierr normalizes failures from the category API, and from local
// pre-checks, into a small set of kinds callers can branch on.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"finspect/internal/core"
)

// Kind classifies an error.
type Kind int

const (
	Unknown Kind = iota
	Network
	Timeout
	Validation
	Authentication
	Authorization
	NotFound
	Conflict
	Server
)

var kindNames = map[Kind]string{
	Unknown:        "unknown",
	Network:        "network",
	Timeout:        "timeout",
	Validation:     "validation",
	Authentication: "authentication",
	Authorization:  "authorization",
	NotFound:       "not_found",
	Conflict:       "conflict",
	Server:         "server",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets kinds appear as strings in JSON bodies.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name. Unrecognized names become Unknown.
func (k *Kind) UnmarshalText(b []byte) error {
	name := string(b)
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	*k = Unknown
	return nil
}

// Default user facing messages per kind.
var defaultMessages = map[Kind]string{
	Unknown:        "An unexpected error occurred. Please try again.",
	Network:        "Unable to connect to the server. Please check your internet connection and try again.",
	Timeout:        "Request timed out. Please try again.",
	Validation:     "Please check your input and try again.",
	Authentication: "Authentication required. Please log in and try again.",
	Authorization:  "You do not have permission to perform this action.",
	NotFound:       "The requested resource was not found.",
	Conflict:       "Conflict with existing data. Please refresh and try again.",
	Server:         "A server error occurred. Please try again later.",
}

var titles = map[Kind]string{
	Network:        "Connection Error",
	Validation:     "Invalid Input",
	Authentication: "Authentication Required",
	Authorization:  "Access Denied",
	NotFound:       "Not Found",
	Conflict:       "Data Conflict",
	Server:         "Server Error",
	Timeout:        "Request Timeout",
}

// Error is the normalized error value returned by the client and service.
type Error struct {
	Kind    Kind
	Message string
	Status  int               // HTTP status, 0 when no response was received
	Fields  map[string]string // field level validation detail
	Details string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case Network, Timeout, Server:
		return true
	}
	return false
}

// Title is a short heading for user notifications.
func (e *Error) Title() string {
	if t, ok := titles[e.Kind]; ok {
		return t
	}
	return "Error"
}

// UserMessage returns the message or the kind's default.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultMessages[e.Kind]
}

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

// FromValidation converts a local input check failure.
func FromValidation(verr *core.ValidationError) *Error {
	e := &Error{Kind: Validation, Message: defaultMessages[Validation], Fields: verr.FieldMap(), Err: verr}
	if len(verr.Fields) == 1 {
		e.Message = verr.Fields[0].Message
	}
	return e
}

// KindOf returns the kind of err, Unknown for foreign errors and nil.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return Validation
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As converts any error into *Error, normalizing foreign ones.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return FromValidation(verr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FromTransport(err)
	}
	return Wrap(Unknown, err.Error(), err)
}

// FromTransport maps a failure that produced no HTTP response.
func FromTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(Timeout, defaultMessages[Timeout], err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Wrap(Timeout, defaultMessages[Timeout], err)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(Network, "request canceled", err)
	}
	return Wrap(Network, "Network error. Please check your internet connection.", err)
}

// Body is the error document the category API returns.
type Body struct {
	Message          string          `json:"message,omitempty"`
	Error            string          `json:"error,omitempty"`
	Path             string          `json:"path,omitempty"`
	Timestamp        string          `json:"timestamp,omitempty"`
	ValidationErrors json.RawMessage `json:"validationErrors,omitempty"`
}

// FromResponse maps an HTTP error status and body to an Error.
func FromResponse(status int, body []byte) *Error {
	var b Body
	if len(body) > 0 {
		_ = json.Unmarshal(body, &b)
	}
	e := &Error{Status: status, Details: b.Error, Path: b.Path}
	e.Fields = parseFields(b.ValidationErrors)

	switch {
	case status == http.StatusBadRequest:
		e.Kind = Validation
		e.Message = orDefault(b.Message, "Invalid request. Please check your input and try again.")
	case status == http.StatusUnauthorized:
		e.Kind = Authentication
		e.Message = defaultMessages[Authentication]
	case status == http.StatusForbidden:
		e.Kind = Authorization
		e.Message = defaultMessages[Authorization]
	case status == http.StatusNotFound:
		e.Kind = NotFound
		e.Message = orDefault(b.Message, defaultMessages[NotFound])
	case status == http.StatusConflict:
		e.Kind = Conflict
		e.Message = orDefault(b.Message, defaultMessages[Conflict])
	case status == http.StatusUnprocessableEntity:
		e.Kind = Validation
		e.Message = orDefault(b.Message, "Validation failed. Please check your input.")
	case status == http.StatusBadGateway:
		e.Kind = Server
		e.Message = "Service temporarily unavailable. Please try again later."
	case status == http.StatusServiceUnavailable:
		e.Kind = Server
		e.Message = "Service unavailable. Please try again later."
	case status >= 500:
		e.Kind = Server
		e.Message = "Internal server error. Please try again later."
	default:
		e.Kind = Unknown
		e.Message = orDefault(b.Message, "Client error occurred. Please check your request.")
	}

	if len(e.Fields) > 0 && e.Kind == Unknown {
		e.Kind = Validation
	}
	return e
}

// parseFields accepts {"f":"msg"} and {"f":["msg",...]}.
func parseFields(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil || len(generic) == 0 {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch t := v.(type) {
		case string:
			out[k] = t
		case []any:
			if len(t) > 0 {
				out[k] = fmt.Sprint(t[0])
			}
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// FirstField returns the alphabetically first field message, if any.
func (e *Error) FirstField() (string, string, bool) {
	if len(e.Fields) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], e.Fields[keys[0]], true
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

var kindStatus = map[Kind]int{
	Network:        http.StatusBadGateway,
	Timeout:        http.StatusGatewayTimeout,
	Validation:     http.StatusBadRequest,
	Authentication: http.StatusUnauthorized,
	Authorization:  http.StatusForbidden,
	NotFound:       http.StatusNotFound,
	Conflict:       http.StatusConflict,
	Server:         http.StatusBadGateway,
}

// HTTPStatus is the status a server should answer with for e. A status
// received from upstream is kept; field level validation maps to 422.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	if e.Kind == Validation && len(e.Fields) > 0 {
		return http.StatusUnprocessableEntity
	}
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}
