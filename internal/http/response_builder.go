// Package http serves the category engine to the SPA as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// with consistent headers and error documents.
package http

import (
	"encoding/json"
	"net/http"

	"finspect/internal/apierr"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	hasPayload bool
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	b.hasPayload = true
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasPayload || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"kind":"unknown","title":"Error","message":"failed to encode response","retryable":false}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// ErrorDocument is the body of every error response.
type ErrorDocument struct {
	Kind      apierr.Kind       `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
}

// NewErrorDocument renders err with its user facing message.
func NewErrorDocument(err error) ErrorDocument {
	e := apierr.As(err)
	return ErrorDocument{
		Kind:      e.Kind,
		Title:     e.Title(),
		Message:   apierr.CategoryMessage(e),
		Fields:    e.Fields,
		Retryable: e.Retryable(),
	}
}

// ErrorResponse creates an error response with the status derived from the
// error kind.
func ErrorResponse(err error) *JSONResponseBuilder {
	e := apierr.As(err)
	b := NewJSONResponse().Status(e.HTTPStatus()).Data(NewErrorDocument(e))
	if e.Retryable() && e.Kind != apierr.Server {
		b.Header("Retry-After", "1")
	}
	return b
}

// BadRequestError creates a 400 validation error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(apierr.New(apierr.Validation, message))
}

// NotFoundError creates a 404 response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(apierr.New(apierr.NotFound, message))
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	doc := ErrorDocument{
		Kind:      apierr.Unknown,
		Title:     "Too Many Requests",
		Message:   "Rate limit exceeded. Please try again later.",
		Retryable: true,
	}
	return NewJSONResponse().Status(http.StatusTooManyRequests).Data(doc)
}
