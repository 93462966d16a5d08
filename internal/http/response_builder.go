// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the mapping from store errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cardledger/internal/core"
	applog "cardledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
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

// Body sets the value encoded as the response body. A nil body writes none.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response","type":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message, errType string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Type: errType})
}

// StatusForError maps the error taxonomy to HTTP status codes.
func StatusForError(err error) (int, string) {
	var bre *BadRequestError
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, core.ErrorType(err)
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, core.ErrorType(err)
	default:
		return http.StatusInternalServerError, core.ErrorType(err)
	}
}

// writeError logs err and writes the matching error response. Internal
// failures are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := StatusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	if status == http.StatusBadRequest {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Bad request", "operation", op, "error", err)
	} else {
		applog.LogError(r.Context(), "Request failed", err, op, nil)
	}
	ErrorResponse(status, msg, errType).Write(w)
}
