package http

import (
	"encoding/json"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building API responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
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

// Body sets a value to encode as JSON.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Raw sets pre-rendered content, sent as is.
func (b *JSONResponseBuilder) Raw(content []byte, contentType string) *JSONResponseBuilder {
	b.raw = content
	b.headers["Content-Type"] = contentType
	return b
}

// Attachment marks the response as a download named filename.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends headers, status and body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) error {
	content := b.raw
	if content == nil && b.body != nil {
		var err error
		content, err = json.Marshal(b.body)
		if err != nil {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return err
		}
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(content) == 0 {
		return nil
	}
	_, err := w.Write(content)
	return err
}

// errorBody is the wire shape of every failure.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds {"error": kind} with the given status.
func ErrorResponse(status int, kind string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Body(errorBody{Error: kind})
}

// ValidationError is the 422 answer for a rejected operation.
func ValidationError(kind string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, kind)
}

// BadRequestError is returned for bodies that cannot be parsed at all.
func BadRequestError(kind string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, kind)
}

// InternalError hides the cause from the client.
func InternalError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal")
}
