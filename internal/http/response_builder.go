// Package http serves the claim list, the claim form and receipt uploads
// as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reimburse/internal/core"
	applog "reimburse/internal/log"
	"reimburse/internal/receipts"
	"reimburse/internal/submission"
)

// Error codes returned in the error envelope.
const (
	CodeValidation       = "validation_failed"
	CodeBadRequest       = "bad_request"
	CodeClaimNotFound    = "claim_not_found"
	CodeFormNotFound     = "form_not_found"
	CodeAttachmentAbsent = "attachment_not_found"
	CodeInProgress       = "submit_in_progress"
	CodeUnsupportedMedia = "unsupported_media_type"
	CodeTooLarge         = "payload_too_large"
	CodeSubmitFailed     = "submission_failed"
	CodeStorage          = "storage_unavailable"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)

var errClaimNotFound = errors.New("claim not found")
var errAttachmentNotFound = errors.New("attachment not found")

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body with 204 writes nothing.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse builds an error envelope with the given status.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]ErrorBody{"error": {Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func noContent(w http.ResponseWriter) {
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// classify maps a domain error onto a status and an error body. Internal
// causes of persistence failures are never shown to the client.
func classify(err error) (int, ErrorBody) {
	var ve *core.ValidationError
	var se *submission.SubmissionError
	var pe *core.PersistenceError

	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ErrorBody{
			Code:    CodeValidation,
			Message: ve.Error(),
			Missing: ve.Missing,
			Invalid: ve.Invalid,
		}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorBody{Code: CodeBadRequest, Message: err.Error()}
	case errors.Is(err, errClaimNotFound):
		return http.StatusNotFound, ErrorBody{Code: CodeClaimNotFound, Message: "claim not found"}
	case errors.Is(err, submission.ErrSessionNotFound):
		return http.StatusNotFound, ErrorBody{Code: CodeFormNotFound, Message: "form not found or expired"}
	case errors.Is(err, errAttachmentNotFound):
		return http.StatusNotFound, ErrorBody{Code: CodeAttachmentAbsent, Message: "attachment not found"}
	case errors.Is(err, submission.ErrSubmitInProgress):
		return http.StatusConflict, ErrorBody{Code: CodeInProgress, Message: "a submission for this form is already in progress"}
	case errors.Is(err, receipts.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, ErrorBody{Code: CodeUnsupportedMedia, Message: "receipts must be an image or a PDF"}
	case errors.Is(err, receipts.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorBody{Code: CodeTooLarge, Message: "receipt is too large"}
	case errors.As(err, &se):
		return http.StatusInternalServerError, ErrorBody{Code: CodeSubmitFailed, Message: "failed to submit claim, please try again"}
	case errors.As(err, &pe):
		return http.StatusInternalServerError, ErrorBody{Code: CodeStorage, Message: "claim storage is unavailable"}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: "internal error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		route := routePattern(r)
		fields := applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, route, r.URL.RawQuery, r.Header.Get("User-Agent"))
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, body.Code, r.Method+" "+route, fields)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldErrorType, body.Code)
	}

	NewJSONResponse().Status(status).Body(map[string]ErrorBody{"error": body}).Write(w)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
