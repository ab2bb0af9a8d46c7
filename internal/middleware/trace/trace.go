// Package trace assigns request ids and records the outcome of every request.
package trace

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	applog "reimburse/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	HeaderRequestID = "X-Request-ID"
)

// ObserveFunc receives the route pattern, method and status class of a
// finished request.
type ObserveFunc func(route, method, status string, start time.Time)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.StructuredLogger
	observe   ObserveFunc
}

func NewMiddleware(extractIP func(*http.Request) string, logger *applog.Logger, observe ObserveFunc) *Middleware {
	m := &Middleware{extractIP: extractIP, observe: observe}
	if logger != nil {
		m.logger = applog.NewStructuredLogger(logger.WithComponent(applog.ComponentTrace))
	}
	return m
}

// Handler reuses a well-formed incoming X-Request-ID and otherwise mints a
// new UUID. The id is echoed in the response.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		if m.observe != nil {
			m.observe(route, r.Method, statusClass(rw.statusCode), start)
		}
		if m.logger != nil {
			clientIP := ""
			if m.extractIP != nil {
				clientIP = m.extractIP(r)
			}
			m.logger.LogHTTPEnd(ctx, r, route, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest adapts GetRequestID for log.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
