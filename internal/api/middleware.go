package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jordancooper-dev/keygate/internal/auth"
	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/observability"
)

// APIKeyHeader is the request header carrying the presented key
const APIKeyHeader = "X-API-Key"

// CorrelationIDHeader carries the caller-supplied request correlation ID
const CorrelationIDHeader = "X-Correlation-ID"

type contextKey string

const authenticatedKeyContextKey contextKey = "authenticated_api_key"

// AuthenticatedKey returns the API key record that authenticated the request,
// or nil if the request did not pass through the auth middleware
func AuthenticatedKey(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(authenticatedKeyContextKey).(*models.APIKey)
	return key
}

// RequireAPIKey authenticates requests with the X-API-Key header. Every
// rejection looks the same to the caller regardless of the reason; only a
// store failure is surfaced differently, as a 500.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(APIKeyHeader)

		key, err := h.app.ValidateKey(r.Context(), presented)
		if err != nil {
			if errors.Is(err, auth.ErrStoreUnavailable) {
				h.jsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			w.Header().Set("WWW-Authenticate", "ApiKey")
			h.jsonError(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authenticatedKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationIDMiddleware attaches a correlation ID to the request context
// and echoes it back in the response. Malformed inbound IDs are replaced.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := observability.WithCorrelationID(r.Context(), r.Header.Get(CorrelationIDHeader))
		w.Header().Set(CorrelationIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	responseSize int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default status code
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.responseSize += size
	return size, err
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		// Use the chi route pattern so per-ID paths share a label
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}

		metrics := observability.GetMetrics()
		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(r.Method, routePattern, statusCode, duration, wrapped.responseSize)
	})
}
