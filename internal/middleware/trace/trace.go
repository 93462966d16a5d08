package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	applog "cardledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	RequestIDKey    ContextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// Middleware assigns a request id and writes an access log line per request.
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalDurationUs int64
}

// AverageResponseTime is the mean request duration.
func (m Metrics) AverageResponseTime() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return time.Duration(m.TotalDurationUs/m.TotalRequests) * time.Microsecond
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		metrics:   &Metrics{},
	}
}

// Middleware returns HTTP middleware for request tracing. A well-formed
// incoming X-Request-ID is reused, otherwise a new id is generated.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.AddInt64(&m.metrics.TotalRequests, 1)
		atomic.AddInt64(&m.metrics.TotalDurationUs, duration.Microseconds())
		if rw.statusCode >= 500 {
			atomic.AddInt64(&m.metrics.TotalErrors, 1)
		}

		logLevel := slog.LevelInfo
		if rw.statusCode >= 400 && rw.statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if rw.statusCode >= 500 {
			logLevel = slog.LevelError
		}

		fields := applog.NewFields().
			WithComponent(applog.ComponentHTTP).
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds())
		fields[applog.FieldClientIP] = clientIP

		slog.Log(ctx, logLevel, "HTTP request completed", fields.ToSlice()...)
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

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest adapts GetRequestID for log.Middleware.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:   atomic.LoadInt64(&m.metrics.TotalRequests),
		TotalErrors:     atomic.LoadInt64(&m.metrics.TotalErrors),
		TotalDurationUs: atomic.LoadInt64(&m.metrics.TotalDurationUs),
	}
}
