package logging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestRecorder receives one observation per finished request
type RequestRecorder interface {
	RecordHTTPRequest(method, route, status string, duration time.Duration)
}

// RequestIDMiddleware adds a request ID to each HTTP request, logs the request
// and reports it to recorder when one is given. Requests are labelled with
// the matched mux route template so ids in paths do not explode cardinality.
func RequestIDMiddleware(recorder RequestRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			route := routeTemplate(r)

			start := time.Now()
			DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr,
			)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			if recorder != nil {
				recorder.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), duration)
			}

			switch {
			case wrapped.statusCode >= 500:
				ErrorContext(ctx, "request failed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", wrapped.statusCode,
					"durationMs", duration.Milliseconds(),
				)
			case wrapped.statusCode >= 400:
				WarnContext(ctx, "request rejected",
					"method", r.Method,
					"path", r.URL.Path,
					"status", wrapped.statusCode,
					"durationMs", duration.Milliseconds(),
				)
			default:
				InfoContext(ctx, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", wrapped.statusCode,
					"durationMs", duration.Milliseconds(),
				)
			}
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
