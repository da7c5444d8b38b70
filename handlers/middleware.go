package handlers

import (
	"net/http"
	"time"

	"taskboard/utilities"
)

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the writer so the status chosen by the handler can be logged.
		// Handlers that never call WriteHeader answer 200.
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		// One structured line per request, including rejected ones.
		utilities.LogRequest(r.Method, r.URL.Path, r.RemoteAddr, rw.statusCode, time.Since(start))
	})
}

// responseWriter remembers the status code written through it.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader records the code before passing it on.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
