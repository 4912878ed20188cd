package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// failure describes how a non-2xx response is reported in http_errors_total.
type failure struct {
	kind     string
	severity string
}

// classify maps a response status to its error labels. ok is false for
// statuses that are not errors.
func classify(status int) (failure, bool) {
	switch {
	case status >= http.StatusInternalServerError:
		return failure{kind: "server_error", severity: "high"}, true
	case status == http.StatusNotFound:
		return failure{kind: "not_found", severity: "medium"}, true
	case status == http.StatusMethodNotAllowed:
		return failure{kind: "method_not_allowed", severity: "low"}, true
	case status >= http.StatusBadRequest:
		return failure{kind: "client_error", severity: "medium"}, true
	default:
		return failure{}, false
	}
}

// MetricsMiddleware records request count, latency in milliseconds and error
// labels for the route named endpoint. Server errors are also logged.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(elapsed.Microseconds())/1000)

		f, failed := classify(rec.status)
		if !failed {
			return
		}
		metrics.RecordHTTPError(endpoint, r.Method, f.kind, f.severity)
		if f.severity == "high" {
			logger.Get().Named("http").Warn(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.Int("status", rec.status),
				logger.Duration("elapsed", elapsed),
			)
		}
	}
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	n, err := s.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response body: %w", err)
	}
	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
