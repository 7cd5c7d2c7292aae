package middleware

import (
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every request and, when m is set, observes its duration.
// route labels the metric with the matched mux pattern rather than the raw path.
func Logging(m *metrics.StorefrontMetrics) func(http.Handler) http.Handler {
	logger := log.WithField("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(started)

			entry := logger.WithFields(log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": elapsed.String(),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Debug("request")
			}

			if m != nil {
				route := r.Pattern
				if route == "" {
					route = "unmatched"
				}
				m.ObserveHTTPRequest(r.Method, route, rec.status, elapsed)
			}
		})
	}
}
