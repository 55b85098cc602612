package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"speech-dictation-service/internal/observability/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestInstrumentation returns HTTP middleware that logs each API request
// and records request metrics. The chi route pattern is used as the path
// label so record ids do not explode the cardinality.
func RequestInstrumentation(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					path = p
				}
			}

			log.Info().
				Str("method", r.Method).
				Str("path", path).
				Int("status", rec.status).
				Dur("duration", duration).
				Msg("HTTP request")

			m.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), duration.Seconds())
		})
	}
}
