package httptransport

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"data-quality-service/internal/logging"
)

// RequestRecorder counts requests (metrics.Metrics).
type RequestRecorder interface {
	Request(method string, code int)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger must run after middleware.RequestID. It stores a logger that
// carries the request id in the request context (zerolog.Ctx).
func RequestLogger(base zerolog.Logger, rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()

			log := logging.FromContext(r.Context(), base)
			r = r.WithContext(log.WithContext(r.Context()))

			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			if rec != nil {
				rec.Request(r.Method, sw.status)
			}
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int("bytes", sw.bytes).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("http request")
		})
	}
}
