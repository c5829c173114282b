package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/logging"
)

// Logging logs each request at debug level with its request ID and latency
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.Path(r.URL.Path),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}
			logger.Debug("http request", fields...)
		})
	}
}
