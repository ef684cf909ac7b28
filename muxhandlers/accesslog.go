package muxhandlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/negroni"
)

// AccessLogConfig configures the AccessLog middleware.
type AccessLogConfig struct {
	Logger hclog.Logger

	// Level of the per-request entry. Defaults to hclog.Debug.
	Level hclog.Level
}

// AccessLogMiddleware returns a middleware that logs one entry per request
// with the method, path, status, response size and duration.
func AccessLogMiddleware(cfg AccessLogConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	level := cfg.Level
	if level == hclog.NoLevel {
		level = hclog.Debug
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := negroni.NewResponseWriter(w)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"size", ww.Size(),
				"duration", time.Since(start),
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				args = append(args, "request_id", id)
			}
			logger.Log(level, "request", args...)
		})
	}
}
