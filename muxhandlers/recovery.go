package muxhandlers

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives one Error entry per recovered panic, including the
	// request id when RequestIDMiddleware runs first. Defaults to a null
	// logger.
	Logger hclog.Logger

	// Stack adds the goroutine stack to the log entry.
	Stack bool
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers and answers 500 Internal Server Error. A panic with
// http.ErrAbortHandler is re-raised so the server aborts the response.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}

				args := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rv,
				}
				if id := RequestIDFromContext(r.Context()); id != "" {
					args = append(args, "request_id", id)
				}
				if cfg.Stack {
					args = append(args, "stack", string(debug.Stack()))
				}
				logger.Error("handler panic recovered", args...)

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
