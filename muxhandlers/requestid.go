package muxhandlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DefaultRequestIDHeader is the header used when RequestIDConfig.HeaderName
// is empty.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the request id stored by RequestIDMiddleware,
// or "" when there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	HeaderName string

	// TrustIncoming reuses a well-formed UUID from the incoming request
	// header instead of generating a new one.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that tags every request with a
// UUID v7 id. The id is echoed in the response header and stored in the
// request context for the access log and recovery middleware.
func RequestIDMiddleware(cfg RequestIDConfig) mux.MiddlewareFunc {
	header := cfg.HeaderName
	if header == "" {
		header = DefaultRequestIDHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.TrustIncoming {
				if incoming, err := uuid.Parse(r.Header.Get(header)); err == nil {
					id = incoming.String()
				}
			}
			if id == "" {
				id = newRequestID()
			}

			w.Header().Set(header, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

			next.ServeHTTP(w, r)
		})
	}
}

// newRequestID returns a time-ordered UUID v7, falling back to v4 when the
// v7 generator fails.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
