package muxhandlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
)

// ErrNoCacheControlRules is returned when CacheControlConfig has neither
// rules nor a default value.
var ErrNoCacheControlRules = errors.New("cache control: at least one rule or a default value is required")

// CacheControlRule maps a Content-Type prefix to a Cache-Control value.
type CacheControlRule struct {
	// ContentType is matched case-insensitively as a prefix of the
	// response Content-Type, e.g. "text/html" or "application/".
	ContentType string
	Value       string
}

// CacheControlConfig configures the CacheControl middleware.
type CacheControlConfig struct {
	// Rules are evaluated in order; the first match wins.
	Rules []CacheControlRule

	// DefaultValue applies to responses no rule matches. Empty means no
	// header for unmatched responses.
	DefaultValue string
}

// CacheControlMiddleware returns a middleware that sets the Cache-Control
// response header from the response Content-Type just before the header is
// written. A Cache-Control header set by the handler is left untouched.
func CacheControlMiddleware(cfg CacheControlConfig) (mux.MiddlewareFunc, error) {
	if len(cfg.Rules) == 0 && cfg.DefaultValue == "" {
		return nil, ErrNoCacheControlRules
	}

	rules := make([]CacheControlRule, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		rules[i] = CacheControlRule{
			ContentType: strings.ToLower(rule.ContentType),
			Value:       rule.Value,
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := negroni.NewResponseWriter(w)
			ww.Before(func(rw negroni.ResponseWriter) {
				h := rw.Header()
				if h.Get("Cache-Control") != "" {
					return
				}
				if value := cacheControlFor(rules, cfg.DefaultValue, h.Get("Content-Type")); value != "" {
					h.Set("Cache-Control", value)
				}
			})

			next.ServeHTTP(ww, r)
		})
	}, nil
}

func cacheControlFor(rules []CacheControlRule, fallback, contentType string) string {
	ct := strings.ToLower(contentType)
	for _, rule := range rules {
		if strings.HasPrefix(ct, rule.ContentType) {
			return rule.Value
		}
	}
	return fallback
}
