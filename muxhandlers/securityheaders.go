package muxhandlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption is
// not one of "DENY", "SAMEORIGIN" or empty.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// SecurityHeadersConfig configures the Security Headers middleware behaviour.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff disables the X-Content-Type-Options: nosniff
	// header. The header is set by default (when false).
	DisableContentTypeNosniff bool

	// FrameOption sets the X-Frame-Options header value.
	// Valid values are "DENY", "SAMEORIGIN", or empty string for "DENY".
	FrameOption string

	// ReferrerPolicy sets the Referrer-Policy header value.
	// Defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// HSTSMaxAge sets the max-age directive for the Strict-Transport-Security
	// header in seconds. When zero, the header is not set.
	HSTSMaxAge int

	// HSTSIncludeSubDomains appends the includeSubDomains directive to the
	// Strict-Transport-Security header. Only effective when HSTSMaxAge > 0.
	HSTSIncludeSubDomains bool

	// CrossOriginOpenerPolicy sets the Cross-Origin-Opener-Policy header.
	// When empty, the header is not set.
	CrossOriginOpenerPolicy string

	// ContentSecurityPolicy maps CSP directives to their sources, e.g.
	// {"script-src": {"'self'", "https://unpkg.com"}}. Well-known fetch
	// directives are rendered first, the rest alphabetically. When empty,
	// the header is not set.
	ContentSecurityPolicy map[string][]string
}

var cspDirectiveOrder = []string{
	"default-src",
	"script-src",
	"style-src",
	"img-src",
	"font-src",
	"connect-src",
	"worker-src",
	"frame-ancestors",
}

// SecurityHeadersMiddleware returns a middleware that sets common security
// response headers before calling the next handler.
//
// It returns ErrInvalidFrameOption if FrameOption is set to a value other than
// "DENY", "SAMEORIGIN", or empty string.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (mux.MiddlewareFunc, error) {
	frameOption := strings.ToUpper(cfg.FrameOption)
	switch frameOption {
	case "":
		frameOption = "DENY"
	case "DENY", "SAMEORIGIN":
	default:
		return nil, ErrInvalidFrameOption
	}

	referrerPolicy := cfg.ReferrerPolicy
	if referrerPolicy == "" {
		referrerPolicy = "strict-origin-when-cross-origin"
	}

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
	}

	csp := renderCSP(cfg.ContentSecurityPolicy)
	nosniff := !cfg.DisableContentTypeNosniff
	coop := cfg.CrossOriginOpenerPolicy

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if nosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			h.Set("X-Frame-Options", frameOption)
			h.Set("Referrer-Policy", referrerPolicy)

			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if coop != "" {
				h.Set("Cross-Origin-Opener-Policy", coop)
			}
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// renderCSP serializes directives deterministically.
func renderCSP(directives map[string][]string) string {
	if len(directives) == 0 {
		return ""
	}

	parts := make([]string, 0, len(directives))
	seen := make(map[string]bool, len(directives))

	add := func(name string) {
		sources := directives[name]
		seen[name] = true
		if len(sources) == 0 {
			parts = append(parts, name)
			return
		}
		parts = append(parts, name+" "+strings.Join(sources, " "))
	}

	for _, name := range cspDirectiveOrder {
		if _, ok := directives[name]; ok {
			add(name)
		}
	}

	rest := make([]string, 0, len(directives))
	for name := range directives {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	for _, name := range rest {
		add(name)
	}

	return strings.Join(parts, "; ")
}
