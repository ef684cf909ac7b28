// Package muxhandlers provides the HTTP middleware used in front of the
// OpenAPI documentation endpoints. Every constructor returns a
// mux.MiddlewareFunc and can be used with any gorilla/mux router.
//
// # Request ID Middleware
//
// RequestIDMiddleware tags each request with a UUID v7, echoes it in the
// X-Request-ID response header and stores it in the request context. An
// incoming id is reused only when TrustIncoming is set and the value is a
// well-formed UUID.
//
//	r.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}))
//
// # Recovery Middleware
//
// RecoveryMiddleware turns a handler panic into a 500 response and logs it
// through hclog together with the request id.
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
//	    Logger: logger,
//	}))
//
// # Access Log Middleware
//
// AccessLogMiddleware writes one structured entry per request with the
// method, path, status, response size and duration.
//
//	r.Use(muxhandlers.AccessLogMiddleware(muxhandlers.AccessLogConfig{
//	    Logger: logger.Named("http"),
//	}))
//
// # Security Headers Middleware
//
// SecurityHeadersMiddleware sets X-Content-Type-Options, X-Frame-Options and
// Referrer-Policy on every response, plus optional HSTS, COOP and
// Content-Security-Policy headers.
//
//	mw, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
//	    FrameOption: "SAMEORIGIN",
//	    ContentSecurityPolicy: map[string][]string{
//	        "default-src": {"'self'"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
//
// # Compression Middleware
//
// CompressionMiddleware gzips responses for clients that accept it. Strong
// ETags on compressed responses are downgraded to weak ones.
//
//	mw, err := muxhandlers.CompressionMiddleware(muxhandlers.CompressionConfig{
//	    MinLength:    256,
//	    ContentTypes: []string{"application/json", "text/html"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
//
// # Cache Control Middleware
//
// CacheControlMiddleware sets Cache-Control from the response Content-Type
// right before the header is written.
//
//	mw, err := muxhandlers.CacheControlMiddleware(muxhandlers.CacheControlConfig{
//	    Rules: []muxhandlers.CacheControlRule{
//	        {ContentType: "application/json", Value: "no-cache"},
//	    },
//	    DefaultValue: "no-store",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
package muxhandlers
