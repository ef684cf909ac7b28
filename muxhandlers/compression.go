package muxhandlers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
)

// ErrInvalidCompressionLevel is returned when CompressionConfig.Level is
// outside the valid gzip compression level range.
var ErrInvalidCompressionLevel = errors.New("compression: invalid compression level")

// ErrInvalidMinLength is returned when CompressionConfig.MinLength is
// negative.
var ErrInvalidMinLength = errors.New("compression: min length must not be negative")

// CompressionConfig configures the Compression middleware behaviour.
type CompressionConfig struct {
	// Level is the gzip compression level. When zero,
	// gzip.DefaultCompression is used. Must be in
	// [gzip.BestSpeed, gzip.BestCompression] or zero.
	Level int

	// MinLength is the minimum response body size in bytes before compression
	// is applied. When zero, all responses are compressed.
	MinLength int

	// ContentTypes limits compression to these media types. When empty,
	// every content type is compressed.
	ContentTypes []string
}

// CompressionMiddleware returns a middleware that gzips response bodies when
// the client advertises gzip in Accept-Encoding. Responses shorter than
// MinLength or with a Content-Type outside ContentTypes are sent as is. A
// strong ETag on a compressed response is sent as a weak one.
//
// It returns ErrInvalidCompressionLevel if Level is outside the valid range
// and ErrInvalidMinLength if MinLength is negative.
func CompressionMiddleware(cfg CompressionConfig) (mux.MiddlewareFunc, error) {
	level := cfg.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	if level != gzip.DefaultCompression && (level < gzip.BestSpeed || level > gzip.BestCompression) {
		return nil, ErrInvalidCompressionLevel
	}

	if cfg.MinLength < 0 {
		return nil, ErrInvalidMinLength
	}

	wrap, err := gziphandler.GzipHandlerWithOpts(
		gziphandler.CompressionLevel(level),
		gziphandler.MinSize(cfg.MinLength),
		gziphandler.ContentTypes(cfg.ContentTypes),
	)
	if err != nil {
		return nil, fmt.Errorf("compression: %w", err)
	}

	return func(next http.Handler) http.Handler {
		gz := wrap(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := negroni.NewResponseWriter(w)
			ww.Before(weakenETag)

			gz.ServeHTTP(ww, r)
		})
	}, nil
}

func weakenETag(rw negroni.ResponseWriter) {
	h := rw.Header()
	if h.Get("Content-Encoding") == "" {
		return
	}

	if etag := h.Get("ETag"); etag != "" && !strings.HasPrefix(etag, "W/") {
		h.Set("ETag", "W/"+etag)
	}
}
