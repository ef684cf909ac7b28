package muxhandlers

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gunzip(t *testing.T, r io.Reader) string {
	t.Helper()

	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()

	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestCompressionMiddleware(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		_, err := CompressionMiddleware(CompressionConfig{Level: 42})
		assert.ErrorIs(t, err, ErrInvalidCompressionLevel)

		_, err = CompressionMiddleware(CompressionConfig{MinLength: -1})
		assert.ErrorIs(t, err, ErrInvalidMinLength)
	})

	body := strings.Repeat(`{"name":"widget"}`, 64)

	tests := []struct {
		name           string
		acceptEncoding string
		contentType    string
		body           string
		wantGzip       bool
	}{
		{name: "gzip accepted", acceptEncoding: "gzip", contentType: "application/json", body: body, wantGzip: true},
		{name: "gzip among others", acceptEncoding: "br, gzip;q=0.8", contentType: "application/json", body: body, wantGzip: true},
		{name: "no accept encoding", contentType: "application/json", body: body},
		{name: "below min length", acceptEncoding: "gzip", contentType: "application/json", body: "{}"},
		{name: "content type not listed", acceptEncoding: "gzip", contentType: "image/png", body: body},
		{name: "content type with params", acceptEncoding: "gzip", contentType: "text/html; charset=utf-8", body: body, wantGzip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := CompressionMiddleware(CompressionConfig{
				MinLength:    64,
				ContentTypes: []string{"application/json", "text/html"},
			})
			require.NoError(t, err)

			r := mux.NewRouter()
			r.HandleFunc("/doc", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}).Methods(http.MethodGet)
			r.Use(mw)

			req := httptest.NewRequest(http.MethodGet, "/doc", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

			if tt.wantGzip {
				assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
				assert.Equal(t, tt.body, gunzip(t, w.Body))
				return
			}

			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestCompressionMiddlewareETag(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding string
		etag           string
		want           string
	}{
		{name: "strong tag weakened", acceptEncoding: "gzip", etag: `"abc"`, want: `W/"abc"`},
		{name: "weak tag kept", acceptEncoding: "gzip", etag: `W/"abc"`, want: `W/"abc"`},
		{name: "uncompressed keeps strong tag", etag: `"abc"`, want: `"abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := CompressionMiddleware(CompressionConfig{})
			require.NoError(t, err)

			r := mux.NewRouter()
			r.HandleFunc("/doc", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("ETag", tt.etag)
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"ok":true}`))
			}).Methods(http.MethodGet)
			r.Use(mw)

			req := httptest.NewRequest(http.MethodGet, "/doc", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Header().Get("ETag"))
		})
	}
}

func TestCompressionMiddlewareNoBody(t *testing.T) {
	mw, err := CompressionMiddleware(CompressionConfig{})
	require.NoError(t, err)

	r := mux.NewRouter()
	r.HandleFunc("/doc", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusNotModified)
	}).Methods(http.MethodGet)
	r.Use(mw)

	req := httptest.NewRequest(http.MethodGet, "/doc", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, `"abc"`, w.Header().Get("ETag"))
	assert.Empty(t, w.Body.String())
}
