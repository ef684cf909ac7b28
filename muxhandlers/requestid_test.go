package muxhandlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

var uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const incomingID = "0190b3a2-7c4e-7d1a-9f00-5b6c7d8e9f01"

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		config         RequestIDConfig
		incomingHeader string
		wantHeader     string
		wantGenerated  bool
	}{
		{
			name:          "generates UUID v7 by default",
			config:        RequestIDConfig{},
			wantGenerated: true,
		},
		{
			name:           "does not trust incoming by default",
			config:         RequestIDConfig{},
			incomingHeader: incomingID,
			wantGenerated:  true,
		},
		{
			name:           "trusts incoming UUID when configured",
			config:         RequestIDConfig{TrustIncoming: true},
			incomingHeader: incomingID,
			wantHeader:     incomingID,
		},
		{
			name:           "replaces malformed incoming id",
			config:         RequestIDConfig{TrustIncoming: true},
			incomingHeader: "existing-id\r\nX-Injected: 1",
			wantGenerated:  true,
		},
		{
			name:          "generates when trust incoming but no header",
			config:        RequestIDConfig{TrustIncoming: true},
			wantGenerated: true,
		},
		{
			name:          "custom header name",
			config:        RequestIDConfig{HeaderName: "X-Trace-ID"},
			wantGenerated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromContext string

			headerName := tt.config.HeaderName
			if headerName == "" {
				headerName = DefaultRequestIDHeader
			}

			r := mux.NewRouter()
			r.HandleFunc("/test", func(_ http.ResponseWriter, req *http.Request) {
				fromContext = RequestIDFromContext(req.Context())
			}).Methods(http.MethodGet)
			r.Use(RequestIDMiddleware(tt.config))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.incomingHeader != "" {
				req.Header.Set(headerName, tt.incomingHeader)
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(headerName)
			assert.Equal(t, got, fromContext)

			if tt.wantGenerated {
				assert.Regexp(t, uuidV7Regex, got)
				assert.NotEqual(t, tt.incomingHeader, got)
			} else {
				assert.Equal(t, tt.wantHeader, got)
			}
		})
	}

	t.Run("ids are unique per request", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/test", func(_ http.ResponseWriter, _ *http.Request) {}).Methods(http.MethodGet)
		r.Use(RequestIDMiddleware(RequestIDConfig{}))

		seen := make(map[string]struct{})
		for range 50 {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			seen[w.Header().Get(DefaultRequestIDHeader)] = struct{}{}
		}
		assert.Len(t, seen, 50)
	})
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), requestIDKey{}, "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
}

func BenchmarkRequestIDMiddleware(b *testing.B) {
	r := mux.NewRouter()
	r.HandleFunc("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Use(RequestIDMiddleware(RequestIDConfig{}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for b.Loop() {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
}
