package openapi

import (
	"encoding/json"
	"fmt"
	"html"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/apidocs/muxhandlers"
)

// Handle registers the documentation endpoints on the router, under the
// configured SwaggerURL (default "swagger-ui"):
//
//	/<swaggerUrl>/api-docs.json  - OpenAPI document as JSON
//	/<swaggerUrl>/api-docs.yaml  - OpenAPI document as YAML
//	/<swaggerUrl>/api-docs       - JSON or YAML, chosen by the Accept header
//	/<swaggerUrl>, /<swaggerUrl>/... - interactive HTML docs
//	/                            - 302 to /<swaggerUrl> when ForwardRoot is set
//
// The document is assembled on the first request through Build and both
// serializations are cached for the lifetime of the process. A build or
// serialization failure answers 500 from these endpoints only. The
// endpoints themselves never appear in the document.
func (s *Spec) Handle(r *mux.Router) {
	base := s.cfg.docsPath()
	srv := &specServer{
		spec:   s,
		router: r,
		ui:     renderUI(s.cfg, base+"/api-docs.json"),
	}
	chain := s.docsMiddleware()

	get := func(route *mux.Route) {
		route.Methods(http.MethodGet, http.MethodHead)
		s.hideRoute(route)
	}

	get(r.Handle(base+"/api-docs.json", chain(srv.format("json", srv.jsonPayload))))
	get(r.Handle(base+"/api-docs.yaml", chain(srv.format("yaml", srv.yamlPayload))))
	get(r.Handle(base+"/api-docs", chain(srv.format("negotiated", srv.negotiatedPayload))))
	get(r.Handle(base, chain(http.HandlerFunc(srv.serveUI))))
	get(r.PathPrefix(base + "/").Handler(chain(http.HandlerFunc(srv.serveUI))))

	if s.cfg.ForwardRoot {
		get(r.Handle("/", chain(http.HandlerFunc(srv.redirectRoot))))
	}
}

// docsCSP allows the UI bundles from their CDNs and the inline bootstrap
// script of the shell.
var docsCSP = map[string][]string{
	"default-src":     {"'self'"},
	"script-src":      {"'self'", "'unsafe-inline'", "https://unpkg.com", "https://cdn.redoc.ly"},
	"style-src":       {"'self'", "'unsafe-inline'", "https://unpkg.com", "https://fonts.googleapis.com"},
	"img-src":         {"'self'", "data:", "https:"},
	"font-src":        {"'self'", "data:", "https://fonts.gstatic.com"},
	"connect-src":     {"'self'"},
	"worker-src":      {"'self'", "blob:"},
	"frame-ancestors": {"'self'"},
}

// docsCompressMinLength keeps tiny error bodies uncompressed.
const docsCompressMinLength = 256

// docsMiddleware wraps the documentation endpoints with request id, panic
// recovery, access logging, security headers, gzip and cache headers.
func (s *Spec) docsMiddleware() func(http.Handler) http.Handler {
	logger := s.logger.Named("http")

	security, err := muxhandlers.SecurityHeadersMiddleware(muxhandlers.SecurityHeadersConfig{
		FrameOption:           "SAMEORIGIN",
		ContentSecurityPolicy: docsCSP,
	})
	if err != nil {
		panic(err)
	}

	compress, err := muxhandlers.CompressionMiddleware(muxhandlers.CompressionConfig{
		MinLength:    docsCompressMinLength,
		ContentTypes: []string{"application/json", "application/yaml", "text/html"},
	})
	if err != nil {
		panic(err)
	}

	cache, err := muxhandlers.CacheControlMiddleware(muxhandlers.CacheControlConfig{
		Rules: []muxhandlers.CacheControlRule{
			{ContentType: "application/json", Value: "no-cache"},
			{ContentType: "application/yaml", Value: "no-cache"},
			{ContentType: "text/html", Value: "no-cache"},
		},
		DefaultValue: "no-store",
	})
	if err != nil {
		panic(err)
	}

	chain := []mux.MiddlewareFunc{
		muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}),
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{Logger: logger}),
		muxhandlers.AccessLogMiddleware(muxhandlers.AccessLogConfig{Logger: logger}),
		security,
		compress,
		cache,
	}

	return func(h http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}
}

type specServer struct {
	spec   *Spec
	router *mux.Router
	ui     []byte

	once sync.Once
	json *payload
	yaml *payload
	err  error
}

// payload is one immutable serialization of the document.
type payload struct {
	body        []byte
	etag        string
	contentType string
}

func newPayload(body []byte, contentType string) *payload {
	return &payload{
		body:        body,
		etag:        fmt.Sprintf(`"%016x"`, xxhash.Sum64(body)),
		contentType: contentType,
	}
}

// load builds and serializes the document on first use.
func (srv *specServer) load() error {
	srv.once.Do(func() {
		defer func() {
			if rv := recover(); rv != nil {
				srv.err = fmt.Errorf("build OpenAPI document: %v", rv)
			}
		}()

		doc, err := srv.spec.Build(srv.router)
		if err != nil {
			srv.err = err
			return
		}

		jsonBody, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			srv.err = fmt.Errorf("serialize OpenAPI document as JSON: %w", err)
			return
		}

		yamlBody, err := jsonToYAML(jsonBody)
		if err != nil {
			srv.err = fmt.Errorf("serialize OpenAPI document as YAML: %w", err)
			return
		}

		srv.json = newPayload(jsonBody, "application/json")
		srv.yaml = newPayload(yamlBody, "application/yaml")
	})

	if srv.err != nil {
		srv.spec.logger.Error("OpenAPI document unavailable", "error", srv.err)
	}
	return srv.err
}

func (srv *specServer) jsonPayload(*http.Request) *payload { return srv.json }

func (srv *specServer) yamlPayload(*http.Request) *payload { return srv.yaml }

func (srv *specServer) negotiatedPayload(r *http.Request) *payload {
	if wantsYAML(r.Header.Get("Accept")) {
		return srv.yaml
	}
	return srv.json
}

// format returns a handler serving the payload chosen by pick.
func (srv *specServer) format(name string, pick func(*http.Request) *payload) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := srv.load(); err != nil {
			http.Error(w, "failed to build OpenAPI document", http.StatusInternalServerError)
			srv.spec.metrics.recordRequest(name, http.StatusInternalServerError)
			return
		}

		p := pick(r)
		h := w.Header()
		h.Set("Content-Type", p.contentType)
		h.Set("ETag", p.etag)
		if name == "negotiated" {
			h.Add("Vary", "Accept")
		}

		if etagMatches(r.Header.Get("If-None-Match"), p.etag) {
			w.WriteHeader(http.StatusNotModified)
			srv.spec.metrics.recordRequest(name, http.StatusNotModified)
			return
		}

		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(p.body)
		}
		srv.spec.metrics.recordRequest(name, http.StatusOK)
	})
}

func (srv *specServer) serveUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(srv.ui)
	}
	srv.spec.metrics.recordRequest("ui", http.StatusOK)
}

func (srv *specServer) redirectRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, srv.spec.cfg.docsPath(), http.StatusFound)
	srv.spec.metrics.recordRequest("redirect", http.StatusFound)
}

// wantsYAML reports whether the first recognised media range of an Accept
// header asks for YAML. JSON is the default.
func wantsYAML(accept string) bool {
	for part := range strings.SplitSeq(accept, ",") {
		mt, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mt)) {
		case "application/json":
			return false
		case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
			return true
		}
	}
	return false
}

// etagMatches implements the weak comparison If-None-Match uses.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// jsonToYAML re-encodes a JSON document as block-style YAML. Going through
// yaml.Node keeps the JSON field names and key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	resetStyle(&node)
	return yaml.Marshal(&node)
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}

func renderUI(cfg Config, specURL string) []byte {
	title := html.EscapeString(cfg.pageTitle())

	var body string
	switch cfg.UI {
	case DocsRapiDoc:
		body = fmt.Sprintf(`<script type="module" src="https://unpkg.com/rapidoc/dist/rapidoc-min.js"></script>
<rapi-doc spec-url=%q></rapi-doc>`, specURL)
	case DocsRedoc:
		body = fmt.Sprintf(`<redoc spec-url=%q></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>`, specURL)
	default:
		body = fmt.Sprintf(`<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"%s});
</script>`, specURL, swaggerUIOptions(cfg.SwaggerUIConfig))
	}

	return fmt.Appendf(nil, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body>
%s
</body>
</html>`, title, body)
}

// swaggerUIOptions renders extra SwaggerUIBundle properties in key order.
// Values that cannot be encoded are skipped.
func swaggerUIOptions(options map[string]any) string {
	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(options)) {
		v, err := json.Marshal(options[key])
		if err != nil {
			continue
		}
		k, _ := json.Marshal(key)
		fmt.Fprintf(&b, ", %s: %s", k, v)
	}
	return b.String()
}
