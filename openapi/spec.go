package openapi

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Option configures a Spec.
type Option func(*Spec)

// WithLogger sets the logger. The spec logs under the "openapi" name.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Spec) {
		s.logger = logger
	}
}

// WithMetrics records build and request metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Spec) {
		s.metrics = m
	}
}

// WithResolver replaces the DefaultResolver. Custom resolvers typically
// handle a few descriptors and delegate the rest to DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(s *Spec) {
		s.resolver = r
	}
}

// Spec collects route documentation for a mux router and assembles it into
// a single OpenAPI document when the application starts.
type Spec struct {
	cfg      Config
	logger   hclog.Logger
	metrics  *Metrics
	resolver Resolver

	mu              sync.Mutex
	operations      map[string]*RouteBuilder     // keyed by route name (Op)
	routeOps        map[*mux.Route]*RouteBuilder // keyed by route pointer (Route)
	docsRoutes      map[*mux.Route]struct{}
	servers         []Server
	tags            []Tag
	security        []SecurityRequirement
	securitySchemes map[string]*SecurityScheme
	externalDocs    *ExternalDocs

	buildOnce sync.Once
	doc       *Document
	buildErr  error
}

// NewSpec creates a spec with the given configuration. Missing config
// values get their defaults.
func NewSpec(cfg Config, opts ...Option) *Spec {
	s := &Spec{
		cfg:        cfg.withDefaults(),
		operations: make(map[string]*RouteBuilder),
		routeOps:   make(map[*mux.Route]*RouteBuilder),
		docsRoutes: make(map[*mux.Route]struct{}),
	}
	s.servers = slices.Clone(s.cfg.Servers)

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	s.logger = s.logger.Named("openapi")
	if s.resolver == nil {
		s.resolver = DefaultResolver{}
	}

	return s
}

// Config returns the effective configuration.
func (s *Spec) Config() Config {
	return s.cfg
}

// AddServer adds a document-level server.
func (s *Spec) AddServer(server Server) *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.servers = append(s.servers, server)
	return s
}

// AddTag adds a user-defined tag. Its description and external docs take
// precedence over tags collected from operations.
func (s *Spec) AddTag(tag Tag) *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tags = append(s.tags, tag)
	return s
}

// AddSecurityScheme registers a reusable security scheme in components.
func (s *Spec) AddSecurityScheme(name string, scheme *SecurityScheme) *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.securitySchemes == nil {
		s.securitySchemes = make(map[string]*SecurityScheme)
	}
	s.securitySchemes[name] = scheme
	return s
}

// SetSecurity sets the document-level security requirements.
func (s *Spec) SetSecurity(reqs ...SecurityRequirement) *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.security = reqs
	return s
}

// SetExternalDocs sets the document-level external documentation link.
func (s *Spec) SetExternalDocs(url, description string) *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.externalDocs = &ExternalDocs{URL: url, Description: description}
	return s
}

// Group creates a RouteGroup for applying shared documentation defaults to
// a logical group of routes.
func (s *Spec) Group() *RouteGroup {
	return &RouteGroup{spec: s}
}

// Op returns the RouteBuilder for the named route, creating it on first use.
func (s *Spec) Op(routeName string) *RouteBuilder {
	return s.namedBuilder(routeName, NewRouteBuilder)
}

// Route attaches a RouteBuilder to an existing mux route. The route can be
// configured with any mux features (Methods, Headers, Queries, ...).
func (s *Spec) Route(route *mux.Route) *RouteBuilder {
	b := NewRouteBuilder()
	s.attachRoute(route, b)
	return b
}

func (s *Spec) attachRoute(route *mux.Route, b *RouteBuilder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routeOps[route] = b
}

func (s *Spec) namedBuilder(name string, create func() *RouteBuilder) *RouteBuilder {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.operations[name]; ok {
		return b
	}
	b := create()
	s.operations[name] = b
	return b
}

func (s *Spec) hideRoute(route *mux.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docsRoutes[route] = struct{}{}
}

// Build is the application-started hook: it walks the router, registers
// every route with a path template and methods, and assembles the document.
// Routes without documentation are included with default docs; hidden
// routes and the docs endpoints are skipped. Only the first call does any
// work; later calls return the cached document and error.
func (s *Spec) Build(r *mux.Router) (*Document, error) {
	s.buildOnce.Do(func() {
		s.doc, s.buildErr = s.build(r)
		if s.buildErr != nil {
			s.logger.Error("failed to assemble OpenAPI document", "error", s.buildErr)
		}
	})
	return s.doc, s.buildErr
}

func (s *Spec) build(r *mux.Router) (*Document, error) {
	s.mu.Lock()
	assembler := NewAssembler(AssemblyConfig{
		Info:            s.cfg.Info,
		Servers:         slices.Clone(s.servers),
		Tags:            slices.Clone(s.tags),
		Security:        s.security,
		SecuritySchemes: maps.Clone(s.securitySchemes),
		ExternalDocs:    s.externalDocs,
		Validate:        s.cfg.Validate,
		Resolver:        s.resolver,
		Logger:          s.logger,
		Metrics:         s.metrics,
	})
	s.mu.Unlock()

	walkErr := r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		reg, methods, ok := s.registration(route)
		if !ok {
			return nil
		}

		id := reg.Doc.OperationID
		for _, method := range methods {
			reg.Method = method
			if len(methods) > 1 && id != "" {
				reg.Doc.OperationID = operationIDForMethod(id, method)
			}
			if err := assembler.RegisterRoute(reg); err != nil {
				return err
			}
		}
		return nil
	})

	doc, err := assembler.Finalize()
	if walkErr != nil {
		var mErr multierror.Error
		_ = multierror.Append(&mErr, walkErr, err)
		return doc, mErr.ErrorOrNil()
	}
	return doc, err
}

// registration returns the documentation of a single mux route and its
// methods, or false when the route is not documentable.
func (s *Spec) registration(route *mux.Route) (Registration, []string, bool) {
	s.mu.Lock()
	_, isDocs := s.docsRoutes[route]
	builder, ok := s.routeOps[route]
	if !ok && route.GetName() != "" {
		builder, ok = s.operations[route.GetName()]
	}
	s.mu.Unlock()

	if isDocs {
		return Registration{}, nil, false
	}

	tpl, err := route.GetPathTemplate()
	if err != nil {
		return Registration{}, nil, false
	}
	methods, err := route.GetMethods()
	if err != nil || len(methods) == 0 {
		return Registration{}, nil, false
	}

	if !ok {
		builder = NewRouteBuilder()
	}
	doc := builder.Build()
	if doc.Hidden {
		return Registration{}, nil, false
	}
	if doc.OperationID == "" {
		doc.OperationID = route.GetName()
	}

	path, params := parsePath(tpl)
	return Registration{Path: path, Doc: doc, PathParameters: params}, methods, true
}

// operationIDForMethod keeps operation IDs unique when one named route
// serves several methods: "user" becomes "user_get", "user_put", ...
func operationIDForMethod(id, method string) string {
	return id + "_" + strings.ToLower(method)
}

// parsePath converts a mux path template into an OpenAPI path and the
// detected path parameters. Variable patterns may contain braces, as in
// "{id:[0-9]{4}}".
func parsePath(tpl string) (string, []ParameterDoc) {
	var (
		b      strings.Builder
		params []ParameterDoc
	)

	for i := 0; i < len(tpl); {
		if tpl[i] != '{' {
			b.WriteByte(tpl[i])
			i++
			continue
		}

		end := matchingBrace(tpl, i)
		if end < 0 {
			b.WriteString(tpl[i:])
			break
		}

		name, pattern, _ := strings.Cut(tpl[i+1:end], ":")
		b.WriteString("{" + name + "}")
		params = append(params, PathParameter(name, patternType(pattern)))
		i = end + 1
	}

	return b.String(), params
}

func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// patternType infers the parameter type of a mux variable pattern.
func patternType(pattern string) TypeDescriptor {
	switch pattern {
	case "":
		return String()
	case "[0-9]+", `\d+`, "[1-9][0-9]*", "[0-9]*", `\d*`:
		return Integer()
	case "[0-9]+(?:\\.[0-9]+)?", `\d+(?:\.\d+)?`:
		return Number()
	}

	if strings.Contains(pattern, "{8}-") && strings.Contains(pattern, "{12}") {
		return UUID()
	}

	return Raw(&Schema{Type: "string", Pattern: "^" + pattern + "$"})
}
