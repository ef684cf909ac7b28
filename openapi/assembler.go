package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// ErrFinalized is returned when a route is registered after the document
// has been assembled.
var ErrFinalized = errors.New("openapi: document already finalized")

// ErrNotFinalized is returned by Assembler.Document before Finalize.
var ErrNotFinalized = errors.New("openapi: document not finalized")

// Registration is one documented route: an OpenAPI path template, an HTTP
// method, and its documentation.
type Registration struct {
	Path   string
	Method string
	Doc    RouteDoc

	// PathParameters are detected from the router path template. Path
	// variables without an entry get a required string parameter.
	PathParameters []ParameterDoc
}

// AssemblyConfig carries the document-level metadata and collaborators used
// by Assemble.
type AssemblyConfig struct {
	Info            Info
	Servers         []Server
	Tags            []Tag
	Security        []SecurityRequirement
	SecuritySchemes map[string]*SecurityScheme
	ExternalDocs    *ExternalDocs

	// Validate loads the assembled document with kin-openapi and fails the
	// assembly when it is not a valid OpenAPI 3.0 document.
	Validate bool

	Resolver Resolver
	Logger   hclog.Logger
	Metrics  *Metrics
}

// Assemble builds a Document from the given registrations. It is a pure
// function of its inputs: routes are processed in order, every type
// descriptor is resolved through one shared ResolutionContext, and schema
// name collisions, dangling references and validation failures are
// returned as a combined error. The partially assembled document is
// returned alongside any error.
func Assemble(routes []Registration, cfg AssemblyConfig) (*Document, error) {
	start := time.Now()

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	rc := NewResolutionContext(cfg.Resolver, logger, cfg.Metrics)

	doc := &Document{
		OpenAPI:      Version,
		Info:         cfg.Info,
		Servers:      slices.Clone(cfg.Servers),
		Paths:        make(map[string]*PathItem),
		Security:     cfg.Security,
		ExternalDocs: cfg.ExternalDocs,
	}
	if doc.Info.Title == "" {
		doc.Info.Title = "API"
	}
	if doc.Info.Version == "" {
		doc.Info.Version = "latest"
	}

	seen := make(map[string]bool)
	for _, reg := range routes {
		if reg.Doc.Hidden {
			continue
		}

		method := strings.ToUpper(reg.Method)
		key := method + " " + reg.Path
		if seen[key] {
			logger.Warn("duplicate route documentation ignored", "method", method, "path", reg.Path)
			continue
		}

		item, ok := doc.Paths[reg.Path]
		if !ok {
			item = &PathItem{}
		}

		op := buildOperation(reg, rc)
		if !assignOperation(item, method, op) {
			logger.Warn("unsupported method ignored", "method", method, "path", reg.Path)
			continue
		}

		seen[key] = true
		doc.Paths[reg.Path] = item
	}

	schemas := rc.Schemas()
	if len(schemas) > 0 || len(cfg.SecuritySchemes) > 0 {
		doc.Components = &Components{}
		if len(schemas) > 0 {
			doc.Components.Schemas = schemas
		}
		if len(cfg.SecuritySchemes) > 0 {
			doc.Components.SecuritySchemes = maps.Clone(cfg.SecuritySchemes)
		}
	}

	doc.Tags = mergeTags(cfg.Tags, doc.Paths)

	var mErr multierror.Error
	if err := rc.Err(); err != nil {
		_ = multierror.Append(&mErr, err)
	}
	for _, name := range danglingRefs(doc) {
		_ = multierror.Append(&mErr, fmt.Errorf("schema reference %q has no component", name))
	}
	if cfg.Validate && mErr.ErrorOrNil() == nil {
		if err := validateDocument(doc); err != nil {
			_ = multierror.Append(&mErr, err)
		}
	}

	cfg.Metrics.recordBuild(time.Since(start), doc)
	logger.Debug("document assembled",
		"paths", len(doc.Paths), "schemas", len(schemas), "duration", time.Since(start))

	return doc, mErr.ErrorOrNil()
}

// buildOperation converts a registration into an Operation Object.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
func buildOperation(reg Registration, rc *ResolutionContext) *Operation {
	d := reg.Doc
	op := &Operation{
		OperationID:  d.OperationID,
		Summary:      d.Summary,
		Description:  d.Description,
		Tags:         d.Tags,
		Deprecated:   d.Deprecated,
		Security:     d.Security,
		ExternalDocs: d.ExternalDocs,
		Servers:      d.Servers,
		Responses:    make(map[string]*Response, len(d.Responses)),
	}

	for _, p := range mergeParameters(pathParameters(reg), d.Parameters) {
		op.Parameters = append(op.Parameters, buildParameter(p, rc))
	}

	if d.RequestBody != nil {
		op.RequestBody = &RequestBody{
			Description: d.RequestBody.Description,
			Required:    d.RequestBody.Required,
			Content:     buildContent(d.RequestBody.Content, rc),
		}
		if op.RequestBody.Content == nil {
			op.RequestBody.Content = make(map[string]*MediaType)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(d.Responses)) {
		rd := d.Responses[key]
		resp := &Response{
			Description: rd.Description,
			Content:     buildContent(rd.Content, rc),
		}
		if resp.Description == "" {
			resp.Description = responseDescription(key)
		}
		for _, name := range slices.Sorted(maps.Keys(rd.Headers)) {
			h := rd.Headers[name]
			if resp.Headers == nil {
				resp.Headers = make(map[string]*Header, len(rd.Headers))
			}
			resp.Headers[name] = &Header{
				Description: h.Description,
				Required:    h.Required,
				Deprecated:  h.Deprecated,
				Schema:      schemaOrString(rc.Resolve(h.Type)),
			}
		}
		op.Responses[key] = resp
	}

	return op
}

func buildContent(content map[string]MediaTypeDoc, rc *ResolutionContext) map[string]*MediaType {
	if len(content) == 0 {
		return nil
	}
	out := make(map[string]*MediaType, len(content))
	for _, ct := range slices.Sorted(maps.Keys(content)) {
		mt := content[ct]
		out[ct] = &MediaType{
			Schema:   rc.Resolve(mt.Type),
			Example:  mt.Example,
			Examples: mt.Examples,
		}
	}
	return out
}

// buildParameter converts a ParameterDoc into a Parameter Object. Path
// parameters are always required; allowEmptyValue and allowReserved are
// only meaningful for query parameters and are omitted elsewhere.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
func buildParameter(p ParameterDoc, rc *ResolutionContext) *Parameter {
	explode := p.Explode
	param := &Parameter{
		Name:        p.Name,
		In:          p.In,
		Description: p.Description,
		Required:    p.Required || p.In == "path",
		Deprecated:  p.Deprecated,
		Style:       p.Style,
		Explode:     &explode,
		Example:     p.Example,
		Schema:      schemaOrString(rc.Resolve(p.Type)),
	}
	if p.In == "query" {
		allowEmpty, allowReserved := p.AllowEmptyValue, p.AllowReserved
		param.AllowEmptyValue = &allowEmpty
		param.AllowReserved = &allowReserved
	}
	return param
}

func schemaOrString(s *Schema) *Schema {
	if s == nil {
		return &Schema{Type: "string"}
	}
	return s
}

// pathParameters returns the detected path parameters of reg plus a string
// parameter for every other variable in the path template.
func pathParameters(reg Registration) []ParameterDoc {
	params := slices.Clone(reg.PathParameters)
	for _, name := range pathVariables(reg.Path) {
		if !slices.ContainsFunc(params, func(p ParameterDoc) bool { return p.Name == name }) {
			params = append(params, PathParameter(name, String()))
		}
	}
	return params
}

func pathVariables(path string) []string {
	var names []string
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, path[open+1:open+end])
		path = path[open+end+1:]
	}
}

// mergeParameters combines auto-detected path parameters with explicit
// parameters. Explicit parameters with the same name and location replace
// the detected ones.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object (parameters)
func mergeParameters(auto, custom []ParameterDoc) []ParameterDoc {
	if len(auto) == 0 && len(custom) == 0 {
		return nil
	}

	overrides := make(map[[2]string]struct{}, len(custom))
	for _, p := range custom {
		overrides[[2]string{p.Name, p.In}] = struct{}{}
	}

	var merged []ParameterDoc
	for _, p := range auto {
		if _, ok := overrides[[2]string{p.Name, p.In}]; !ok {
			merged = append(merged, p)
		}
	}

	seen := make(map[[2]string]struct{}, len(custom))
	for _, p := range custom {
		key := [2]string{p.Name, p.In}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// assignOperation sets op on the path item field for method. It reports
// false for methods a path item cannot hold.
func assignOperation(item *PathItem, method string, op *Operation) bool {
	var slot **Operation
	switch method {
	case http.MethodGet:
		slot = &item.Get
	case http.MethodPost:
		slot = &item.Post
	case http.MethodPut:
		slot = &item.Put
	case http.MethodDelete:
		slot = &item.Delete
	case http.MethodPatch:
		slot = &item.Patch
	case http.MethodHead:
		slot = &item.Head
	case http.MethodOptions:
		slot = &item.Options
	case http.MethodTrace:
		slot = &item.Trace
	default:
		return false
	}
	*slot = op
	return true
}

// mergeTags combines auto-collected operation tags with user-defined tags.
// User-defined tags keep their description and external docs, and are
// included even when no operation uses them. The result is sorted by name.
func mergeTags(userTags []Tag, paths map[string]*PathItem) []Tag {
	byName := make(map[string]Tag, len(userTags))
	for _, tag := range userTags {
		if _, ok := byName[tag.Name]; !ok {
			byName[tag.Name] = tag
		}
	}

	for _, item := range paths {
		for _, op := range item.Operations() {
			for _, name := range op.Tags {
				if _, ok := byName[name]; !ok {
					byName[name] = Tag{Name: name}
				}
			}
		}
	}

	if len(byName) == 0 {
		return nil
	}

	tags := slices.Collect(maps.Values(byName))
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})
	return tags
}

// danglingRefs returns the sorted names of component references that have
// no matching components.schemas entry.
func danglingRefs(doc *Document) []string {
	var schemas map[string]*Schema
	if doc.Components != nil {
		schemas = doc.Components.Schemas
	}

	missing := make(map[string]struct{})
	visit := func(s *Schema) {
		walkSchema(s, func(s *Schema) {
			if name := s.RefName(); name != "" {
				if _, ok := schemas[name]; !ok {
					missing[name] = struct{}{}
				}
			}
		})
	}

	for _, s := range schemas {
		visit(s)
	}
	for _, item := range doc.Paths {
		for _, op := range item.Operations() {
			for _, p := range op.Parameters {
				visit(p.Schema)
			}
			if op.RequestBody != nil {
				for _, mt := range op.RequestBody.Content {
					visit(mt.Schema)
				}
			}
			for _, resp := range op.Responses {
				for _, mt := range resp.Content {
					visit(mt.Schema)
				}
				for _, h := range resp.Headers {
					visit(h.Schema)
				}
			}
		}
	}

	return slices.Sorted(maps.Keys(missing))
}

func walkSchema(s *Schema, fn func(*Schema)) {
	if s == nil {
		return
	}
	fn(s)
	walkSchema(s.Items, fn)
	walkSchema(s.AdditionalProperties, fn)
	walkSchema(s.Not, fn)
	for _, p := range s.Properties {
		walkSchema(p, fn)
	}
	for _, group := range [][]*Schema{s.AllOf, s.OneOf, s.AnyOf} {
		for _, sub := range group {
			walkSchema(sub, fn)
		}
	}
}

// validateDocument round-trips the document through kin-openapi and runs
// its structural validation.
func validateDocument(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	loader := openapi3.NewLoader()
	model, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	// Undocumented operations keep an empty responses object in the served
	// document; they are checked against a placeholder default response.
	for _, item := range model.Paths {
		for _, op := range item.Operations() {
			if len(op.Responses) == 0 {
				op.Responses = openapi3.NewResponses()
			}
		}
	}

	if err := model.Validate(context.Background()); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}

	return nil
}

// Assembler collects route registrations and assembles the document exactly
// once. Register is safe for concurrent use; after Finalize the document and
// its error are fixed for the lifetime of the Assembler.
type Assembler struct {
	cfg AssemblyConfig

	mu     sync.Mutex
	routes []Registration
	closed bool
	done   bool

	once sync.Once
	doc  *Document
	err  error
}

// NewAssembler creates an Assembler with the given configuration.
func NewAssembler(cfg AssemblyConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// Register appends the documentation of one route. It returns ErrFinalized
// once the document has been assembled.
func (a *Assembler) Register(path, method string, doc RouteDoc) error {
	return a.RegisterRoute(Registration{Path: path, Method: method, Doc: doc})
}

// RegisterRoute appends a registration that may carry detected path
// parameters.
func (a *Assembler) RegisterRoute(reg Registration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrFinalized
	}
	reg.Doc = reg.Doc.clone()
	a.routes = append(a.routes, reg)
	return nil
}

// Finalize assembles the document on the first call and returns the cached
// result on every later call.
func (a *Assembler) Finalize() (*Document, error) {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		routes := a.routes
		a.mu.Unlock()

		doc, err := Assemble(routes, a.cfg)

		a.mu.Lock()
		a.doc, a.err, a.done = doc, err, true
		a.mu.Unlock()
	})
	return a.doc, a.err
}

// Document returns the cached result of Finalize, or ErrNotFinalized when
// the document has not been assembled yet.
func (a *Assembler) Document() (*Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.done {
		return nil, ErrNotFinalized
	}
	return a.doc, a.err
}
