package openapi

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
)

// RouteDoc is the immutable documentation record of one route, produced by
// RouteBuilder.Build. Type references are kept as descriptors and resolved
// only when the document is assembled.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type RouteDoc struct {
	OperationID  string
	Summary      string
	Description  string
	Tags         []string
	Deprecated   bool
	Hidden       bool
	Parameters   []ParameterDoc
	RequestBody  *RequestBodyDoc
	Responses    map[string]ResponseDoc // status code or "default"
	Security     []SecurityRequirement  // nil inherits, empty means public
	ExternalDocs *ExternalDocs
	Servers      []Server
}

// ParameterDoc documents a single operation parameter.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type ParameterDoc struct {
	Name            string
	In              string // "query", "path", "header" or "cookie"
	Description     string
	Type            TypeDescriptor
	Required        bool
	Deprecated      bool
	AllowEmptyValue bool
	Explode         bool
	AllowReserved   bool
	Style           string
	Example         any
}

// RequestBodyDoc documents a request body by content type.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBodyDoc struct {
	Description string
	Required    bool
	Content     map[string]MediaTypeDoc
}

// MediaTypeDoc is the body shape for one content type.
type MediaTypeDoc struct {
	Type     TypeDescriptor
	Example  any
	Examples map[string]*Example
}

// ResponseDoc documents a single response.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
type ResponseDoc struct {
	Description string
	Content     map[string]MediaTypeDoc
	Headers     map[string]HeaderDoc
}

// HeaderDoc documents a response header.
type HeaderDoc struct {
	Description string
	Type        TypeDescriptor
	Required    bool
	Deprecated  bool
}

func newParameter(in, name string, t TypeDescriptor) ParameterDoc {
	return ParameterDoc{
		Name:            name,
		In:              in,
		Type:            t,
		AllowEmptyValue: true,
		AllowReserved:   true,
	}
}

// QueryParameter documents a query parameter. Parameters are optional by
// default, accept empty values and reserved characters, and do not explode.
func QueryParameter(name string, t TypeDescriptor) ParameterDoc {
	return newParameter("query", name, t)
}

// PathParameter documents a path parameter. Path parameters are always
// required.
func PathParameter(name string, t TypeDescriptor) ParameterDoc {
	p := newParameter("path", name, t)
	p.Required = true
	return p
}

// HeaderParameter documents a request header parameter. Header names are
// case-insensitive, and Accept, Content-Type and Authorization headers are
// described elsewhere in an operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-locations
func HeaderParameter(name string, t TypeDescriptor) ParameterDoc {
	return newParameter("header", name, t)
}

// CookieParameter documents a cookie parameter.
func CookieParameter(name string, t TypeDescriptor) ParameterDoc {
	return newParameter("cookie", name, t)
}

// AsRequired marks the parameter as mandatory.
func (p ParameterDoc) AsRequired() ParameterDoc {
	p.Required = true
	return p
}

// AsDeprecated marks the parameter as deprecated.
func (p ParameterDoc) AsDeprecated() ParameterDoc {
	p.Deprecated = true
	return p
}

// WithDescription sets the parameter description. CommonMark syntax may be
// used for rich text.
func (p ParameterDoc) WithDescription(desc string) ParameterDoc {
	p.Description = desc
	return p
}

// WithExample sets an example value for the parameter.
func (p ParameterDoc) WithExample(v any) ParameterDoc {
	p.Example = v
	return p
}

// WithExplode controls whether array and object values generate separate
// parameters for each item or property.
//
// See: https://spec.openapis.org/oas/v3.0.3#style-examples
func (p ParameterDoc) WithExplode(explode bool) ParameterDoc {
	p.Explode = explode
	return p
}

// WithAllowReserved controls whether reserved characters (RFC 3986
// :/?#[]@!$&'()*+,;=) are sent without percent-encoding. Only applies to
// query parameters.
func (p ParameterDoc) WithAllowReserved(allow bool) ParameterDoc {
	p.AllowReserved = allow
	return p
}

// WithAllowEmptyValue controls whether an empty value may be sent. Only
// applies to query parameters.
func (p ParameterDoc) WithAllowEmptyValue(allow bool) ParameterDoc {
	p.AllowEmptyValue = allow
	return p
}

// WithStyle sets the serialization style ("form", "simple", "label", ...).
//
// See: https://spec.openapis.org/oas/v3.0.3#style-values
func (p ParameterDoc) WithStyle(style string) ParameterDoc {
	p.Style = style
	return p
}

// RouteBuilder provides a fluent API for documenting a route. Body and type
// arguments accept a TypeDescriptor, a *Schema, a Go value inspected with
// TypeOf, or nil for no schema. A builder is meant to be configured during
// application setup and is not safe for concurrent use.
type RouteBuilder struct {
	doc RouteDoc
}

// NewRouteBuilder returns a builder for an undocumented route.
func NewRouteBuilder() *RouteBuilder {
	return &RouteBuilder{}
}

// OperationID sets a custom operation ID, overriding the route name.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object (operationId)
func (b *RouteBuilder) OperationID(id string) *RouteBuilder {
	b.doc.OperationID = id
	return b
}

// Summary sets a short summary of what the operation does.
func (b *RouteBuilder) Summary(s string) *RouteBuilder {
	b.doc.Summary = s
	return b
}

// Description sets a verbose explanation of the operation behavior.
// CommonMark syntax may be used for rich text.
func (b *RouteBuilder) Description(d string) *RouteBuilder {
	b.doc.Description = d
	return b
}

// Tags adds one or more tags to the operation.
func (b *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	b.doc.Tags = append(b.doc.Tags, tags...)
	return b
}

// Deprecated marks the operation as deprecated.
func (b *RouteBuilder) Deprecated() *RouteBuilder {
	b.doc.Deprecated = true
	return b
}

// Hidden excludes the route from the generated document.
func (b *RouteBuilder) Hidden() *RouteBuilder {
	b.doc.Hidden = true
	return b
}

// Security sets operation-level security requirements. Call with no
// arguments to mark the operation as public, overriding document-level
// security.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-requirement-object
func (b *RouteBuilder) Security(reqs ...SecurityRequirement) *RouteBuilder {
	if reqs == nil {
		reqs = []SecurityRequirement{}
	}
	b.doc.Security = reqs
	return b
}

// ExternalDocs links additional external documentation for the operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#external-documentation-object
func (b *RouteBuilder) ExternalDocs(url, description string) *RouteBuilder {
	b.doc.ExternalDocs = &ExternalDocs{URL: url, Description: description}
	return b
}

// Server adds a server override for the operation.
func (b *RouteBuilder) Server(server Server) *RouteBuilder {
	b.doc.Servers = append(b.doc.Servers, server)
	return b
}

// Parameter adds a parameter. A parameter with the same name and location
// as an auto-detected path parameter replaces it.
func (b *RouteBuilder) Parameter(p ParameterDoc) *RouteBuilder {
	b.doc.Parameters = append(b.doc.Parameters, p)
	return b
}

// QueryParam adds an optional query parameter. The type argument follows
// the same rules as body arguments.
func (b *RouteBuilder) QueryParam(name string, t any, description string) *RouteBuilder {
	return b.Parameter(QueryParameter(name, Describe(t)).WithDescription(description))
}

// PathParam adds a required path parameter, replacing the auto-detected one
// of the same name.
func (b *RouteBuilder) PathParam(name string, t any, description string) *RouteBuilder {
	return b.Parameter(PathParameter(name, Describe(t)).WithDescription(description))
}

// HeaderParam adds an optional header parameter.
func (b *RouteBuilder) HeaderParam(name string, t any, description string) *RouteBuilder {
	return b.Parameter(HeaderParameter(name, Describe(t)).WithDescription(description))
}

// CookieParam adds an optional cookie parameter.
func (b *RouteBuilder) CookieParam(name string, t any, description string) *RouteBuilder {
	return b.Parameter(CookieParameter(name, Describe(t)).WithDescription(description))
}

// Request registers an application/json request body. This is a shortcut
// for RequestContent("application/json", body).
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
func (b *RouteBuilder) Request(body any) *RouteBuilder {
	return b.RequestContent("application/json", body)
}

// RequestContent registers a request body with the given content type.
func (b *RouteBuilder) RequestContent(contentType string, body any) *RouteBuilder {
	rb := b.requestBody()
	mt := rb.Content[contentType]
	mt.Type = Describe(body)
	rb.Content[contentType] = mt
	return b
}

// RequestExample sets the example of the application/json request body.
func (b *RouteBuilder) RequestExample(example any) *RouteBuilder {
	rb := b.requestBody()
	mt := rb.Content["application/json"]
	mt.Example = example
	rb.Content["application/json"] = mt
	return b
}

// RequestExamples sets named examples of the application/json request body.
// Set either RequestExample or RequestExamples, not both.
//
// See: https://spec.openapis.org/oas/v3.0.3#example-object
func (b *RouteBuilder) RequestExamples(examples map[string]*Example) *RouteBuilder {
	rb := b.requestBody()
	mt := rb.Content["application/json"]
	mt.Examples = maps.Clone(examples)
	rb.Content["application/json"] = mt
	return b
}

// RequestDescription sets the request body description.
func (b *RouteBuilder) RequestDescription(desc string) *RouteBuilder {
	b.requestBody().Description = desc
	return b
}

// RequestRequired sets whether the request body is required. Request bodies
// are required by default.
func (b *RouteBuilder) RequestRequired(required bool) *RouteBuilder {
	b.requestBody().Required = required
	return b
}

func (b *RouteBuilder) requestBody() *RequestBodyDoc {
	if b.doc.RequestBody == nil {
		b.doc.RequestBody = &RequestBodyDoc{
			Required: true,
			Content:  make(map[string]MediaTypeDoc),
		}
	}
	return b.doc.RequestBody
}

// Response registers an application/json response for the given status
// code. Pass nil for a response with no content (for example 204).
//
// See: https://spec.openapis.org/oas/v3.0.3#responses-object
func (b *RouteBuilder) Response(statusCode int, body any) *RouteBuilder {
	return b.response(strconv.Itoa(statusCode), "application/json", body)
}

// ResponseContent registers a response with the given status code and
// content type.
func (b *RouteBuilder) ResponseContent(statusCode int, contentType string, body any) *RouteBuilder {
	return b.response(strconv.Itoa(statusCode), contentType, body)
}

// DefaultResponse registers the application/json response for status codes
// not covered by specific responses.
//
// See: https://spec.openapis.org/oas/v3.0.3#responses-object (default)
func (b *RouteBuilder) DefaultResponse(body any) *RouteBuilder {
	return b.response("default", "application/json", body)
}

func (b *RouteBuilder) DefaultResponseContent(contentType string, body any) *RouteBuilder {
	return b.response("default", contentType, body)
}

// ResponseExample sets the example of the application/json response for
// the given status code.
func (b *RouteBuilder) ResponseExample(statusCode int, example any) *RouteBuilder {
	key := strconv.Itoa(statusCode)
	resp := b.ensureResponse(key)
	if resp.Content == nil {
		resp.Content = make(map[string]MediaTypeDoc)
	}
	mt := resp.Content["application/json"]
	mt.Example = example
	resp.Content["application/json"] = mt
	b.doc.Responses[key] = resp
	return b
}

// ResponseExamples sets named examples of the application/json response for
// the given status code.
func (b *RouteBuilder) ResponseExamples(statusCode int, examples map[string]*Example) *RouteBuilder {
	key := strconv.Itoa(statusCode)
	resp := b.ensureResponse(key)
	if resp.Content == nil {
		resp.Content = make(map[string]MediaTypeDoc)
	}
	mt := resp.Content["application/json"]
	mt.Examples = maps.Clone(examples)
	resp.Content["application/json"] = mt
	b.doc.Responses[key] = resp
	return b
}

// ResponseDescription overrides the description derived from the HTTP
// status text.
func (b *RouteBuilder) ResponseDescription(statusCode int, desc string) *RouteBuilder {
	key := strconv.Itoa(statusCode)
	resp := b.ensureResponse(key)
	resp.Description = desc
	b.doc.Responses[key] = resp
	return b
}

// ResponseHeader adds a header to the response for the given status code.
//
// See: https://spec.openapis.org/oas/v3.0.3#header-object
func (b *RouteBuilder) ResponseHeader(statusCode int, name string, h HeaderDoc) *RouteBuilder {
	key := strconv.Itoa(statusCode)
	resp := b.ensureResponse(key)
	if resp.Headers == nil {
		resp.Headers = make(map[string]HeaderDoc)
	}
	resp.Headers[name] = h
	b.doc.Responses[key] = resp
	return b
}

func (b *RouteBuilder) response(key, contentType string, body any) *RouteBuilder {
	resp := b.ensureResponse(key)
	if body != nil {
		if resp.Content == nil {
			resp.Content = make(map[string]MediaTypeDoc)
		}
		mt := resp.Content[contentType]
		mt.Type = Describe(body)
		resp.Content[contentType] = mt
	}
	b.doc.Responses[key] = resp
	return b
}

func (b *RouteBuilder) ensureResponse(key string) ResponseDoc {
	if b.doc.Responses == nil {
		b.doc.Responses = make(map[string]ResponseDoc)
	}
	resp, ok := b.doc.Responses[key]
	if !ok {
		resp.Description = responseDescription(key)
	}
	return resp
}

// Build returns the documentation record. It does not modify the builder,
// and the returned record shares no mutable state with it, so repeated
// calls yield equal values. An unconfigured builder yields an empty,
// non-nil responses map.
func (b *RouteBuilder) Build() RouteDoc {
	return b.doc.clone()
}

func (d RouteDoc) clone() RouteDoc {
	out := d
	out.Tags = slices.Clone(d.Tags)
	out.Parameters = slices.Clone(d.Parameters)
	out.Servers = slices.Clone(d.Servers)

	if d.Security != nil {
		out.Security = make([]SecurityRequirement, len(d.Security))
		for i, req := range d.Security {
			out.Security[i] = cloneRequirement(req)
		}
	}

	if d.ExternalDocs != nil {
		ed := *d.ExternalDocs
		out.ExternalDocs = &ed
	}

	if d.RequestBody != nil {
		rb := *d.RequestBody
		rb.Content = cloneContent(d.RequestBody.Content)
		out.RequestBody = &rb
	}

	out.Responses = make(map[string]ResponseDoc, len(d.Responses))
	for key, resp := range d.Responses {
		resp.Content = cloneContent(resp.Content)
		resp.Headers = maps.Clone(resp.Headers)
		out.Responses[key] = resp
	}

	return out
}

func cloneContent(content map[string]MediaTypeDoc) map[string]MediaTypeDoc {
	if content == nil {
		return nil
	}
	out := make(map[string]MediaTypeDoc, len(content))
	for ct, mt := range content {
		mt.Examples = maps.Clone(mt.Examples)
		out[ct] = mt
	}
	return out
}

func cloneRequirement(req SecurityRequirement) SecurityRequirement {
	if req == nil {
		return nil
	}
	out := make(SecurityRequirement, len(req))
	for name, scopes := range req {
		out[name] = slices.Clone(scopes)
	}
	return out
}

// responseDescription returns a human-readable description for a response key.
func responseDescription(key string) string {
	if key == "default" {
		return "Default response"
	}
	code, err := strconv.Atoi(key)
	if err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return key
}
