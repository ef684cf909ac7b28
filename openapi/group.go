package openapi

import (
	"github.com/gorilla/mux"
)

// RouteGroup provides shared documentation defaults for a logical group of
// routes. Every RouteBuilder it creates starts from a copy of the group's
// defaults and may add to or override them.
type RouteGroup struct {
	spec     *Spec
	defaults RouteBuilder
}

// Tags appends tags to the group defaults.
func (g *RouteGroup) Tags(tags ...string) *RouteGroup {
	g.defaults.Tags(tags...)
	return g
}

// Security sets the group-level security requirements. Routes inherit them
// unless they call Security themselves. Call with no arguments to mark the
// group as public.
func (g *RouteGroup) Security(reqs ...SecurityRequirement) *RouteGroup {
	g.defaults.Security(reqs...)
	return g
}

// Deprecated marks all routes in this group as deprecated. Individual
// routes cannot undo group deprecation.
func (g *RouteGroup) Deprecated() *RouteGroup {
	g.defaults.Deprecated()
	return g
}

// Server adds a server override to every route in the group.
func (g *RouteGroup) Server(server Server) *RouteGroup {
	g.defaults.Server(server)
	return g
}

// Parameter adds a common parameter to every route in the group.
func (g *RouteGroup) Parameter(p ParameterDoc) *RouteGroup {
	g.defaults.Parameter(p)
	return g
}

// ExternalDocs links external documentation for every route in the group.
// A route-level ExternalDocs replaces it.
//
// See: https://spec.openapis.org/oas/v3.0.3#external-documentation-object
func (g *RouteGroup) ExternalDocs(url, description string) *RouteGroup {
	g.defaults.ExternalDocs(url, description)
	return g
}

// Response adds a shared application/json response. A route-level Response
// for the same status code overrides it.
func (g *RouteGroup) Response(statusCode int, body any) *RouteGroup {
	g.defaults.Response(statusCode, body)
	return g
}

func (g *RouteGroup) ResponseContent(statusCode int, contentType string, body any) *RouteGroup {
	g.defaults.ResponseContent(statusCode, contentType, body)
	return g
}

func (g *RouteGroup) ResponseDescription(statusCode int, desc string) *RouteGroup {
	g.defaults.ResponseDescription(statusCode, desc)
	return g
}

func (g *RouteGroup) ResponseHeader(statusCode int, name string, h HeaderDoc) *RouteGroup {
	g.defaults.ResponseHeader(statusCode, name, h)
	return g
}

// DefaultResponse adds a shared application/json default response.
func (g *RouteGroup) DefaultResponse(body any) *RouteGroup {
	g.defaults.DefaultResponse(body)
	return g
}

// Route attaches a RouteBuilder pre-populated with the group defaults to an
// existing mux route.
func (g *RouteGroup) Route(route *mux.Route) *RouteBuilder {
	b := g.newBuilder()
	g.spec.attachRoute(route, b)
	return b
}

// Op returns a RouteBuilder for the named route, pre-populated with the
// group defaults. An already registered name returns the existing builder
// without applying the defaults again.
func (g *RouteGroup) Op(routeName string) *RouteBuilder {
	return g.spec.namedBuilder(routeName, g.newBuilder)
}

func (g *RouteGroup) newBuilder() *RouteBuilder {
	return &RouteBuilder{doc: g.defaults.doc.clone()}
}
