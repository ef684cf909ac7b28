package openapi

import (
	"encoding/json"
	"strings"
)

// Version is the OpenAPI Specification version emitted in every Document.
const Version = "3.0.3"

// Document represents the root of an OpenAPI v3.0.3 document.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
type Document struct {
	OpenAPI      string                `json:"openapi"`
	Info         Info                  `json:"info"`
	Servers      []Server              `json:"servers,omitempty"`
	Paths        map[string]*PathItem  `json:"paths"`
	Components   *Components           `json:"components,omitempty"`
	Security     []SecurityRequirement `json:"security,omitempty"`
	Tags         []Tag                 `json:"tags,omitempty"`
	ExternalDocs *ExternalDocs         `json:"externalDocs,omitempty"`
}

// Info provides metadata about the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
type Info struct {
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	TermsOfService string   `json:"termsOfService,omitempty" yaml:"termsOfService"`
	Contact        *Contact `json:"contact,omitempty" yaml:"contact"`
	License        *License `json:"license,omitempty" yaml:"license"`
	Version        string   `json:"version" yaml:"version"`
}

// Contact represents contact information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#contact-object
type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name"`
	URL   string `json:"url,omitempty" yaml:"url"`
	Email string `json:"email,omitempty" yaml:"email"`
}

// License represents license information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#license-object
type License struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url"`
}

// Server represents a server.
//
// See: https://spec.openapis.org/oas/v3.0.3#server-object
type Server struct {
	URL         string                     `json:"url" yaml:"url"`
	Description string                     `json:"description,omitempty" yaml:"description"`
	Variables   map[string]*ServerVariable `json:"variables,omitempty" yaml:"variables"`
}

// ServerVariable represents a server variable for URL template substitution.
//
// See: https://spec.openapis.org/oas/v3.0.3#server-variable-object
type ServerVariable struct {
	Enum        []string `json:"enum,omitempty" yaml:"enum"`
	Default     string   `json:"default" yaml:"default"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// PathItem describes the operations available on a single path.
//
// See: https://spec.openapis.org/oas/v3.0.3#path-item-object
type PathItem struct {
	Summary     string       `json:"summary,omitempty"`
	Description string       `json:"description,omitempty"`
	Get         *Operation   `json:"get,omitempty"`
	Put         *Operation   `json:"put,omitempty"`
	Post        *Operation   `json:"post,omitempty"`
	Delete      *Operation   `json:"delete,omitempty"`
	Options     *Operation   `json:"options,omitempty"`
	Head        *Operation   `json:"head,omitempty"`
	Patch       *Operation   `json:"patch,omitempty"`
	Trace       *Operation   `json:"trace,omitempty"`
	Servers     []Server     `json:"servers,omitempty"`
	Parameters  []*Parameter `json:"parameters,omitempty"`
}

// Operations returns the non-nil operations of the path item in a fixed
// method order.
func (p *PathItem) Operations() []*Operation {
	var ops []*Operation
	for _, op := range []*Operation{
		p.Get, p.Put, p.Post, p.Delete,
		p.Options, p.Head, p.Patch, p.Trace,
	} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// Operation describes a single API operation on a path. Responses is always
// emitted; an undocumented route carries an empty object.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type Operation struct {
	Tags         []string              `json:"tags,omitempty"`
	Summary      string                `json:"summary,omitempty"`
	Description  string                `json:"description,omitempty"`
	ExternalDocs *ExternalDocs         `json:"externalDocs,omitempty"`
	OperationID  string                `json:"operationId,omitempty"`
	Parameters   []*Parameter          `json:"parameters,omitempty"`
	RequestBody  *RequestBody          `json:"requestBody,omitempty"`
	Responses    map[string]*Response  `json:"responses"`
	Deprecated   bool                  `json:"deprecated,omitempty"`
	Security     []SecurityRequirement `json:"security,omitempty"`
	Servers      []Server              `json:"servers,omitempty"`
}

// MarshalJSON emits an empty security list, which marks the operation as
// public, instead of dropping it.
func (o Operation) MarshalJSON() ([]byte, error) {
	type operation Operation
	if o.Security == nil || len(o.Security) > 0 {
		return json.Marshal(operation(o))
	}
	return json.Marshal(struct {
		operation
		Security []SecurityRequirement `json:"security"`
	}{operation(o), o.Security})
}

// Parameter describes a single operation parameter. Required and deprecated
// are always serialized so that the permissive defaults are visible in the
// document. AllowEmptyValue and AllowReserved only apply to query parameters
// and are nil elsewhere.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type Parameter struct {
	Name            string                `json:"name"`
	In              string                `json:"in"`
	Description     string                `json:"description,omitempty"`
	Required        bool                  `json:"required"`
	Deprecated      bool                  `json:"deprecated"`
	AllowEmptyValue *bool                 `json:"allowEmptyValue,omitempty"`
	Style           string                `json:"style,omitempty"`
	Explode         *bool                 `json:"explode,omitempty"`
	AllowReserved   *bool                 `json:"allowReserved,omitempty"`
	Schema          *Schema               `json:"schema,omitempty"`
	Example         any                   `json:"example,omitempty"`
	Examples        map[string]*Example   `json:"examples,omitempty"`
	Content         map[string]*MediaType `json:"content,omitempty"`
}

// RequestBody describes a single request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBody struct {
	Description string                `json:"description,omitempty"`
	Required    bool                  `json:"required,omitempty"`
	Content     map[string]*MediaType `json:"content"`
}

// Response describes a single response from an API operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
type Response struct {
	Description string                `json:"description"`
	Headers     map[string]*Header    `json:"headers,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// MediaType describes a media type with a schema and optional examples.
//
// See: https://spec.openapis.org/oas/v3.0.3#media-type-object
type MediaType struct {
	Schema   *Schema             `json:"schema,omitempty"`
	Example  any                 `json:"example,omitempty"`
	Examples map[string]*Example `json:"examples,omitempty"`
}

// Header describes a single response header.
//
// See: https://spec.openapis.org/oas/v3.0.3#header-object
type Header struct {
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Deprecated  bool    `json:"deprecated,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// Schema is an OpenAPI 3.0 Schema Object. It is the resolved form of a
// TypeDescriptor: a primitive (Type and Format), an object (Properties and
// Required), an array (Items) or a reference (Ref).
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object
type Schema struct {
	Ref string `json:"$ref,omitempty"`

	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Example     any    `json:"example,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
	WriteOnly   bool   `json:"writeOnly,omitempty"`

	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum bool     `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum bool     `json:"exclusiveMaximum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`

	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	MinProperties        *int               `json:"minProperties,omitempty"`
	MaxProperties        *int               `json:"maxProperties,omitempty"`

	Enum []any `json:"enum,omitempty"`

	AllOf []*Schema `json:"allOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	Not   *Schema   `json:"not,omitempty"`
}

// RefName returns the component name a $ref points to, or "" when the
// schema is not a local component reference.
func (s *Schema) RefName() string {
	if s == nil {
		return ""
	}
	name, ok := strings.CutPrefix(s.Ref, schemaRefPrefix)
	if !ok {
		return ""
	}
	return name
}

const schemaRefPrefix = "#/components/schemas/"

func refSchema(name string) *Schema {
	return &Schema{Ref: schemaRefPrefix + name}
}

// Components holds the shared, de-duplicated schemas and security schemes.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object
type Components struct {
	Schemas         map[string]*Schema         `json:"schemas,omitempty"`
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
}

// Tag adds metadata to a single tag used by Operation Objects.
//
// See: https://spec.openapis.org/oas/v3.0.3#tag-object
type Tag struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	ExternalDocs *ExternalDocs `json:"externalDocs,omitempty"`
}

// SecurityRequirement lists required security schemes for an operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-requirement-object
type SecurityRequirement map[string][]string

// ExternalDocs allows referencing external documentation.
//
// See: https://spec.openapis.org/oas/v3.0.3#external-documentation-object
type ExternalDocs struct {
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Example represents a named example value.
//
// See: https://spec.openapis.org/oas/v3.0.3#example-object
type Example struct {
	Summary       string `json:"summary,omitempty"`
	Description   string `json:"description,omitempty"`
	Value         any    `json:"value,omitempty"`
	ExternalValue string `json:"externalValue,omitempty"`
}

// SecurityScheme defines a security scheme used by API operations.
//
// See: https://spec.openapis.org/oas/v3.0.3#security-scheme-object
type SecurityScheme struct {
	Type             string      `json:"type"`
	Description      string      `json:"description,omitempty"`
	Name             string      `json:"name,omitempty"`
	In               string      `json:"in,omitempty"`
	Scheme           string      `json:"scheme,omitempty"`
	BearerFormat     string      `json:"bearerFormat,omitempty"`
	Flows            *OAuthFlows `json:"flows,omitempty"`
	OpenIDConnectURL string      `json:"openIdConnectUrl,omitempty"`
}

// OAuthFlows describes the available OAuth2 flows.
//
// See: https://spec.openapis.org/oas/v3.0.3#oauth-flows-object
type OAuthFlows struct {
	Implicit          *OAuthFlow `json:"implicit,omitempty"`
	Password          *OAuthFlow `json:"password,omitempty"`
	ClientCredentials *OAuthFlow `json:"clientCredentials,omitempty"`
	AuthorizationCode *OAuthFlow `json:"authorizationCode,omitempty"`
}

// OAuthFlow describes a single OAuth2 flow configuration.
//
// See: https://spec.openapis.org/oas/v3.0.3#oauth-flow-object
type OAuthFlow struct {
	AuthorizationURL string            `json:"authorizationUrl,omitempty"`
	TokenURL         string            `json:"tokenUrl,omitempty"`
	RefreshURL       string            `json:"refreshUrl,omitempty"`
	Scopes           map[string]string `json:"scopes"`
}
