package openapi

import (
	"reflect"
	"slices"
)

// Kind classifies a TypeDescriptor.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindObject
	KindArray
	KindMap
	KindEnum
	KindRef
	KindAny
	KindSchema
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindPrimitive: "primitive",
	KindObject:    "object",
	KindArray:     "array",
	KindMap:       "map",
	KindEnum:      "enum",
	KindRef:       "ref",
	KindAny:       "any",
	KindSchema:    "schema",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// TypeDescriptor is an immutable handle to a data shape declared on a route:
// a primitive, an object with fields, a collection, an enum, a reference to
// a named component, a raw schema, or a Go type inspected via reflection.
// Descriptors are plain values and can be shared freely between routes.
//
// The zero TypeDescriptor means "no schema" (for example a 204 response).
type TypeDescriptor struct {
	kind     Kind
	name     string // primitive type, or stable component name
	format   string
	nullable bool
	elem     *TypeDescriptor
	values   []any
	fields   []Field
	example  any
	goType   reflect.Type // reflected Go type; fields are read lazily
	schema   *Schema      // KindSchema only
	reason   string       // KindInvalid only
}

// Field is a single named property of an object descriptor.
type Field struct {
	Name        string
	Type        TypeDescriptor
	Required    bool
	Description string

	// Tag holds `openapi:"..."` style constraints (minLength, format, ...)
	// applied to the resolved property schema.
	Tag string

	stringEncoded bool
}

// Kind returns the descriptor kind.
func (d TypeDescriptor) Kind() Kind { return d.kind }

// Name returns the stable component name of an object or reference
// descriptor, or the JSON type name of a primitive.
func (d TypeDescriptor) Name() string { return d.name }

// IsNullable reports whether the described value may be null.
func (d TypeDescriptor) IsNullable() bool { return d.nullable }

// IsZero reports whether the descriptor is unset.
func (d TypeDescriptor) IsZero() bool {
	return d.kind == KindInvalid && d.goType == nil && d.reason == ""
}

// GoType returns the reflected Go type, or nil for declared descriptors.
func (d TypeDescriptor) GoType() reflect.Type { return d.goType }

// Elem returns the element descriptor of an array or map descriptor.
func (d TypeDescriptor) Elem() (TypeDescriptor, bool) {
	if d.elem == nil {
		return TypeDescriptor{}, false
	}
	return *d.elem, true
}

// Fields returns a copy of the declared fields of an object descriptor.
// Reflected objects report their fields only during resolution.
func (d TypeDescriptor) Fields() []Field {
	return slices.Clone(d.fields)
}

// Nullable returns a copy of the descriptor that also accepts null.
func (d TypeDescriptor) Nullable() TypeDescriptor {
	d.nullable = true
	return d
}

// WithExample returns a copy of the descriptor carrying an example value for
// the resolved schema.
func (d TypeDescriptor) WithExample(v any) TypeDescriptor {
	d.example = v
	return d
}

// Primitive describes a JSON primitive with an optional format.
func Primitive(typ, format string) TypeDescriptor {
	return TypeDescriptor{kind: KindPrimitive, name: typ, format: format}
}

// Shorthands for the common primitives. Format values follow the OpenAPI
// data type formats.
//
// See: https://spec.openapis.org/oas/v3.0.3#data-types

// String describes a JSON string.
func String() TypeDescriptor { return Primitive("string", "") }

// Integer describes a JSON integer without a format.
func Integer() TypeDescriptor { return Primitive("integer", "") }

// Int64 describes an integer with the int64 format.
func Int64() TypeDescriptor { return Primitive("integer", "int64") }

// Number describes a JSON number without a format.
func Number() TypeDescriptor { return Primitive("number", "") }

// Boolean describes a JSON boolean.
func Boolean() TypeDescriptor { return Primitive("boolean", "") }

// DateTime describes an RFC 3339 date-time string.
func DateTime() TypeDescriptor { return Primitive("string", "date-time") }

// UUID describes a string with the uuid format.
func UUID() TypeDescriptor { return Primitive("string", "uuid") }

// Binary describes raw binary content, such as a file upload.
func Binary() TypeDescriptor { return Primitive("string", "binary") }

// Object describes a named object. The name is the stable component name the
// object is registered under; an empty name produces an inline schema.
func Object(name string, fields ...Field) TypeDescriptor {
	return TypeDescriptor{kind: KindObject, name: name, fields: slices.Clone(fields)}
}

// Prop declares a required object field.
func Prop(name string, t TypeDescriptor) Field {
	return Field{Name: name, Type: t, Required: true}
}

// OptionalProp declares an optional object field.
func OptionalProp(name string, t TypeDescriptor) Field {
	return Field{Name: name, Type: t}
}

// ArrayOf describes an array of elem.
func ArrayOf(elem TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{kind: KindArray, elem: &elem}
}

// MapOf describes an object with string keys and elem values.
func MapOf(elem TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{kind: KindMap, elem: &elem}
}

// Enum describes a string enumeration.
func Enum(values ...string) TypeDescriptor {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return TypeDescriptor{kind: KindEnum, name: "string", values: vs}
}

// Ref describes a reference to a component schema registered by another
// descriptor. Use it to express recursive declared types.
func Ref(name string) TypeDescriptor {
	return TypeDescriptor{kind: KindRef, name: name}
}

// Any describes an unconstrained value.
func Any() TypeDescriptor {
	return TypeDescriptor{kind: KindAny}
}

// Raw wraps an explicit schema that is emitted as-is.
func Raw(s *Schema) TypeDescriptor {
	if s == nil {
		return invalidDescriptor(nil, "nil raw schema")
	}
	return TypeDescriptor{kind: KindSchema, schema: s}
}

// Describe normalizes the body value accepted by the route builder. A
// TypeDescriptor is returned unchanged, a *Schema is wrapped with Raw, nil
// yields the zero descriptor, and any other value is inspected with TypeOf.
func Describe(v any) TypeDescriptor {
	switch t := v.(type) {
	case nil:
		return TypeDescriptor{}
	case TypeDescriptor:
		return t
	case *TypeDescriptor:
		if t == nil {
			return TypeDescriptor{}
		}
		return *t
	case *Schema:
		return Raw(t)
	}
	return TypeOf(v)
}

func invalidDescriptor(t reflect.Type, reason string) TypeDescriptor {
	return TypeDescriptor{kind: KindInvalid, goType: t, reason: reason}
}
