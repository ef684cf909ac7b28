package openapi

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exampler can be implemented by types to provide an example value for the
// component schema generated from them.
//
//	func (u User) OpenAPIExample() any {
//	    return User{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "Alice"}
//	}
type Exampler interface {
	OpenAPIExample() any
}

var (
	timeType       = reflect.TypeFor[time.Time]()
	uuidType       = reflect.TypeFor[uuid.UUID]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

// TypeOf describes the Go type of v. Named struct types become named object
// descriptors whose stable name is the (sanitized) type name; their fields
// are read from json and openapi struct tags when the descriptor is resolved.
// Pointers are nullable. Channels, functions and complex numbers produce an
// invalid descriptor that resolves to an untyped object.
func TypeOf(v any) TypeDescriptor {
	if v == nil {
		return TypeDescriptor{}
	}
	return describeType(reflect.TypeOf(v))
}

func describeType(t reflect.Type) TypeDescriptor {
	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	d := describeValueType(t)
	if nullable {
		d.nullable = true
	}
	return d
}

func describeValueType(t reflect.Type) TypeDescriptor {
	switch t {
	case timeType:
		return DateTime()
	case uuidType:
		return UUID()
	case rawMessageType:
		return Any()
	}

	switch t.Kind() {
	case reflect.Bool:
		return Boolean()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Integer()

	case reflect.Int64, reflect.Uint64:
		return Int64()

	case reflect.Float32, reflect.Float64:
		return Number()

	case reflect.String:
		return String()

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Primitive("string", "byte")
		}
		return ArrayOf(describeType(t.Elem()))

	case reflect.Array:
		return ArrayOf(describeType(t.Elem()))

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return TypeDescriptor{kind: KindMap}
		}
		return MapOf(describeType(t.Elem()))

	case reflect.Struct:
		name := ""
		if t.PkgPath() != "" {
			name = sanitizeSchemaName(t.Name())
		}
		return TypeDescriptor{kind: KindObject, name: name, goType: t}

	case reflect.Interface:
		return Any()
	}

	return invalidDescriptor(t, "unsupported Go kind "+t.Kind().String())
}

// objectFields returns the fields of an object descriptor, reading struct
// fields for reflected types.
func objectFields(d TypeDescriptor) []Field {
	if d.goType != nil && d.goType.Kind() == reflect.Struct {
		var fields []Field
		collectFields(d.goType, &fields, false, map[reflect.Type]bool{d.goType: true})
		return fields
	}
	return d.fields
}

// collectFields appends the exported, JSON-visible fields of t. Embedded
// structs without a json name are inlined; pointer-embedded structs make
// all of their fields optional because the pointer can be nil. A struct that
// is already on the embedding path is skipped, as encoding/json does.
func collectFields(t reflect.Type, fields *[]Field, allOptional bool, path map[reflect.Type]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, opts := parseJSONTag(jsonTag)

		if field.Anonymous && name == "" {
			ft := field.Type
			isPtr := ft.Kind() == reflect.Pointer
			if isPtr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if !path[ft] {
					path[ft] = true
					collectFields(ft, fields, allOptional || isPtr, path)
					delete(path, ft)
				}
				continue
			}
		}

		if name == "" {
			name = field.Name
		}

		*fields = append(*fields, Field{
			Name:          name,
			Type:          describeType(field.Type),
			Required:      !opts.omitempty && !allOptional,
			Tag:           field.Tag.Get("openapi"),
			stringEncoded: opts.stringEncode,
		})
	}
}

type jsonTagOpts struct {
	omitempty    bool
	stringEncode bool
}

func parseJSONTag(tag string) (string, jsonTagOpts) {
	if tag == "" {
		return "", jsonTagOpts{}
	}
	name, rest, _ := strings.Cut(tag, ",")
	return name, jsonTagOpts{
		omitempty:    strings.Contains(rest, "omitempty") || strings.Contains(rest, "omitzero"),
		stringEncode: strings.Contains(rest, "string"),
	}
}

// exampleOf returns the OpenAPIExample value of a reflected type, if any.
func exampleOf(t reflect.Type) (any, bool) {
	if t == nil {
		return nil, false
	}
	if ex, ok := reflect.New(t).Interface().(Exampler); ok {
		return ex.OpenAPIExample(), true
	}
	return nil, false
}

// applyOpenAPITag parses an `openapi` struct tag and applies the constraints
// to a resolved property schema. Exclusive bounds use the 3.0 boolean form:
// "exclusiveMinimum=5" sets minimum 5 with exclusiveMinimum true.
func applyOpenAPITag(schema *Schema, tag string) {
	if tag == "" {
		return
	}

	for part := range strings.SplitSeq(tag, ",") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "description":
			schema.Description = value
		case "title":
			schema.Title = value
		case "example":
			schema.Example = parseTagValue(schema, value)
		case "default":
			schema.Default = parseTagValue(schema, value)
		case "format":
			schema.Format = value
		case "pattern":
			schema.Pattern = value
		case "minimum":
			schema.Minimum = parseFloat(value)
		case "maximum":
			schema.Maximum = parseFloat(value)
		case "exclusiveMinimum":
			if v := parseFloat(value); v != nil {
				schema.Minimum = v
				schema.ExclusiveMinimum = true
			}
		case "exclusiveMaximum":
			if v := parseFloat(value); v != nil {
				schema.Maximum = v
				schema.ExclusiveMaximum = true
			}
		case "multipleOf":
			schema.MultipleOf = parseFloat(value)
		case "minLength":
			schema.MinLength = parseInt(value)
		case "maxLength":
			schema.MaxLength = parseInt(value)
		case "minItems":
			schema.MinItems = parseInt(value)
		case "maxItems":
			schema.MaxItems = parseInt(value)
		case "minProperties":
			schema.MinProperties = parseInt(value)
		case "maxProperties":
			schema.MaxProperties = parseInt(value)
		case "uniqueItems":
			schema.UniqueItems = true
		case "enum":
			values := strings.Split(value, "|")
			schema.Enum = make([]any, len(values))
			for i, v := range values {
				schema.Enum[i] = parseTagValue(schema, v)
			}
		case "deprecated":
			schema.Deprecated = true
		case "readOnly":
			schema.ReadOnly = true
		case "writeOnly":
			schema.WriteOnly = true
		case "nullable":
			schema.Nullable = true
		}
	}
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// parseTagValue converts a tag value to the Go type matching the schema type.
func parseTagValue(schema *Schema, value string) any {
	switch schema.Type {
	case "integer":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

// applyStringEncoding mirrors the encoding/json ",string" option, which
// encodes numbers and booleans as JSON strings.
func applyStringEncoding(schema *Schema) {
	switch schema.Type {
	case "integer", "number", "boolean":
		schema.Type = "string"
		schema.Format = ""
	}
}

// sanitizeSchemaName turns Go type names into component keys. Generic names
// like "Page[User]" become "PageUser" and "Page[[]User]" becomes
// "PageUserList". Package paths in type arguments are dropped.
func sanitizeSchemaName(name string) string {
	idx := strings.IndexByte(name, '[')
	if idx < 0 {
		return name
	}

	base := name[:idx]
	var b strings.Builder
	b.WriteString(base)

	for arg := range strings.SplitSeq(name[idx+1:len(name)-1], ",") {
		arg = strings.TrimSpace(arg)
		isList := strings.HasPrefix(arg, "[]")
		arg = strings.TrimPrefix(arg, "[]")
		arg = strings.TrimPrefix(arg, "*")
		if dot := strings.LastIndexByte(arg, '.'); dot >= 0 {
			arg = arg[dot+1:]
		}
		b.WriteString(arg)
		if isList {
			b.WriteString("List")
		}
	}

	return b.String()
}
