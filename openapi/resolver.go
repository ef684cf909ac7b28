package openapi

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Resolver turns a TypeDescriptor into a Schema. Named objects are registered
// in the ResolutionContext and referenced by $ref. Resolve must not panic;
// descriptors it cannot handle should resolve to an untyped object.
type Resolver interface {
	Resolve(d TypeDescriptor, rc *ResolutionContext) *Schema
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(d TypeDescriptor, rc *ResolutionContext) *Schema

// Resolve calls f(d, rc).
func (f ResolverFunc) Resolve(d TypeDescriptor, rc *ResolutionContext) *Schema {
	return f(d, rc)
}

// SchemaCollisionError reports two structurally different schemas that were
// registered under the same component name.
type SchemaCollisionError struct {
	Name   string
	First  string // owner of the kept schema
	Second string // owner of the rejected schema
	Diff   string // go-cmp diff, kept (-) against rejected (+)
}

func (e *SchemaCollisionError) Error() string {
	return fmt.Sprintf("schema %q is declared by both %s and %s with different shapes", e.Name, e.First, e.Second)
}

// ResolutionContext carries the state shared by every resolution during one
// document assembly: the component registry, the in-progress stack used to
// break cycles, and accumulated collision errors. It is not safe for
// concurrent use.
type ResolutionContext struct {
	resolver  Resolver
	logger    hclog.Logger
	metrics   *Metrics
	schemas   map[string]*Schema
	owners    map[string]string
	typeNames map[reflect.Type]string
	stack     []frame
	errs      multierror.Error
}

// frame is one object on the in-progress stack. goType is nil for declared
// objects.
type frame struct {
	name   string
	goType reflect.Type
}

// NewResolutionContext creates an empty context. Nested descriptors (fields,
// array items, map values) are resolved through resolver; a nil resolver
// uses DefaultResolver.
func NewResolutionContext(resolver Resolver, logger hclog.Logger, metrics *Metrics) *ResolutionContext {
	if resolver == nil {
		resolver = DefaultResolver{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResolutionContext{
		resolver:  resolver,
		logger:    logger,
		metrics:   metrics,
		schemas:   make(map[string]*Schema),
		owners:    make(map[string]string),
		typeNames: make(map[reflect.Type]string),
	}
}

// Resolve resolves d through the context's resolver. The zero descriptor
// resolves to nil. A panicking resolver is treated as a fallback.
func (rc *ResolutionContext) Resolve(d TypeDescriptor) (s *Schema) {
	if d.IsZero() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s = rc.Fallback(d, fmt.Sprintf("resolver panic: %v", r))
		}
	}()

	s = rc.resolver.Resolve(d, rc)
	if s == nil {
		s = rc.Fallback(d, "resolver returned no schema")
	}
	return s
}

// Fallback logs that d could not be resolved and returns an untyped object
// schema.
func (rc *ResolutionContext) Fallback(d TypeDescriptor, reason string) *Schema {
	if reason == "" {
		reason = d.reason
	}
	if reason == "" {
		reason = "unsupported descriptor kind " + d.kind.String()
	}

	rc.logger.Warn("unresolvable type, using untyped object schema",
		"type", describeOwner(d), "reason", reason)
	rc.metrics.recordFallback()

	return &Schema{Type: "object"}
}

// InProgress reports whether name is currently being resolved further up
// the stack.
func (rc *ResolutionContext) InProgress(name string) bool {
	return slices.ContainsFunc(rc.stack, func(f frame) bool { return f.name == name })
}

// cycle reports whether the object d is already being resolved further up
// the stack. Only reflected types can recur; a declared object that reuses
// an in-progress name is a different shape and must be resolved on its own.
func (rc *ResolutionContext) cycle(name string, d TypeDescriptor) bool {
	if d.goType == nil {
		return false
	}
	return slices.Contains(rc.stack, frame{name: name, goType: d.goType})
}

// Register stores s under name. Registering a structurally equal schema
// again is a no-op; a different schema is recorded as a
// *SchemaCollisionError and the first registration is kept.
func (rc *ResolutionContext) Register(name, owner string, s *Schema) {
	existing, ok := rc.schemas[name]
	if !ok {
		rc.schemas[name] = s
		rc.owners[name] = owner
		return
	}

	if cmp.Equal(existing, s, schemaCmpOpts...) {
		return
	}

	err := &SchemaCollisionError{
		Name:   name,
		First:  rc.owners[name],
		Second: owner,
		Diff:   cmp.Diff(existing, s, schemaCmpOpts...),
	}
	rc.logger.Error("schema name collision", "name", name, "first", err.First, "second", err.Second)
	rc.metrics.recordCollision()
	_ = multierror.Append(&rc.errs, err)
}

// Schemas returns the registered component schemas.
func (rc *ResolutionContext) Schemas() map[string]*Schema {
	return rc.schemas
}

// Err returns the accumulated collision errors, or nil.
func (rc *ResolutionContext) Err() error {
	return rc.errs.ErrorOrNil()
}

// Logger returns the context logger.
func (rc *ResolutionContext) Logger() hclog.Logger {
	return rc.logger
}

// Example values may hold unexported fields.
var schemaCmpOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

func describeOwner(d TypeDescriptor) string {
	if d.goType != nil {
		if d.goType.PkgPath() != "" {
			return d.goType.PkgPath() + "." + d.goType.Name()
		}
		return d.goType.String()
	}
	if d.name != "" {
		return "declared " + d.kind.String() + " " + d.name
	}
	return "declared " + d.kind.String()
}

// DefaultResolver resolves every descriptor kind.
type DefaultResolver struct{}

// Resolve implements Resolver.
func (r DefaultResolver) Resolve(d TypeDescriptor, rc *ResolutionContext) *Schema {
	var s *Schema

	switch d.kind {
	case KindPrimitive:
		s = &Schema{Type: d.name, Format: d.format}

	case KindEnum:
		s = &Schema{Type: d.name, Enum: slices.Clone(d.values)}

	case KindAny:
		s = &Schema{}

	case KindArray:
		s = &Schema{Type: "array", Items: &Schema{}}
		if d.elem != nil {
			if items := rc.Resolve(*d.elem); items != nil {
				s.Items = items
			}
		}

	case KindMap:
		s = &Schema{Type: "object"}
		if d.elem != nil {
			s.AdditionalProperties = rc.Resolve(*d.elem)
		}

	case KindRef:
		return nullable(refSchema(d.name), d.nullable)

	case KindSchema:
		cp := *d.schema
		s = &cp

	case KindObject:
		return r.resolveObject(d, rc)

	default:
		return rc.Fallback(d, "")
	}

	if d.example != nil {
		s.Example = d.example
	}
	return nullable(s, d.nullable)
}

func (r DefaultResolver) resolveObject(d TypeDescriptor, rc *ResolutionContext) *Schema {
	if d.name == "" {
		s := r.objectSchema(d, rc)
		return nullable(s, d.nullable)
	}

	name := d.name
	if d.goType != nil {
		if known, ok := rc.typeNames[d.goType]; ok {
			return nullable(refSchema(known), d.nullable)
		}
	}

	if !rc.cycle(name, d) {
		s := r.enterObject(name, d, rc)
		rc.Register(name, describeOwner(d), s)
		if d.goType != nil {
			rc.typeNames[d.goType] = name
		}
	}

	return nullable(refSchema(name), d.nullable)
}

func (r DefaultResolver) enterObject(name string, d TypeDescriptor, rc *ResolutionContext) *Schema {
	rc.stack = append(rc.stack, frame{name: name, goType: d.goType})
	defer func() { rc.stack = rc.stack[:len(rc.stack)-1] }()

	return r.objectSchema(d, rc)
}

func (r DefaultResolver) objectSchema(d TypeDescriptor, rc *ResolutionContext) *Schema {
	s := &Schema{Type: "object"}

	for _, f := range objectFields(d) {
		fs := rc.Resolve(f.Type)
		if fs == nil {
			continue
		}

		if fs.Ref == "" && len(fs.AllOf) == 0 {
			applyOpenAPITag(fs, f.Tag)
			if f.stringEncoded {
				applyStringEncoding(fs)
			}
			if f.Description != "" {
				fs.Description = f.Description
			}
		}

		if s.Properties == nil {
			s.Properties = make(map[string]*Schema)
		}
		s.Properties[f.Name] = fs
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}

	if d.example != nil {
		s.Example = d.example
	} else if ex, ok := exampleOf(d.goType); ok {
		s.Example = ex
	}

	return s
}

// nullable marks s as accepting null. A $ref cannot carry siblings in 3.0,
// so references are wrapped in allOf.
func nullable(s *Schema, ok bool) *Schema {
	if !ok {
		return s
	}
	if s.Ref != "" {
		return &Schema{AllOf: []*Schema{s}, Nullable: true}
	}
	s.Nullable = true
	return s
}
