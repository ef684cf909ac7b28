package openapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"
)

// SampleOf describes the shape of a JSON sample document. A top-level object
// becomes a named object registered under name; nested objects are inlined.
// Every key present in an object is required unless its value is null.
// Arrays are described by their first element. Strings that parse as a UUID
// or an RFC 3339 timestamp get the matching format.
//
// A sample that is not valid JSON yields an invalid descriptor, which
// resolves to an untyped object and is reported by the resolver.
func SampleOf(name string, sample []byte) TypeDescriptor {
	v, err := fastjson.ParseBytes(sample)
	if err != nil {
		return invalidDescriptor(nil, "invalid JSON sample "+name+": "+err.Error())
	}

	d := describeSample(v)
	if d.kind == KindObject {
		d.name = name
	}
	return d
}

func describeSample(v *fastjson.Value) TypeDescriptor {
	switch v.Type() {
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return invalidDescriptor(nil, err.Error())
		}
		return describeSampleObject(o)

	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return invalidDescriptor(nil, err.Error())
		}
		if len(items) == 0 {
			return ArrayOf(Any())
		}
		return ArrayOf(describeSample(items[0]))

	case fastjson.TypeString:
		s := string(v.GetStringBytes())
		if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
			return UUID()
		}
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return DateTime()
		}
		return String()

	case fastjson.TypeNumber:
		if _, err := v.Int64(); err == nil {
			return Integer()
		}
		return Number()

	case fastjson.TypeTrue, fastjson.TypeFalse:
		return Boolean()

	case fastjson.TypeNull:
		return Any().Nullable()
	}

	return Any()
}

func describeSampleObject(o *fastjson.Object) TypeDescriptor {
	var fields []Field
	o.Visit(func(key []byte, v *fastjson.Value) {
		fields = append(fields, Field{
			Name:     string(key),
			Type:     describeSample(v),
			Required: v.Type() != fastjson.TypeNull,
		})
	})
	return TypeDescriptor{kind: KindObject, fields: fields}
}
