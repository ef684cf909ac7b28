package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "invalid", KindInvalid.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestDescriptorModifiersCopy(t *testing.T) {
	base := String()
	nullable := base.Nullable()
	example := base.WithExample("hi")

	assert.False(t, base.IsNullable())
	assert.True(t, nullable.IsNullable())
	assert.Nil(t, base.example)
	assert.Equal(t, "hi", example.example)
}

func TestObjectFieldsAreCopied(t *testing.T) {
	fields := []Field{Prop("name", String())}
	d := Object("Item", fields...)

	fields[0].Name = "changed"
	assert.Equal(t, "name", d.Fields()[0].Name)

	got := d.Fields()
	got[0].Name = "changed"
	assert.Equal(t, "name", d.Fields()[0].Name)
}

func TestDescribe(t *testing.T) {
	type Pet struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name string
		in   any
		kind Kind
		zero bool
	}{
		{"nil", nil, KindInvalid, true},
		{"descriptor", Integer(), KindPrimitive, false},
		{"descriptor pointer", new(TypeDescriptor), KindInvalid, true},
		{"schema", &Schema{Type: "string"}, KindSchema, false},
		{"nil schema", (*Schema)(nil), KindInvalid, false},
		{"go value", Pet{}, KindObject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(tt.in)
			assert.Equal(t, tt.kind, d.Kind())
			assert.Equal(t, tt.zero, d.IsZero())
		})
	}
}

func TestElem(t *testing.T) {
	elem, ok := ArrayOf(Boolean()).Elem()
	assert.True(t, ok)
	assert.Equal(t, "boolean", elem.Name())

	_, ok = String().Elem()
	assert.False(t, ok)
}
