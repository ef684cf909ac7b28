package openapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteBuilderMetadata(t *testing.T) {
	doc := NewRouteBuilder().
		OperationID("listPets").
		Summary("List pets").
		Description("Returns all pets").
		Tags("pets").
		Tags("public").
		Deprecated().
		ExternalDocs("https://example.com/pets", "Pet guide").
		Server(Server{URL: "https://pets.example.com"}).
		Build()

	assert.Equal(t, "listPets", doc.OperationID)
	assert.Equal(t, "List pets", doc.Summary)
	assert.Equal(t, "Returns all pets", doc.Description)
	assert.Equal(t, []string{"pets", "public"}, doc.Tags)
	assert.True(t, doc.Deprecated)
	assert.False(t, doc.Hidden)
	assert.Equal(t, &ExternalDocs{URL: "https://example.com/pets", Description: "Pet guide"}, doc.ExternalDocs)
	assert.Equal(t, []Server{{URL: "https://pets.example.com"}}, doc.Servers)
}

func TestRouteBuilderUnconfigured(t *testing.T) {
	doc := NewRouteBuilder().Build()

	assert.NotNil(t, doc.Responses)
	assert.Empty(t, doc.Responses)
	assert.Nil(t, doc.RequestBody)
	assert.Nil(t, doc.Security)
	assert.Empty(t, doc.Parameters)
}

func TestRouteBuilderSecurity(t *testing.T) {
	t.Run("public operation", func(t *testing.T) {
		doc := NewRouteBuilder().Security().Build()
		require.NotNil(t, doc.Security)
		assert.Empty(t, doc.Security)
	})

	t.Run("requirements", func(t *testing.T) {
		doc := NewRouteBuilder().Security(SecurityRequirement{"oauth": {"read"}}).Build()
		assert.Equal(t, []SecurityRequirement{{"oauth": {"read"}}}, doc.Security)
	})
}

func TestRouteBuilderParameters(t *testing.T) {
	doc := NewRouteBuilder().
		QueryParam("limit", Integer(), "page size").
		PathParam("id", 0, "pet id").
		HeaderParam("X-Trace", nil, "").
		CookieParam("session", String(), "session cookie").
		Parameter(QueryParameter("sort", Enum("asc", "desc")).AsRequired().AsDeprecated().WithStyle("form").WithExplode(true)).
		Build()

	require.Len(t, doc.Parameters, 5)

	limit := doc.Parameters[0]
	assert.Equal(t, "query", limit.In)
	assert.Equal(t, "page size", limit.Description)
	assert.False(t, limit.Required)
	assert.True(t, limit.AllowEmptyValue)
	assert.True(t, limit.AllowReserved)
	assert.False(t, limit.Explode)

	id := doc.Parameters[1]
	assert.Equal(t, "path", id.In)
	assert.True(t, id.Required)
	assert.Equal(t, KindPrimitive, id.Type.Kind())

	assert.Equal(t, "header", doc.Parameters[2].In)
	assert.True(t, doc.Parameters[2].Type.IsZero())
	assert.Equal(t, "cookie", doc.Parameters[3].In)

	sort := doc.Parameters[4]
	assert.True(t, sort.Required)
	assert.True(t, sort.Deprecated)
	assert.True(t, sort.Explode)
	assert.Equal(t, "form", sort.Style)
}

func TestParameterModifiersReturnCopies(t *testing.T) {
	base := QueryParameter("q", String())
	changed := base.
		WithDescription("search").
		WithExample("cats").
		WithAllowEmptyValue(false).
		WithAllowReserved(false)

	assert.Empty(t, base.Description)
	assert.True(t, base.AllowEmptyValue)
	assert.True(t, base.AllowReserved)

	assert.Equal(t, "search", changed.Description)
	assert.Equal(t, "cats", changed.Example)
	assert.False(t, changed.AllowEmptyValue)
	assert.False(t, changed.AllowReserved)
}

func TestRouteBuilderRequest(t *testing.T) {
	t.Run("json body is required by default", func(t *testing.T) {
		doc := NewRouteBuilder().
			Request(Object("Item", Prop("name", String()))).
			RequestExample(map[string]any{"name": "x"}).
			RequestDescription("item to create").
			Build()

		require.NotNil(t, doc.RequestBody)
		assert.True(t, doc.RequestBody.Required)
		assert.Equal(t, "item to create", doc.RequestBody.Description)

		mt := doc.RequestBody.Content["application/json"]
		assert.Equal(t, "Item", mt.Type.Name())
		assert.Equal(t, map[string]any{"name": "x"}, mt.Example)
	})

	t.Run("named examples", func(t *testing.T) {
		examples := map[string]*Example{
			"small":  {Summary: "one item", Value: map[string]any{"name": "x"}},
			"remote": {ExternalValue: "https://example.com/item.json"},
		}
		b := NewRouteBuilder().
			Request(Object("Item", Prop("name", String()))).
			RequestExamples(examples)
		delete(examples, "remote")

		mt := b.Build().RequestBody.Content["application/json"]
		assert.Equal(t, "Item", mt.Type.Name())
		assert.Nil(t, mt.Example)
		require.Len(t, mt.Examples, 2)
		assert.Equal(t, "one item", mt.Examples["small"].Summary)
		assert.Equal(t, "https://example.com/item.json", mt.Examples["remote"].ExternalValue)
	})

	t.Run("optional body with custom content type", func(t *testing.T) {
		doc := NewRouteBuilder().
			RequestContent("application/octet-stream", Binary()).
			RequestRequired(false).
			Build()

		assert.False(t, doc.RequestBody.Required)
		assert.Contains(t, doc.RequestBody.Content, "application/octet-stream")
	})
}

func TestRouteBuilderResponses(t *testing.T) {
	doc := NewRouteBuilder().
		Response(http.StatusOK, ArrayOf(String())).
		ResponseExample(http.StatusOK, []string{"a"}).
		Response(http.StatusNoContent, nil).
		ResponseContent(http.StatusOK, "text/plain", String()).
		ResponseDescription(http.StatusNotFound, "no such pet").
		ResponseHeader(http.StatusOK, "X-Total", HeaderDoc{Type: Integer(), Description: "total"}).
		DefaultResponse(Object("Error", Prop("message", String()))).
		DefaultResponseContent("text/plain", String()).
		Response(799, nil).
		Build()

	ok := doc.Responses["200"]
	assert.Equal(t, "OK", ok.Description)
	assert.Contains(t, ok.Content, "application/json")
	assert.Contains(t, ok.Content, "text/plain")
	assert.Equal(t, []string{"a"}, ok.Content["application/json"].Example)
	assert.Equal(t, "total", ok.Headers["X-Total"].Description)

	noContent := doc.Responses["204"]
	assert.Equal(t, "No Content", noContent.Description)
	assert.Nil(t, noContent.Content)

	assert.Equal(t, "no such pet", doc.Responses["404"].Description)
	assert.Equal(t, "Default response", doc.Responses["default"].Description)
	assert.Len(t, doc.Responses["default"].Content, 2)
	assert.Equal(t, "799", doc.Responses["799"].Description)
}

func TestRouteBuilderResponseExamples(t *testing.T) {
	tests := []struct {
		name     string
		builder  *RouteBuilder
		wantDesc string
		wantType string
	}{
		{
			name: "after response",
			builder: NewRouteBuilder().
				Response(http.StatusOK, Object("Pet", Prop("name", String()))).
				ResponseExamples(http.StatusOK, map[string]*Example{"cat": {Value: map[string]any{"name": "Tom"}}}),
			wantDesc: "OK",
			wantType: "Pet",
		},
		{
			name: "without response",
			builder: NewRouteBuilder().
				ResponseExamples(http.StatusNotFound, map[string]*Example{"missing": {Value: map[string]any{"message": "not found"}}}),
			wantDesc: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.builder.Build()
			require.Len(t, doc.Responses, 1)

			for _, resp := range doc.Responses {
				assert.Equal(t, tt.wantDesc, resp.Description)
				mt := resp.Content["application/json"]
				assert.Len(t, mt.Examples, 1)
				assert.Nil(t, mt.Example)
				if tt.wantType != "" {
					assert.Equal(t, tt.wantType, mt.Type.Name())
				}
			}
		})
	}
}

func TestRouteBuilderBuildIsRepeatable(t *testing.T) {
	b := NewRouteBuilder().
		Tags("pets").
		QueryParam("limit", Integer(), "").
		Request(String()).
		Response(http.StatusOK, String()).
		ResponseHeader(http.StatusOK, "X-Rate", HeaderDoc{Type: Integer()}).
		Security(SecurityRequirement{"key": {"read"}})

	first := b.Build()
	second := b.Build()
	assert.Equal(t, first, second)

	first.Tags[0] = "changed"
	first.Parameters[0].Name = "changed"
	first.RequestBody.Description = "changed"
	first.Responses["200"].Headers["X-Rate"] = HeaderDoc{Description: "changed"}
	first.Responses["201"] = ResponseDoc{}
	first.Security[0]["key"][0] = "changed"

	third := b.Build()
	assert.Equal(t, second, third)
	assert.Equal(t, "pets", third.Tags[0])
	assert.NotContains(t, third.Responses, "201")
	assert.Equal(t, "read", third.Security[0]["key"][0])
}

func TestResponseDescription(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"200", "OK"},
		{"201", "Created"},
		{"404", "Not Found"},
		{"default", "Default response"},
		{"2XX", "2XX"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, responseDescription(tt.key))
		})
	}
}
