package openapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name   string
		tpl    string
		path   string
		params []string
	}{
		{"static", "/health", "/health", nil},
		{"simple variable", "/users/{id}", "/users/{id}", []string{"id"}},
		{"pattern", "/users/{id:[0-9]+}", "/users/{id}", []string{"id"}},
		{"nested braces", "/years/{year:[0-9]{4}}/posts", "/years/{year}/posts", []string{"year"}},
		{"several", "/orgs/{org}/repos/{repo:[a-z-]+}", "/orgs/{org}/repos/{repo}", []string{"org", "repo"}},
		{"unbalanced", "/broken/{id", "/broken/{id", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, params := parsePath(tt.tpl)
			assert.Equal(t, tt.path, path)

			var names []string
			for _, p := range params {
				assert.Equal(t, "path", p.In)
				assert.True(t, p.Required)
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.params, names)
		})
	}
}

func TestPatternType(t *testing.T) {
	tests := []struct {
		pattern string
		want    *Schema
	}{
		{"", &Schema{Type: "string"}},
		{"[0-9]+", &Schema{Type: "integer"}},
		{`\d+`, &Schema{Type: "integer"}},
		{`\d+(?:\.\d+)?`, &Schema{Type: "number"}},
		{"[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}", &Schema{Type: "string", Format: "uuid"}},
		{"[a-z]+", &Schema{Type: "string", Pattern: "^[a-z]+$"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			rc := NewResolutionContext(nil, nil, nil)
			assert.Equal(t, tt.want, rc.Resolve(patternType(tt.pattern)))
		})
	}
}

func TestNewSpecDefaults(t *testing.T) {
	spec := NewSpec(Config{})
	cfg := spec.Config()

	assert.Equal(t, DefaultSwaggerURL, cfg.SwaggerURL)
	assert.Equal(t, DocsSwaggerUI, cfg.UI)
	assert.False(t, cfg.ForwardRoot)
}

func TestSpecBuildScenario(t *testing.T) {
	item := Object("Item",
		Prop("name", String()),
		Prop("count", Integer()),
	)

	r := mux.NewRouter()
	spec := NewSpec(Config{
		Info:     Info{Title: "Items", Version: "1.0.0"},
		Validate: true,
	})

	spec.Route(r.HandleFunc("/hello", noop).Methods(http.MethodGet)).
		ResponseContent(http.StatusOK, "text/plain", String())
	spec.Route(r.HandleFunc("/items", noop).Methods(http.MethodPost)).
		Request(item).
		Response(http.StatusCreated, nil)

	doc, err := spec.Build(r)
	require.NoError(t, err)

	require.Len(t, doc.Paths, 2)
	assert.NotNil(t, doc.Paths["/hello"].Get)
	body := doc.Paths["/items"].Post.RequestBody.Content["application/json"].Schema
	assert.Equal(t, "#/components/schemas/Item", body.Ref)

	component := doc.Components.Schemas["Item"]
	assert.Equal(t, "string", component.Properties["name"].Type)
	assert.Equal(t, "integer", component.Properties["count"].Type)
	assert.Len(t, component.Properties, 2)
}

func TestSpecBuildRoutes(t *testing.T) {
	r := mux.NewRouter()
	spec := NewSpec(Config{})

	r.HandleFunc("/users/{id:[0-9]+}", noop).Methods(http.MethodGet, http.MethodPut).Name("user")
	spec.Op("user").Summary("User")

	r.HandleFunc("/health", noop).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/metrics", noop).Methods(http.MethodGet).Name("metrics")
	spec.Op("metrics").Hidden()

	r.HandleFunc("/any", noop)

	api := r.PathPrefix("/api/v1").Subrouter()
	spec.Route(api.HandleFunc("/pets/{petId}", noop).Methods(http.MethodDelete)).
		OperationID("removePet").
		Response(http.StatusNoContent, nil)

	spec.Op("unknownRoute").Summary("never matched")

	doc, err := spec.Build(r)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"/users/{id}", "/health", "/api/v1/pets/{petId}"}, keys(doc.Paths))

	user := doc.Paths["/users/{id}"]
	require.NotNil(t, user.Get)
	require.NotNil(t, user.Put)
	assert.Equal(t, "user_get", user.Get.OperationID)
	assert.Equal(t, "user_put", user.Put.OperationID)
	assert.Equal(t, "User", user.Put.Summary)
	require.Len(t, user.Get.Parameters, 1)
	assert.Equal(t, "integer", user.Get.Parameters[0].Schema.Type)

	health := doc.Paths["/health"].Get
	assert.Equal(t, "health", health.OperationID)
	assert.Empty(t, health.Responses)

	pet := doc.Paths["/api/v1/pets/{petId}"].Delete
	assert.Equal(t, "removePet", pet.OperationID)
	assert.Equal(t, "petId", pet.Parameters[0].Name)
}

func TestSpecBuildOnce(t *testing.T) {
	calls := 0
	counting := ResolverFunc(func(d TypeDescriptor, rc *ResolutionContext) *Schema {
		calls++
		return DefaultResolver{}.Resolve(d, rc)
	})

	r := mux.NewRouter()
	spec := NewSpec(Config{}, WithResolver(counting))
	spec.Route(r.HandleFunc("/x", noop).Methods(http.MethodGet)).Response(http.StatusOK, String())

	first, err := spec.Build(r)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	r.HandleFunc("/late", noop).Methods(http.MethodGet)
	second, err := spec.Build(r)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.NotContains(t, second.Paths, "/late")
}

func TestSpecDocumentMetadata(t *testing.T) {
	r := mux.NewRouter()
	spec := NewSpec(Config{
		Info:    Info{Title: "Pets", Version: "2.0.0"},
		Servers: []Server{{URL: "https://api.example.com"}},
	})

	spec.AddServer(Server{URL: "https://staging.example.com", Description: "staging"}).
		AddTag(Tag{Name: "pets", Description: "Everything about pets"}).
		AddSecurityScheme("apiKey", &SecurityScheme{Type: "apiKey", Name: "X-API-Key", In: "header"}).
		SetSecurity(SecurityRequirement{"apiKey": {}}).
		SetExternalDocs("https://docs.example.com", "Guide")

	spec.Route(r.HandleFunc("/pets", noop).Methods(http.MethodGet)).
		Tags("pets").
		Response(http.StatusOK, nil)

	doc, err := spec.Build(r)
	require.NoError(t, err)

	assert.Equal(t, "Pets", doc.Info.Title)
	assert.Equal(t, []Server{
		{URL: "https://api.example.com"},
		{URL: "https://staging.example.com", Description: "staging"},
	}, doc.Servers)
	assert.Equal(t, []Tag{{Name: "pets", Description: "Everything about pets"}}, doc.Tags)
	assert.Equal(t, "header", doc.Components.SecuritySchemes["apiKey"].In)
	assert.Equal(t, []SecurityRequirement{{"apiKey": {}}}, doc.Security)
	assert.Equal(t, "https://docs.example.com", doc.ExternalDocs.URL)
}

func TestSpecBuildError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Debug})

	r := mux.NewRouter()
	spec := NewSpec(Config{}, WithLogger(logger), WithMetrics(m))

	{
		type Item struct {
			Name string `json:"name"`
		}
		spec.Route(r.HandleFunc("/a", noop).Methods(http.MethodGet)).Response(http.StatusOK, Item{})
	}
	{
		type Item struct {
			Count int `json:"count"`
		}
		spec.Route(r.HandleFunc("/b", noop).Methods(http.MethodGet)).Response(http.StatusOK, Item{})
	}

	doc, err := spec.Build(r)

	var collision *SchemaCollisionError
	require.ErrorAs(t, err, &collision)
	assert.NotNil(t, doc)
	assert.Contains(t, buf.String(), "openapi: failed to assemble OpenAPI document")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collisions))

	_, again := spec.Build(r)
	assert.Equal(t, err, again)
}

func TestOperationIDForMethod(t *testing.T) {
	assert.Equal(t, "user_get", operationIDForMethod("user", http.MethodGet))
	assert.Equal(t, "user_delete", operationIDForMethod("user", http.MethodDelete))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
