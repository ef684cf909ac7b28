// Package openapi generates an OpenAPI 3.0.3 document for a gorilla/mux
// application and serves it next to an interactive documentation UI.
//
// Route handlers declare request and response shapes through a fluent
// RouteBuilder. Shapes are TypeDescriptors: built by hand, read from Go
// types via reflection, or inferred from a JSON sample. When the
// application starts, the declarations are assembled into one document in
// which every named type appears exactly once under components.schemas and
// is referenced through $ref.
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Documenting Routes
//
// Attach documentation to a configured mux route with Route, or to a named
// route with Op:
//
//	spec := openapi.NewSpec(openapi.Config{
//	    Info: openapi.Info{Title: "Petstore", Version: "1.0.0"},
//	})
//
//	spec.Route(r.HandleFunc("/pets", createPet).Methods(http.MethodPost)).
//	    Summary("Create a pet").
//	    Tags("pets").
//	    Request(Pet{}).
//	    Response(http.StatusCreated, Pet{})
//
//	r.HandleFunc("/pets/{id:[0-9]+}", getPet).Methods(http.MethodGet).Name("getPet")
//	spec.Op("getPet").
//	    Response(http.StatusOK, Pet{}).
//	    Response(http.StatusNotFound, nil)
//
// The route name becomes the operationId. Path variables are converted to
// OpenAPI form ("{id:[0-9]+}" becomes "{id}") and documented as required
// path parameters; digit patterns are typed as integers and UUID patterns
// as uuid strings.
//
// Routes with no documentation still appear in the document with an empty
// responses object. Use Hidden to leave a route out.
//
// # Type Descriptors
//
// Any body argument accepts a Go value, a TypeDescriptor or a *Schema:
//
//	openapi.Object("Item",
//	    openapi.Prop("name", openapi.String()),
//	    openapi.Prop("count", openapi.Integer()),
//	)
//	openapi.ArrayOf(openapi.Ref("Item"))
//	openapi.SampleOf("Order", []byte(`{"id": 1, "total": 9.5}`))
//	openapi.TypeOf(Pet{})
//
// Reflection reads json tags (names, omitempty, omitzero, string, "-"),
// inlines embedded structs, and applies `openapi:"..."` constraint tags:
//
//	type User struct {
//	    Name  string `json:"name" openapi:"description=Full name,minLength=1,maxLength=100"`
//	    Email string `json:"email" openapi:"format=email"`
//	    Age   int    `json:"age,omitempty" openapi:"minimum=0,exclusiveMaximum=200"`
//	    Role  string `json:"role" openapi:"enum=admin|user|guest"`
//	}
//
// Two different shapes registered under one component name are a build
// error rather than a silent overwrite.
//
// # Parameters
//
// Parameter constructors apply permissive defaults: not required, not
// deprecated, empty values and reserved characters allowed, no explode.
// Value methods return adjusted copies:
//
//	spec.Op("listPets").
//	    Parameter(openapi.QueryParameter("limit", openapi.Integer()).
//	        WithDescription("page size").
//	        AsRequired())
//
// # Serving
//
// Handle mounts the endpoints under Config.SwaggerURL:
//
//	spec.Handle(r)
//	// GET /swagger-ui                 -> Swagger UI
//	// GET /swagger-ui/api-docs.json   -> document as JSON
//	// GET /swagger-ui/api-docs.yaml   -> document as YAML
//
// The document is assembled once, on the first request or on an explicit
// Build call, and served from memory with a strong ETag afterwards.
package openapi
