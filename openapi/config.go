package openapi

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("openapi: invalid config")

// DocsUI selects which interactive documentation UI to serve.
type DocsUI string

const (
	DocsSwaggerUI DocsUI = "swagger-ui"
	DocsRapiDoc   DocsUI = "rapidoc"
	DocsRedoc     DocsUI = "redoc"
)

// DefaultSwaggerURL is the path segment the docs are mounted under when
// Config.SwaggerURL is empty.
const DefaultSwaggerURL = "swagger-ui"

// Config is the option set of the documentation plugin. It can be built in
// code or loaded from YAML:
//
//	forwardRoot: true
//	swaggerUrl: docs
//	ui: redoc
//	info:
//	  title: Petstore
//	  version: 1.0.0
//	servers:
//	  - url: https://petstore.example.com
type Config struct {
	// ForwardRoot redirects GET / to the docs UI.
	ForwardRoot bool `yaml:"forwardRoot"`

	// SwaggerURL is the path segment the UI and spec endpoints are served
	// under, without slashes (default: "swagger-ui").
	SwaggerURL string `yaml:"swaggerUrl"`

	Info    Info     `yaml:"info"`
	Servers []Server `yaml:"servers"`

	// UI selects the interactive docs UI (default: swagger-ui).
	UI DocsUI `yaml:"ui"`

	// Title overrides the HTML page title (default: info.title).
	Title string `yaml:"title"`

	// Validate checks the assembled document with kin-openapi at startup.
	Validate bool `yaml:"validate"`

	// SwaggerUIConfig provides additional SwaggerUIBundle options, rendered
	// alongside the url and dom_id defaults. For example
	// {"docExpansion": "none"} produces:
	//
	//	SwaggerUIBundle({url: "...", dom_id: "#swagger-ui", docExpansion: "none"});
	//
	// See: https://swagger.io/docs/open-source-tools/swagger-ui/usage/configuration/
	SwaggerUIConfig map[string]any `yaml:"swaggerUiConfig"`
}

// ParseConfig decodes a YAML config document and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func (cfg Config) withDefaults() Config {
	cfg.SwaggerURL = strings.Trim(cfg.SwaggerURL, "/")
	if cfg.SwaggerURL == "" {
		cfg.SwaggerURL = DefaultSwaggerURL
	}
	if cfg.UI == "" {
		cfg.UI = DocsSwaggerUI
	}
	return cfg
}

func (cfg Config) check() error {
	switch cfg.UI {
	case DocsSwaggerUI, DocsRapiDoc, DocsRedoc:
	default:
		return fmt.Errorf("%w: unknown ui %q", ErrInvalidConfig, cfg.UI)
	}

	if strings.ContainsAny(cfg.SwaggerURL, "{}?#") {
		return fmt.Errorf("%w: swaggerUrl %q must be a plain path", ErrInvalidConfig, cfg.SwaggerURL)
	}

	for i, srv := range cfg.Servers {
		if srv.URL == "" {
			return fmt.Errorf("%w: servers[%d] has no url", ErrInvalidConfig, i)
		}
	}

	return nil
}

// docsPath returns the absolute mount path of the docs, e.g. "/swagger-ui".
func (cfg Config) docsPath() string {
	return "/" + cfg.SwaggerURL
}

func (cfg Config) pageTitle() string {
	if cfg.Title != "" {
		return cfg.Title
	}
	if cfg.Info.Title != "" {
		return cfg.Info.Title
	}
	return "API"
}
