package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/source"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

// DefaultFile is read from the working directory when no --config is given
const DefaultFile = "graph-explorer.toml"

const envPrefix = "GRAPH_EXPLORER_"

// Category is a configured classification rule
type Category struct {
	Label    string   `koanf:"label" validate:"required"`
	Keywords []string `koanf:"keywords" validate:"required,min=1,dive,required"`
}

// Config holds all configuration for the application
type Config struct {
	Snapshot   string `koanf:"snapshot"`
	Port       int    `koanf:"port" validate:"min=1,max=65535"`
	Watch      bool   `koanf:"watch"`
	Verbosity  string `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	VerboseCnt int    `koanf:"verbose" validate:"min=0"`
	JSONLogs   bool   `koanf:"json-logs"`

	// Detail mode
	MinConnections int `koanf:"min-connections" validate:"min=0"`
	Depth          int `koanf:"depth" validate:"min=1,max=3"`
	InitialCap     int `koanf:"initial-cap" validate:"min=1"`
	SearchCap      int `koanf:"search-cap" validate:"min=1"`
	MaxExpanded    int `koanf:"max-expanded" validate:"min=0"`

	// Layout
	LayoutEngine     string  `koanf:"layout-engine" validate:"oneof=force eades"`
	LayoutIterations int     `koanf:"layout-iterations" validate:"min=1,max=100000"`
	LayoutSeed       uint64  `koanf:"layout-seed"`
	LayoutWidth      float64 `koanf:"layout-width" validate:"gt=0"`
	LayoutHeight     float64 `koanf:"layout-height" validate:"gt=0"`
	LinkDistance     float64 `koanf:"link-distance" validate:"gt=0"`
	LinkStrength     float64 `koanf:"link-strength" validate:"min=0,max=1"`
	Repulsion        float64 `koanf:"repulsion" validate:"min=0"`
	Centering        float64 `koanf:"centering" validate:"min=0,max=1"`
	CollisionRadius  float64 `koanf:"collision-radius" validate:"min=0"`
	LayoutTolerance  float64 `koanf:"layout-tolerance" validate:"gt=0"`

	// Snapshot sources
	S3Region       string `koanf:"s3-region"`
	S3Endpoint     string `koanf:"s3-endpoint" validate:"omitempty,url"`
	S3PathStyle    bool   `koanf:"s3-path-style"`
	S3AccessKey    string `koanf:"s3-access-key"`
	S3SecretKey    string `koanf:"s3-secret-key" validate:"required_with=S3AccessKey"`
	GCSCredentials string `koanf:"gcs-credentials" validate:"omitempty,file"`

	// Summary mode, empty means the built-in categories
	Categories []Category `koanf:"categories" validate:"max=7,dive"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() map[string]any {
	return map[string]any{
		"snapshot":          "",
		"port":              8080,
		"watch":             false,
		"verbosity":         "",
		"verbose":           0,
		"json-logs":         false,
		"min-connections":   1,
		"depth":             1,
		"initial-cap":       50,
		"search-cap":        20,
		"max-expanded":      0,
		"layout-engine":     "force",
		"layout-iterations": 300,
		"layout-seed":       1,
		"layout-width":      1000.0,
		"layout-height":     800.0,
		"link-distance":     80.0,
		"link-strength":     0.7,
		"repulsion":         300.0,
		"centering":         0.05,
		"collision-radius":  12.0,
		"layout-tolerance":  0.1,
		"s3-region":         "",
		"s3-endpoint":       "",
		"s3-path-style":     false,
		"s3-access-key":     "",
		"s3-secret-key":     "",
		"gcs-credentials":   "",
	}
}

var validate = validator.New()

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
// An explicitly named config file must exist; the default one is optional.
func Load(f *pflag.FlagSet, configFile string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File
	path := configFile
	if path == "" {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if configFile != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: GRAPH_EXPLORER_ (e.g., GRAPH_EXPLORER_MIN_CONNECTIONS=2)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	seen := make(map[string]bool)
	for _, cat := range c.Categories {
		if seen[cat.Label] {
			return fmt.Errorf("categories: duplicate label %q", cat.Label)
		}
		seen[cat.Label] = true
	}
	return nil
}

// LayoutParams converts the layout keys into simulation parameters
func (c *Config) LayoutParams() layout.Params {
	p := layout.DefaultParams()
	p.Iterations = c.LayoutIterations
	p.Width = c.LayoutWidth
	p.Height = c.LayoutHeight
	p.LinkDistance = c.LinkDistance
	p.LinkStrength = c.LinkStrength
	p.Repulsion = c.Repulsion
	p.Centering = c.Centering
	p.CollisionRadius = c.CollisionRadius
	p.Tolerance = c.LayoutTolerance
	return p
}

// SourceOptions returns the settings for remote snapshot locations
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		S3Region:       c.S3Region,
		S3Endpoint:     c.S3Endpoint,
		S3PathStyle:    c.S3PathStyle,
		S3AccessKey:    c.S3AccessKey,
		S3SecretKey:    c.S3SecretKey,
		GCSCredentials: c.GCSCredentials,
	}
}

// LayoutPrimitive returns the configured layout engine
func (c *Config) LayoutPrimitive() layout.Primitive {
	if c.LayoutEngine == "eades" {
		return layout.EadesPrimitive{}
	}
	return layout.ForcePrimitive{}
}

// Classifier builds the summary classifier, falling back to the built-in
// categories when none are configured.
func (c *Config) Classifier() (*summary.Classifier, error) {
	if len(c.Categories) == 0 {
		return summary.DefaultClassifier(), nil
	}
	rules := make([]summary.Rule, 0, len(c.Categories))
	for _, cat := range c.Categories {
		rules = append(rules, summary.KeywordRule(cat.Label, cat.Keywords...))
	}
	classifier, err := summary.NewClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid categories: %w", err)
	}
	return classifier, nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Report the first failure with the config key the user wrote
	e := validationErrs[0]
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Errorf("invalid config: %s is required", field)
	case "min", "gt":
		return fmt.Errorf("invalid config: %s must be at least %s", field, e.Param())
	case "max":
		return fmt.Errorf("invalid config: %s must not exceed %s", field, e.Param())
	case "oneof":
		return fmt.Errorf("invalid config: %s must be one of %s", field, e.Param())
	default:
		return fmt.Errorf("invalid config: %s failed %s", field, e.Tag())
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
