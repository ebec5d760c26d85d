package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sdmodeld/internal/common/fsutil"
	"sdmodeld/internal/registry"
	"sdmodeld/pkg/types"
)

const (
	DefaultAddr         = ":8090"
	DefaultModelsDir    = "~/models/stable-diffusion"
	DefaultLogLevel     = "info"
	DefaultMaxBodyBytes = int64(1 << 20)
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr            string            `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir       string            `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	CustomModelDirs []string          `json:"custom_model_dirs" yaml:"custom_model_dirs" toml:"custom_model_dirs"`
	Implementation  string            `json:"implementation" yaml:"implementation" toml:"implementation"`
	TriggerMarker   string            `json:"trigger_marker" yaml:"trigger_marker" toml:"trigger_marker"`
	ModelArchs      map[string]string `json:"model_archs" yaml:"model_archs" toml:"model_archs"`
	LogLevel        string            `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes    int64             `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Watch           bool              `json:"watch" yaml:"watch" toml:"watch"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.CORSEnabled && len(c.CORSAllowedMethods) == 0 {
		c.CORSAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
}

// Validate reports values that can't be used as-is.
func (c Config) Validate() error {
	if _, err := registry.ParseImplementation(c.Implementation); err != nil {
		return err
	}
	if _, err := c.Archs(); err != nil {
		return err
	}
	return nil
}

// ModelDirs returns the builtin root followed by the custom roots, with "~"
// expanded. Empty entries are dropped.
func (c Config) ModelDirs() []string {
	var out []string
	for _, d := range append([]string{c.ModelsDir}, c.CustomModelDirs...) {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		out = append(out, expand(d))
	}
	return out
}

// Archs parses ModelArchs into architecture tags keyed by expanded path.
func (c Config) Archs() (map[string]types.Architecture, error) {
	if len(c.ModelArchs) == 0 {
		return nil, nil
	}
	out := make(map[string]types.Architecture, len(c.ModelArchs))
	for p, a := range c.ModelArchs {
		arch, err := types.ParseArchitecture(a)
		if err != nil {
			return nil, fmt.Errorf("model_archs[%s]: %w", p, err)
		}
		out[expand(p)] = arch
	}
	return out, nil
}

// expand resolves a leading "~", keeping the path unchanged when the home
// directory is unknown.
func expand(p string) string {
	if e, err := fsutil.ExpandHome(p); err == nil {
		return e
	}
	return p
}
