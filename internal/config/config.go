// Package config loads the tooling configuration using Viper. Values come
// from .unobtrusive.yml, UNOBTRUSIVE_ prefixed environment variables (a .env
// file is loaded first when present) and command-line flags bound by the CLI.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/conneroisu/unobtrusive/internal/errors"
)

const (
	// EnvPrefix prefixes every environment override, UNOBTRUSIVE_SERVER_PORT
	// for server.port.
	EnvPrefix = "UNOBTRUSIVE"

	// FileName is the configuration file looked up in the working directory.
	FileName = ".unobtrusive"
)

type Config struct {
	Components  ComponentsConfig  `mapstructure:"components" yaml:"components"`
	Compiler    CompilerConfig    `mapstructure:"compiler" yaml:"compiler"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ComponentsConfig struct {
	// Manifest is the components.yaml listing every component.
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
	// Dir receives scaffolded components.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type CompilerConfig struct {
	CollapseWhitespace bool   `mapstructure:"collapse_whitespace" yaml:"collapse_whitespace"`
	CacheDir           string `mapstructure:"cache_dir" yaml:"cache_dir"`
	CacheSize          int    `mapstructure:"cache_size" yaml:"cache_size"`
	OutputDir          string `mapstructure:"output_dir" yaml:"output_dir"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DevelopmentConfig struct {
	HotReload bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("components.manifest", "components.yaml")
	v.SetDefault("components.dir", "components")

	v.SetDefault("compiler.collapse_whitespace", false)
	v.SetDefault("compiler.cache_dir", ".unobtrusive/cache")
	v.SetDefault("compiler.cache_size", 256)
	v.SetDefault("compiler.output_dir", "dist/templates")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8080"})

	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.debounce", 100*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom applies defaults to v, decodes it and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns a config error listing every validation failure.
func (c *Config) Validate() error {
	result := ValidateConfigWithDetails(c)
	if result.HasErrors() {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid configuration").
			WithContext("details", result.String())
	}
	return nil
}

// LoadDotEnv loads the given env files, .env when none are named. Missing
// files are skipped and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "load env file")
	}
	return nil
}
