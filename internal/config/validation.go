package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/conneroisu/unobtrusive/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		writeIssues(&builder, vr.Errors)
		builder.WriteString("\n")
	}
	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		writeIssues(&builder, vr.Warnings)
	}

	return builder.String()
}

func writeIssues(b *strings.Builder, issues []ValidationError) {
	for _, issue := range issues {
		fmt.Fprintf(b, "  • %s: %s\n", issue.Field, issue.Message)
		for _, suggestion := range issue.Suggestions {
			fmt.Fprintf(b, "    - %s\n", suggestion)
		}
	}
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateComponentsConfigDetails(&config.Components, result)
	validateCompilerConfigDetails(&config.Compiler, result)
	validateServerConfigDetails(&config.Server, result)
	validateDevelopmentConfigDetails(&config.Development, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateComponentsConfigDetails(config *ComponentsConfig, result *ValidationResult) {
	if config.Manifest == "" {
		result.fail("components.manifest", config.Manifest, "manifest path cannot be empty",
			"Use 'components.yaml' in the project root")
	} else {
		if err := validation.ValidateRelativePath(config.Manifest); err != nil {
			result.fail("components.manifest", config.Manifest, err.Error())
		}
		if ext := filepath.Ext(config.Manifest); ext != ".yaml" && ext != ".yml" {
			result.fail("components.manifest", config.Manifest, "manifest must be a YAML file",
				"Rename the manifest to components.yaml")
		}
	}

	if config.Dir != "" {
		if err := validation.ValidateRelativePath(config.Dir); err != nil {
			result.fail("components.dir", config.Dir, err.Error())
		}
	}
}

func validateCompilerConfigDetails(config *CompilerConfig, result *ValidationResult) {
	if config.CacheDir != "" {
		if err := validation.ValidateRelativePath(config.CacheDir); err != nil {
			result.fail("compiler.cache_dir", config.CacheDir, err.Error(),
				"Keep the cache inside the project, for example .unobtrusive/cache")
		}
	}

	if config.CacheSize <= 0 {
		result.fail("compiler.cache_size", config.CacheSize, "cache size must be positive",
			"The default of 256 compiled templates suits most projects")
	}

	if config.OutputDir == "" {
		result.fail("compiler.output_dir", config.OutputDir, "output directory cannot be empty")
	} else if err := validation.ValidateRelativePath(config.OutputDir); err != nil {
		result.fail("compiler.output_dir", config.OutputDir, err.Error())
	}
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.fail("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows system to assign an available port",
		)
	} else if config.Port > 0 && config.Port < 1024 {
		result.warn("server.port", config.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if config.Host != "" {
		if err := validation.ValidateHostname(config.Host); err != nil {
			result.fail("server.host", config.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces",
			)
		}
	}

	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			result.warn("server.allowed_origins", origin, "any origin may open the hot reload socket",
				"List the exact origins of your dev pages")
			continue
		}
		if err := validation.ValidateURL(origin); err != nil {
			result.fail("server.allowed_origins", origin, err.Error(),
				"Example: http://localhost:8080")
		}
	}
}

func validateDevelopmentConfigDetails(config *DevelopmentConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.fail("development.debounce", config.Debounce, "debounce cannot be negative")
	} else if config.Debounce > 5*time.Second {
		result.warn("development.debounce", config.Debounce, "long debounce delays hot updates",
			"Values between 50ms and 500ms work well")
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, strings.ToLower(config.Level)) {
		result.fail("log.level", config.Level, "unknown log level",
			"Available levels: "+strings.Join(levels, ", "))
	}

	formats := []string{"text", "json"}
	if !slices.Contains(formats, strings.ToLower(config.Format)) {
		result.fail("log.format", config.Format, "unknown log format",
			"Available formats: "+strings.Join(formats, ", "))
	}
}
