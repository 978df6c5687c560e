package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/validation"
)

const (
	maxWorkers  = 256
	maxDebounce = 10 * time.Second
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
		builder.WriteString("❌ Validation Errors:\n")
		writeIssues(&builder, vr.Errors)
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		writeIssues(&builder, vr.Warnings)
	}

	return builder.String()
}

func writeIssues(builder *strings.Builder, issues []ValidationError) {
	for _, issue := range issues {
		builder.WriteString(fmt.Sprintf("  • %s: %s\n", issue.Field, issue.Message))
		for _, suggestion := range issue.Suggestions {
			builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
		}
	}
}

// Err returns the errors as a single configuration error, or nil.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, e.Field+": "+e.Message)
	}
	return errors.NewConfigError("invalid configuration: "+strings.Join(messages, "; "), nil)
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// Validate reports the first-class errors of c as one error.
func (c *Config) Validate() error {
	return ValidateConfigWithDetails(c).Err()
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateCompilerConfig(&config.Compiler, result)
	validateBuildConfig(&config.Build, result)
	validateWatchConfig(&config.Watch, result)
	validateServerConfig(&config.Server, result)
	validateLogConfig(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateCompilerConfig(config *CompilerConfig, result *ValidationResult) {
	if config.LegacyForWrap {
		result.addWarning("compiler.legacy_for_wrap", true,
			"legacy loop wrapper produces unbalanced output",
			"Only enable this to reproduce output byte for byte from older releases")
	}
	if !config.StrictCloseTags {
		result.addWarning("compiler.strict_close_tags", false,
			"mismatched closing tags will be accepted silently",
			"Run 'wxjsx check' to find mismatches before disabling strict mode")
	}
}

func validateBuildConfig(config *BuildConfig, result *ValidationResult) {
	if len(config.SourceDirs) == 0 {
		result.addError("build.source_dirs", config.SourceDirs,
			"no source directories specified - no documents will be found",
			"Add '.' to scan the project root",
			"Add './pages' to scan a pages directory")
	}
	for i, dir := range config.SourceDirs {
		if err := validation.ValidatePath(dir); err != nil {
			result.addError(fmt.Sprintf("build.source_dirs[%d]", i), dir, err.Error(),
				"Use relative paths from project root",
				"Avoid parent directory references (..)")
		}
	}

	if err := validation.ValidatePath(config.OutDir); err != nil {
		result.addError("build.out_dir", config.OutDir, err.Error(),
			"Use a relative path like 'dist'")
	} else {
		for _, dir := range config.SourceDirs {
			if filepath.Clean(dir) == filepath.Clean(config.OutDir) {
				result.addWarning("build.out_dir", config.OutDir,
					"output directory is also a source directory",
					"Use a dedicated directory such as 'dist'")
			}
		}
	}

	if err := validation.ValidateExtension(config.Extension); err != nil {
		result.addError("build.extension", config.Extension, err.Error(), "Use '.wxml'")
	}
	if err := validation.ValidateExtension(config.OutExtension); err != nil {
		result.addError("build.out_extension", config.OutExtension, err.Error(), "Use '.jsx' or '.tsx'")
	}
	if config.Extension != "" && strings.EqualFold(config.Extension, config.OutExtension) {
		result.addError("build.out_extension", config.OutExtension,
			"output extension must differ from the source extension",
			"Use '.jsx' so generated files are not rescanned as sources")
	}

	for i, pattern := range config.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.addError(fmt.Sprintf("build.exclude[%d]", i), pattern,
				fmt.Sprintf("invalid glob pattern: %v", err),
				"Patterns use filepath.Match syntax, e.g. '*.bak'")
		}
	}

	if config.Workers < 1 || config.Workers > maxWorkers {
		result.addError("build.workers", config.Workers,
			fmt.Sprintf("workers must be between 1 and %d", maxWorkers),
			"Use the number of CPU cores")
	}

	if config.CacheSize < 0 {
		result.addError("build.cache_size", config.CacheSize,
			"cache size cannot be negative",
			"Use 0 to disable the build cache")
	}
	if config.CacheTTL < 0 {
		result.addError("build.cache_ttl", config.CacheTTL.String(),
			"cache TTL cannot be negative",
			"Use a duration such as '1h'")
	}
}

func validateWatchConfig(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 || config.Debounce > maxDebounce {
		result.addError("watch.debounce", config.Debounce.String(),
			fmt.Sprintf("debounce must be between 0 and %s", maxDebounce),
			"Use a value such as '300ms'")
	}
}

func validateServerConfig(config *ServerConfig, result *ValidationResult) {
	// Port 0 lets the system pick a free port.
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Common development ports: 3000, 8080, 8000")
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port,
			"port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		result.addError("server.host", config.Host, err.Error(),
			"Use 'localhost' for local development",
			"Use '0.0.0.0' to bind to all interfaces")
	}

	if len(config.AllowedOrigins) == 0 {
		result.addWarning("server.allowed_origins", config.AllowedOrigins,
			"no allowed origins - every websocket connection will be rejected",
			fmt.Sprintf("Add '%s:%d'", config.Host, config.Port))
	}

	if config.RateLimit < 0 {
		result.addError("server.rate_limit", config.RateLimit,
			"rate limit cannot be negative",
			"Use 0 to disable rate limiting")
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	if _, ok := logging.ParseLevel(config.Level); !ok {
		result.addError("log.level", config.Level, "unknown log level",
			"Use one of: debug, info, warn, error")
	}

	switch config.Format {
	case "", "text", "json":
	default:
		result.addError("log.format", config.Format, "unknown log format",
			"Use 'text' or 'json'")
	}

	if config.Dir != "" {
		if err := validation.ValidatePath(config.Dir); err != nil {
			result.addError("log.dir", config.Dir, err.Error())
		}
	}
}
