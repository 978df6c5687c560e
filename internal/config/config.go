// Package config provides configuration management for wxjsx using Viper
// for loading from files, environment variables and command-line flags.
//
// Keys are grouped in sections (compiler, build, watch, server, log). Every
// key can be overridden from the environment with the WXJSX_ prefix, for
// example WXJSX_COMPILER_CONDITIONAL_IF=true or WXJSX_SERVER_PORT=9000.
package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/generator"
	"github.com/conneroisu/wxjsx/internal/parser"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "WXJSX"

// DefaultFileName is the configuration file looked up in the working
// directory.
const DefaultFileName = ".wxjsx.yml"

type Config struct {
	Compiler CompilerConfig `mapstructure:"compiler" yaml:"compiler"`
	Build    BuildConfig    `mapstructure:"build" yaml:"build"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	TargetFiles []string `mapstructure:"-" yaml:"-"` // CLI arguments, not from config file
}

// CompilerConfig selects between the compatible and corrected output forms.
type CompilerConfig struct {
	StrictCloseTags bool `mapstructure:"strict_close_tags" yaml:"strict_close_tags"`
	ConditionalIf   bool `mapstructure:"conditional_if" yaml:"conditional_if"`
	LegacyForWrap   bool `mapstructure:"legacy_for_wrap" yaml:"legacy_for_wrap"`
	UniformTagCase  bool `mapstructure:"uniform_tag_case" yaml:"uniform_tag_case"`
	AllowTrailing   bool `mapstructure:"allow_trailing" yaml:"allow_trailing"`
}

type BuildConfig struct {
	SourceDirs   []string      `mapstructure:"source_dirs" yaml:"source_dirs"`
	OutDir       string        `mapstructure:"out_dir" yaml:"out_dir"`
	Extension    string        `mapstructure:"extension" yaml:"extension"`
	OutExtension string        `mapstructure:"out_extension" yaml:"out_extension"`
	Exclude      []string      `mapstructure:"exclude" yaml:"exclude"`
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	CacheSize    int64         `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// RateLimit caps compile requests per minute and client. Zero disables it.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the configuration used when no file or override is given.
func Default() *Config {
	return &Config{
		Compiler: CompilerConfig{
			StrictCloseTags: true,
		},
		Build: BuildConfig{
			SourceDirs:   []string{"."},
			OutDir:       "dist",
			Extension:    ".wxml",
			OutExtension: ".jsx",
			Exclude:      []string{"*.bak", "*_test.wxml"},
			Workers:      runtime.NumCPU(),
			CacheSize:    32 << 20,
			CacheTTL:     time.Hour,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			AllowedOrigins: []string{"localhost:8080", "127.0.0.1:8080"},
			RateLimit:      600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default value. Registering the
// keys also lets AutomaticEnv resolve them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("compiler.strict_close_tags", d.Compiler.StrictCloseTags)
	v.SetDefault("compiler.conditional_if", d.Compiler.ConditionalIf)
	v.SetDefault("compiler.legacy_for_wrap", d.Compiler.LegacyForWrap)
	v.SetDefault("compiler.uniform_tag_case", d.Compiler.UniformTagCase)
	v.SetDefault("compiler.allow_trailing", d.Compiler.AllowTrailing)

	v.SetDefault("build.source_dirs", d.Build.SourceDirs)
	v.SetDefault("build.out_dir", d.Build.OutDir)
	v.SetDefault("build.extension", d.Build.Extension)
	v.SetDefault("build.out_extension", d.Build.OutExtension)
	v.SetDefault("build.exclude", d.Build.Exclude)
	v.SetDefault("build.workers", d.Build.Workers)
	v.SetDefault("build.cache_size", d.Build.CacheSize)
	v.SetDefault("build.cache_ttl", d.Build.CacheTTL)

	v.SetDefault("watch.debounce", d.Watch.Debounce)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.dir", d.Log.Dir)
}

// BindEnv enables WXJSX_ environment overrides on v, mapping "server.port"
// to WXJSX_SERVER_PORT.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, "failed to decode configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// CompilerOptions maps the compiler section onto pipeline options.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		Parser: parser.Options{
			StrictCloseTags: c.Compiler.StrictCloseTags,
			AllowTrailing:   c.Compiler.AllowTrailing,
		},
		Generator: generator.Options{
			ConditionalIf:  c.Compiler.ConditionalIf,
			LegacyForWrap:  c.Compiler.LegacyForWrap,
			UniformTagCase: c.Compiler.UniformTagCase,
		},
	}
}
