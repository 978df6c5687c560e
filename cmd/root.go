// Package cmd implements the wxjsx command line.
//
// Configuration is resolved from these sources, highest priority first:
//
//  1. command-line flags (--log-level, --port, ...)
//  2. WXJSX_* environment variables, e.g. WXJSX_SERVER_PORT=9000
//  3. the file named by --config or WXJSX_CONFIG_FILE
//  4. .wxjsx.yml in the working directory
//  5. built-in defaults
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wxjsx/internal/config"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
)

const configFileEnv = "WXJSX_CONFIG_FILE"

var (
	cfgFile string
	// configErr holds a failure to read an explicitly named config file.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "wxjsx",
	Short: "Compile WXML-style markup into JSX components",
	Long: `wxjsx compiles mini-program markup (view, text, wx:for, bindtap, ...)
into JSX component markup.

Quick Start:
  wxjsx init                  Write a default .wxjsx.yml
  wxjsx compile page.wxml     Compile one document to stdout
  wxjsx build                 Compile every document under build.source_dirs
  wxjsx watch                 Rebuild documents as they change
  wxjsx serve                 Start the live preview server
  wxjsx check                 Report compile errors and lint findings`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it finishes or the process receives
// an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .wxjsx.yml, can also use "+configFileEnv+")")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", ValidateLogLevel)
}

// initConfig points the global viper instance at the config file and enables
// environment overrides.
func initConfig() {
	v := viper.GetViper()
	configErr = nil

	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv(configFileEnv)
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(strings.TrimSuffix(config.DefaultFileName, ".yml"))
	}

	config.BindEnv(v)
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || explicit != "" {
			configErr = errors.WrapConfig(err, "failed to read config file").WithFile(explicit)
		}
	}
}

// loadConfig decodes and validates the configuration resolved by initConfig.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Load()
}

// newLogger builds the command logger. Records go to stderr and, when
// log.dir is set, to a dated file in that directory as well.
func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, func(), error) {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	lc := &logging.LoggerConfig{
		Level:      level,
		Format:     cfg.Log.Format,
		Output:     cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
		Component:  "wxjsx",
	}
	console := logging.NewLogger(lc)
	if cfg.Log.Dir == "" {
		return console, func() {}, nil
	}

	file, err := logging.NewFileLogger(lc, cfg.Log.Dir)
	if err != nil {
		return nil, nil, errors.WrapIO(err, errors.CodeWriteFailed, "failed to open log file").WithFile(cfg.Log.Dir)
	}
	return logging.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}

// setup loads the configuration and the logger every command needs. The
// returned func releases the logger.
func setup(cmd *cobra.Command) (*config.Config, logging.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLogger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger.WithComponent(cmd.Name()), closeLogger, nil
}
