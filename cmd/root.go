// Package cmd provides the unobtrusive command-line interface.
//
// Configuration is read, highest priority first, from command-line flags,
// UNOBTRUSIVE_<SECTION>_<OPTION> environment variables (a .env file in the
// working directory is loaded first) and the configuration file. The file is
// --config, else UNOBTRUSIVE_CONFIG_FILE, else .unobtrusive.yml in the working
// directory.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/logging"
)

// ConfigFileEnv names the environment variable holding a config file path.
const ConfigFileEnv = "UNOBTRUSIVE_CONFIG_FILE"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "unobtrusive",
	Short: "Compile and preview unobtrusive component templates",
	Long: `unobtrusive compiles plain HTML component templates into host engine
templates and serves a live preview while you edit them.

Components are listed in a manifest (components.yaml) next to their
template files.

Quick Start:
  unobtrusive new numeric-counter   Scaffold a component
  unobtrusive list                  List manifest components
  unobtrusive compile               Compile every template
  unobtrusive serve                 Start the preview server`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .unobtrusive.yml, can also use "+ConfigFileEnv+" env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the log section.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
