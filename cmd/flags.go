package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var outputFormats = []string{"table", "json", "yaml"}

// StandardFlags holds the flags shared between commands.
type StandardFlags struct {
	// Server flags
	Port        int
	Host        string
	NoHotReload bool

	// Compile flags
	Collapse  bool
	OutputDir string
	NoCache   bool

	// Output flags
	OutputFormat string
	Quiet        bool
}

// AddStandardFlags registers the named flag groups on cmd.
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "server":
			addServerFlags(cmd, flags)
		case "compile":
			addCompileFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addServerFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().StringVar(&flags.Host, "host", "localhost", "Host to bind to")
	cmd.Flags().BoolVar(&flags.NoHotReload, "no-hot-reload", false, "Disable template watching")
}

func addCompileFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().BoolVar(&flags.Collapse, "collapse-whitespace", false, "Drop whitespace-only text between tags")
	cmd.Flags().StringVar(&flags.OutputDir, "out", "dist/templates", "Directory compiled templates are written to")
	cmd.Flags().BoolVar(&flags.NoCache, "no-cache", false, "Ignore the on-disk compile cache")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")
}

// bindFlags binds flag names to configuration keys so explicitly set flags
// override the file and the environment.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) {
	for flagName, key := range bindings {
		if flag := fs.Lookup(flagName); flag != nil {
			viper.BindPFlag(key, flag)
		}
	}
}

// ValidateFlags checks flag values and combinations.
func (f *StandardFlags) ValidateFlags() error {
	if f.Port < 0 || f.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", f.Port)
	}

	if f.OutputFormat != "" && !slices.Contains(outputFormats, strings.ToLower(f.OutputFormat)) {
		return fmt.Errorf("invalid output format %s, must be one of: %s",
			f.OutputFormat, strings.Join(outputFormats, ", "))
	}

	return nil
}
