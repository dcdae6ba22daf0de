package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/manifest"
)

var listFlags *StandardFlags

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "ls"},
	Short:   "List manifest components",
	Long: `List the components of the manifest with their template files.

Examples:
  unobtrusive list            # Table output
  unobtrusive list -o json    # JSON output
  unobtrusive list -o yaml    # YAML output`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listFlags = AddStandardFlags(listCmd, "output")
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := listFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := manifest.Load(cfg.Components.Manifest)
	if err != nil {
		return err
	}
	if listFlags.Quiet {
		return nil
	}

	out := cmd.OutOrStdout()
	if len(m.Components) == 0 && strings.EqualFold(listFlags.OutputFormat, "table") {
		fmt.Fprintln(out, "No components found.")
		return nil
	}
	return writeComponents(out, listFlags.OutputFormat, m.Components)
}

func writeComponents(w io.Writer, format string, components []manifest.Component) error {
	if components == nil {
		components = []manifest.Component{}
	}
	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(components)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(components)
	default:
		return writeTable(w, components)
	}
}

func writeTable(w io.Writer, components []manifest.Component) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTEMPLATE\tTYPE")
	for _, c := range components {
		typ := c.Type
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Template, typ)
	}
	return tw.Flush()
}
