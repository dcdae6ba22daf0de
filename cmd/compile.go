package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/unobtrusive/internal/cache"
	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/manifest"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

var compileFlags *StandardFlags

var compileCmd = &cobra.Command{
	Use:     "compile [component...]",
	Aliases: []string{"c"},
	Short:   "Compile component templates",
	Long: `Compile the templates of the manifest components, or only the named ones,
and write <name>.html files to the output directory.

Unchanged templates are served from the on-disk cache.

Examples:
  unobtrusive compile                        # Compile every component
  unobtrusive compile numeric-counter        # Compile one component
  unobtrusive compile --collapse-whitespace  # Drop whitespace between tags`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileFlags = AddStandardFlags(compileCmd, "compile")
	compileCmd.Flags().BoolVarP(&compileFlags.Quiet, "quiet", "q", false, "Suppress output")
	bindFlags(compileCmd.Flags(), map[string]string{
		"collapse-whitespace": "compiler.collapse_whitespace",
		"out":                 "compiler.output_dir",
	})
}

// compileResult summarizes a compile run.
type compileResult struct {
	Compiled []string
	Cached   int
	Reset    bool
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := manifest.Load(cfg.Components.Manifest)
	if err != nil {
		return err
	}

	result, err := compileComponents(cfg, m, args, !compileFlags.NoCache)
	if err != nil {
		return err
	}

	if !compileFlags.Quiet {
		out := cmd.OutOrStdout()
		if result.Reset {
			fmt.Fprintln(out, "Warning: compile cache was unreadable and has been reset")
		}
		fmt.Fprintf(out, "Compiled %d components (%d from cache) into %s\n",
			len(result.Compiled), result.Cached, cfg.Compiler.OutputDir)
	}
	return nil
}

// compileComponents compiles the selected components of m into the output
// directory.
func compileComponents(cfg *config.Config, m *manifest.Manifest, names []string, useCache bool) (*compileResult, error) {
	selected, err := selectComponents(m, names)
	if err != nil {
		return nil, err
	}

	var dc *cache.DiskCache
	if useCache {
		if dc, err = cache.Open(cfg.Compiler.CacheDir); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(cfg.Compiler.OutputDir, 0o755); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileWrite, "create output directory").
			WithFile(cfg.Compiler.OutputDir)
	}

	result := &compileResult{}
	if dc != nil {
		result.Reset = dc.Reset()
	}
	collapse := cfg.Compiler.CollapseWhitespace
	for _, c := range selected {
		src, err := m.ReadTemplate(c)
		if err != nil {
			return nil, err
		}

		var compiled string
		if dc != nil {
			var hit bool
			compiled, hit = dc.Compile(c.Name, src, collapse)
			if hit {
				result.Cached++
			}
		} else {
			var opts []template.Option
			if collapse {
				opts = append(opts, template.WithCollapseWhitespace())
			}
			compiled = template.Compile(src, opts...)
		}

		path := filepath.Join(cfg.Compiler.OutputDir, c.Name+".html")
		if err := os.WriteFile(path, []byte(compiled), 0o644); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileWrite, "write compiled template").
				WithFile(path).
				WithComponent(c.Name)
		}
		result.Compiled = append(result.Compiled, c.Name)
	}

	if dc != nil {
		if err := dc.Flush(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func selectComponents(m *manifest.Manifest, names []string) ([]manifest.Component, error) {
	if len(names) == 0 {
		return m.Components, nil
	}
	selected := make([]manifest.Component, 0, len(names))
	for _, name := range names {
		c, ok := m.Find(name)
		if !ok {
			return nil, errors.ErrComponentNotFound(name)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
