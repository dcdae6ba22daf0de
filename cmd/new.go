package cmd

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/manifest"
)

var (
	newType        string
	newDescription string
)

var newCmd = &cobra.Command{
	Use:     "new <element-name>",
	Aliases: []string{"n"},
	Short:   "Scaffold a component",
	Long: `Create a template, a Go definition and a manifest entry for a new
component. Element names are lowercase words joined by hyphens.

Examples:
  unobtrusive new numeric-counter
  unobtrusive new user-card --type ProfileCard`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVar(&newType, "type", "", "Go type name (default derived from the element name)")
	newCmd.Flags().StringVar(&newDescription, "description", "", "Manifest description")
}

// scaffold is the set of files created for a component.
type scaffold struct {
	Component    manifest.Component
	TemplateFile string
	GoFile       string
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s, err := scaffoldComponent(cfg, args[0], newType, newDescription)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created <%s>\n", s.Component.Name)
	fmt.Fprintf(out, "  %s\n  %s\n  %s (updated)\n", s.TemplateFile, s.GoFile, cfg.Components.Manifest)
	return nil
}

func scaffoldComponent(cfg *config.Config, name, typeName, description string) (*scaffold, error) {
	if !manifest.ValidName(name) {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("invalid element name %q: lowercase words joined by hyphens", name))
	}
	if typeName == "" {
		typeName = typeNameFor(name)
	}
	if !token.IsIdentifier(typeName) || !token.IsExported(typeName) {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("invalid type name %q: must be an exported Go identifier", typeName))
	}

	manifestPath := cfg.Components.Manifest
	m, err := manifest.Load(manifestPath)
	if err != nil {
		if !errorsIsNotFound(err) {
			return nil, err
		}
		m = manifest.New(filepath.Dir(manifestPath))
	}

	base := strings.ReplaceAll(name, "-", "_")
	templateFile := filepath.Join(cfg.Components.Dir, base+".html")
	goFile := filepath.Join(cfg.Components.Dir, base+".go")
	rel, err := filepath.Rel(m.Dir(), templateFile)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolve template path").WithFile(templateFile)
	}

	c := manifest.Component{
		Name:        name,
		Template:    filepath.ToSlash(rel),
		Type:        typeName,
		Description: description,
	}
	if err := m.Add(c); err != nil {
		return nil, err
	}

	for _, path := range []string{templateFile, goFile} {
		if _, err := os.Stat(path); err == nil {
			return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "file already exists").
				WithFile(path).
				WithComponent(name)
		}
	}

	if err := os.MkdirAll(cfg.Components.Dir, 0o755); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileWrite, "create components directory").
			WithFile(cfg.Components.Dir)
	}
	files := map[string]string{
		templateFile: templateSource(name),
		goFile:       goSource(packageName(cfg.Components.Dir), name, typeName, base+".html"),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileWrite, "write scaffold").WithFile(path)
		}
	}

	if err := m.Save(manifestPath); err != nil {
		return nil, err
	}
	return &scaffold{Component: c, TemplateFile: templateFile, GoFile: goFile}, nil
}

func errorsIsNotFound(err error) bool {
	e, ok := err.(*errors.Error)
	return ok && e.Code == errors.ErrCodeFileNotFound
}

// typeNameFor turns numeric-counter into NumericCounter.
func typeNameFor(name string) string {
	title := cases.Title(language.English)
	parts := strings.Split(name, "-")
	for i, p := range parts {
		parts[i] = title.String(p)
	}
	return strings.Join(parts, "")
}

func packageName(dir string) string {
	base := strings.ToLower(filepath.Base(filepath.Clean(dir)))
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "components"
	}
	return b.String()
}

func templateSource(name string) string {
	return fmt.Sprintf(`<div class="%s">
  <span>{{ count }}</span>
  <button type="button" onclick="{{ increment() }}">+</button>
</div>
`, name)
}

func goSource(pkg, name, typeName, templateFile string) string {
	varName := strings.ToLower(typeName[:1]) + typeName[1:] + "Template"
	return fmt.Sprintf(`package %[1]s

import (
	_ "embed"

	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/registry"
)

//go:embed %[4]s
var %[5]s string

// %[3]s backs the <%[2]s> element.
type %[3]s struct {
	Count int `+"`json:\"count\"`"+`
}

func init() {
	class := component.Define(func(p *component.Params) *%[3]s {
		return &%[3]s{}
	}).
		Method("increment", func(c *%[3]s, _ ...any) any {
			c.Count++
			return nil
		}).
		Class()

	registry.Component(%[2]q, %[5]s, class)
}
`, pkg, name, typeName, templateFile, varName)
}
