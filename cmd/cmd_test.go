package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/manifest"
	"github.com/conneroisu/unobtrusive/internal/version"
)

const sampleManifest = `version: 1
components:
  - name: numeric-counter
    template: components/numeric_counter.html
    type: NumericCounter
  - name: main-layout
    template: components/main_layout.html
`

// inProject runs the test from a fresh project directory with default
// configuration.
func inProject(t *testing.T, withManifest bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	viper.Reset()
	t.Cleanup(viper.Reset)

	if withManifest {
		require.NoError(t, os.MkdirAll("components", 0o755))
		require.NoError(t, os.WriteFile("components.yaml", []byte(sampleManifest), 0o644))
		require.NoError(t, os.WriteFile("components/numeric_counter.html",
			[]byte(`<div><button onclick="{{ increment() }}">+</button>{{ value }}</div>`), 0o644))
		require.NoError(t, os.WriteFile("components/main_layout.html",
			[]byte("<main>\n  <numeric-counter value=\"3\" />\n</main>"), 0o644))
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestCompileComponents(t *testing.T) {
	cfg := inProject(t, true)
	m, err := manifest.Load(cfg.Components.Manifest)
	require.NoError(t, err)

	result, err := compileComponents(cfg, m, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"numeric-counter", "main-layout"}, result.Compiled)
	assert.Equal(t, 0, result.Cached)

	data, err := os.ReadFile(filepath.Join("dist", "templates", "main-layout.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `vuevalue="3"`)
	assert.Contains(t, string(data), "</numeric-counter>")
	assert.Contains(t, string(data), "data-component-root")

	again, err := compileComponents(cfg, m, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Cached)
	assert.FileExists(t, filepath.Join(".unobtrusive", "cache", "templates.msgpack"))
}

func TestCompileComponents_Selection(t *testing.T) {
	cfg := inProject(t, true)
	m, err := manifest.Load(cfg.Components.Manifest)
	require.NoError(t, err)

	result, err := compileComponents(cfg, m, []string{"numeric-counter"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"numeric-counter"}, result.Compiled)
	assert.NoDirExists(t, filepath.Join(".unobtrusive", "cache"))

	_, err = compileComponents(cfg, m, []string{"missing-one"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrComponentNotFound(""))
}

func TestCompileComponents_Collapse(t *testing.T) {
	cfg := inProject(t, true)
	cfg.Compiler.CollapseWhitespace = true
	m, err := manifest.Load(cfg.Components.Manifest)
	require.NoError(t, err)

	_, err = compileComponents(cfg, m, []string{"main-layout"}, true)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join("dist", "templates", "main-layout.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n  <numeric-counter")
}

func TestWriteComponents(t *testing.T) {
	components := []manifest.Component{
		{Name: "numeric-counter", Template: "components/numeric_counter.html", Type: "NumericCounter"},
		{Name: "main-layout", Template: "components/main_layout.html"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeComponents(&buf, "table", components))
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), "NAME")
		assert.Contains(t, string(lines[2]), "main-layout")
		assert.True(t, strings.HasSuffix(string(lines[2]), "-"))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeComponents(&buf, "JSON", components))
		var decoded []manifest.Component
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, components, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeComponents(&buf, "yaml", components))
		var decoded []manifest.Component
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, components, decoded)
	})

	t.Run("empty json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeComponents(&buf, "json", nil))
		assert.Equal(t, "[]\n", buf.String())
	})
}

func TestScaffoldComponent(t *testing.T) {
	cfg := inProject(t, false)

	s, err := scaffoldComponent(cfg, "numeric-counter", "", "Counts clicks")
	require.NoError(t, err)

	assert.Equal(t, "NumericCounter", s.Component.Type)
	assert.Equal(t, "components/numeric_counter.html", s.Component.Template)
	assert.FileExists(t, filepath.Join("components", "numeric_counter.html"))

	src, err := os.ReadFile(filepath.Join("components", "numeric_counter.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package components")
	assert.Contains(t, string(src), "//go:embed numeric_counter.html")
	assert.Contains(t, string(src), "var numericCounterTemplate string")
	assert.Contains(t, string(src), `registry.Component("numeric-counter", numericCounterTemplate, class)`)

	m, err := manifest.Load("components.yaml")
	require.NoError(t, err)
	c, ok := m.Find("numeric-counter")
	require.True(t, ok)
	assert.Equal(t, "Counts clicks", c.Description)

	_, err = scaffoldComponent(cfg, "numeric-counter", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestScaffoldComponent_Invalid(t *testing.T) {
	cfg := inProject(t, false)

	tests := []struct {
		name     string
		element  string
		typeName string
	}{
		{"no hyphen", "counter", ""},
		{"upper case", "Numeric-Counter", ""},
		{"unexported type", "numeric-counter", "numericCounter"},
		{"bad type", "numeric-counter", "Numeric-Counter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scaffoldComponent(cfg, tt.element, tt.typeName, "")
			require.Error(t, err)
			typ, ok := errors.TypeOf(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeValidation, typ)
		})
	}
	assert.NoFileExists(t, "components.yaml")
}

func TestTypeNameFor(t *testing.T) {
	tests := map[string]string{
		"numeric-counter": "NumericCounter",
		"main-layout":     "MainLayout",
		"x-card":          "XCard",
		"user-card-2":     "UserCard2",
	}
	for in, want := range tests {
		assert.Equal(t, want, typeNameFor(in), in)
	}
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "components", packageName("components"))
	assert.Equal(t, "widgets", packageName("ui/widgets/"))
	assert.Equal(t, "myui", packageName("my-ui"))
	assert.Equal(t, "components", packageName("123"))
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   StandardFlags
		wantErr bool
	}{
		{"defaults", StandardFlags{Port: 8080, OutputFormat: "table"}, false},
		{"yaml upper", StandardFlags{OutputFormat: "YAML"}, false},
		{"bad port", StandardFlags{Port: 70000}, true},
		{"bad format", StandardFlags{OutputFormat: "csv"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.ValidateFlags()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		versionFormat = "text"
	})
	versionFormat = "json"

	require.NoError(t, runVersionCommand(versionCmd, nil))

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestVersionCommand_UnknownFormat(t *testing.T) {
	t.Cleanup(func() { versionFormat = "text" })
	versionFormat = "xml"

	assert.Error(t, runVersionCommand(versionCmd, nil))
}

func TestRootCommand_Registered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"compile", "serve", "list", "new", "version"})
}
