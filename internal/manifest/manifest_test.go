package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/pkg/registry"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

const sample = `version: 1
components:
  - name: numeric-counter
    template: components/numeric_counter.html
    type: NumericCounter
  - name: main-layout
    template: components/main_layout.html
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "components"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components.yaml"), []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components", "numeric_counter.html"),
		[]byte(`<div><button onclick="{{ increment() }}">+</button>{{ value }}</div>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "components", "main_layout.html"),
		[]byte(`<main><numeric-counter value="3" /></main>`), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeProject(t)

	m, err := Load(filepath.Join(dir, "components.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Version)
	require.Len(t, m.Components, 2)
	assert.Equal(t, "numeric-counter", m.Components[0].Name)
	assert.Equal(t, "NumericCounter", m.Components[0].Type)
	assert.Equal(t, dir, m.Dir())
	assert.Equal(t, filepath.Join(dir, "components", "main_layout.html"), m.TemplatePath(m.Components[1]))

	c, ok := m.ByTemplate(filepath.Join(dir, "components", "numeric_counter.html"))
	require.True(t, ok)
	assert.Equal(t, "numeric-counter", c.Name)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "components.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.NewIOError(errors.ErrCodeFileNotFound, "", nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "components:\n  - name: a-b\n    template: a.html\n    colour: red\n"},
		{"no hyphen", "components:\n  - name: counter\n    template: a.html\n"},
		{"upper case", "components:\n  - name: My-Counter\n    template: a.html\n"},
		{"missing template", "components:\n  - name: my-counter\n"},
		{"traversal", "components:\n  - name: my-counter\n    template: ../secret.html\n"},
		{"absolute", "components:\n  - name: my-counter\n    template: /etc/passwd\n"},
		{"duplicate", "components:\n  - name: my-counter\n    template: a.html\n  - name: my-counter\n    template: b.html\n"},
		{"future version", "version: 9\ncomponents: []\n"},
		{"not yaml", "components: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), ".")
			require.Error(t, err)
			typ, ok := errors.TypeOf(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeValidation, typ)
		})
	}
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"main-layout", "x-card", "numeric-counter-2", "a1-b2-c3"} {
		assert.True(t, ValidName(name), name)
	}
	for _, name := range []string{"", "counter", "-x", "x-", "x--y", "Main-Layout", "1x-y", "x_y-z"} {
		assert.False(t, ValidName(name), name)
	}
}

func TestAdd(t *testing.T) {
	m := New(".")

	require.NoError(t, m.Add(Component{Name: "x-card", Template: "x_card.html"}))
	err := m.Add(Component{Name: "x-card", Template: "other.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Error(t, m.Add(Component{Name: "card", Template: "card.html"}))
	assert.Len(t, m.Components, 1)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "components.yaml")
	m := New(dir)
	require.NoError(t, m.Add(Component{Name: "x-card", Template: "x_card.html", Description: "A card"}))

	require.NoError(t, m.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, m.Components, loaded.Components)
	assert.Equal(t, CurrentVersion, loaded.Version)
}

func TestRegister(t *testing.T) {
	dir := writeProject(t)
	m, err := Load(filepath.Join(dir, "components.yaml"))
	require.NoError(t, err)
	reg := registry.New()

	require.NoError(t, m.Register(reg))

	assert.Equal(t, []string{"numeric-counter", "main-layout"}, reg.Names())
	d, ok := reg.Get("main-layout")
	require.True(t, ok)
	assert.True(t, template.IsCompiled(d.Template))
	assert.Contains(t, d.Template, `<numeric-counter vuevalue="3" ></numeric-counter>`)
}

func TestRegister_MissingTemplate(t *testing.T) {
	m := New(t.TempDir())
	require.NoError(t, m.Add(Component{Name: "x-card", Template: "missing.html"}))

	err := m.Register(registry.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
