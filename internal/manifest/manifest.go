// Package manifest reads and writes components.yaml, the list of components
// the tooling compiles, serves and scaffolds.
//
//	version: 1
//	components:
//	  - name: numeric-counter
//	    template: components/numeric_counter.html
//	    type: NumericCounter
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/validation"
	"github.com/conneroisu/unobtrusive/pkg/registry"
)

// CurrentVersion is the manifest format written by Save.
const CurrentVersion = 1

var elementName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)+$`)

// Component is one manifest entry.
type Component struct {
	Name        string `yaml:"name" json:"name"`
	Template    string `yaml:"template" json:"template"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Manifest is a parsed components.yaml.
type Manifest struct {
	Version    int         `yaml:"version" json:"version"`
	Components []Component `yaml:"components" json:"components"`

	// dir resolves template paths.
	dir string
}

// New returns an empty manifest whose templates resolve against dir.
func New(dir string) *Manifest {
	return &Manifest{Version: CurrentVersion, dir: dir}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "manifest not found", err).WithFile(path)
		}
		return nil, errors.WrapIO(err, errors.ErrCodeFileRead, "read manifest").WithFile(path)
	}

	m, err := Parse(data, filepath.Dir(path))
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, e.WithFile(path)
		}
		return nil, err
	}
	return m, nil
}

// Parse decodes and validates a manifest document. Template paths resolve
// against dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	m := New(dir)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, errors.WrapValidation(err, errors.ErrCodeManifestInvalid, "decode manifest")
	}
	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks versions, element names and template paths.
func (m *Manifest) Validate() error {
	if m.Version > CurrentVersion {
		return errors.NewValidationError(errors.ErrCodeManifestInvalid,
			fmt.Sprintf("unsupported manifest version %d", m.Version))
	}

	seen := make(map[string]bool, len(m.Components))
	var errs []error
	for i, c := range m.Components {
		if err := c.Validate(); err != nil {
			errs = append(errs, err.WithContext("index", i))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, errors.NewValidationError(errors.ErrCodeManifestInvalid,
				"duplicate component "+c.Name).WithComponent(c.Name))
		}
		seen[c.Name] = true
	}
	return errors.CombineErrors(errs...)
}

// Validate checks a single entry.
func (c Component) Validate() *errors.Error {
	if !ValidName(c.Name) {
		return errors.NewValidationError(errors.ErrCodeManifestInvalid,
			fmt.Sprintf("invalid element name %q: lowercase words joined by hyphens", c.Name)).
			WithComponent(c.Name)
	}
	if c.Template == "" {
		return errors.NewValidationError(errors.ErrCodeManifestInvalid, "missing template path").
			WithComponent(c.Name)
	}
	if err := validation.ValidateRelativePath(c.Template); err != nil {
		return errors.ErrPathTraversal(c.Template).WithComponent(c.Name).WithContext("reason", err.Error())
	}
	return nil
}

// ValidName reports whether name is a valid custom element name.
func ValidName(name string) bool {
	return elementName.MatchString(name)
}

// Dir returns the directory template paths resolve against.
func (m *Manifest) Dir() string {
	return m.dir
}

// Find returns the entry called name.
func (m *Manifest) Find(name string) (Component, bool) {
	for _, c := range m.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Add appends c after validating it.
func (m *Manifest) Add(c Component) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := m.Find(c.Name); exists {
		return errors.NewValidationError(errors.ErrCodeManifestInvalid,
			"component already exists: "+c.Name).WithComponent(c.Name)
	}
	m.Components = append(m.Components, c)
	return nil
}

// TemplatePath returns the file holding the template of c.
func (m *Manifest) TemplatePath(c Component) string {
	return filepath.Join(m.dir, filepath.FromSlash(c.Template))
}

// ByTemplate returns the entry whose template file is path.
func (m *Manifest) ByTemplate(path string) (Component, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Component{}, false
	}
	for _, c := range m.Components {
		candidate, err := filepath.Abs(m.TemplatePath(c))
		if err == nil && candidate == abs {
			return c, true
		}
	}
	return Component{}, false
}

// ReadTemplate reads the template source of c.
func (m *Manifest) ReadTemplate(c Component) (string, error) {
	path := m.TemplatePath(c)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeFileRead, "read template").
			WithFile(path).
			WithComponent(c.Name)
	}
	return string(data), nil
}

// Register reads every template and registers the components in reg, in
// manifest order. Classes are blank: the tooling only sees templates.
func (m *Manifest) Register(reg *registry.Registry) error {
	for _, c := range m.Components {
		src, err := m.ReadTemplate(c)
		if err != nil {
			return err
		}
		reg.Register(c.Name, nil, src)
	}
	return nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return errors.WrapInternal(err, errors.ErrCodeInternalError, "encode manifest")
	}
	if err := enc.Close(); err != nil {
		return errors.WrapInternal(err, errors.ErrCodeInternalError, "encode manifest")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileWrite, "write manifest").WithFile(path)
	}
	return nil
}
