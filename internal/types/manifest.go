package types

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/monkeyscms/monkeys/internal/field"
)

// manifest is the YAML shape of a code-defined type declaration.
type manifest struct {
	Name        string         `yaml:"name"`
	Label       string         `yaml:"label"`
	LabelPlural string         `yaml:"label_plural"`
	Description string         `yaml:"description"`
	Icon        string         `yaml:"icon"`
	Title       bool           `yaml:"title"`
	Slug        bool           `yaml:"slug"`
	Weight      int            `yaml:"weight"`
	Settings    map[string]any `yaml:"settings"`

	Publishable  bool `yaml:"publishable"`
	Revisionable bool `yaml:"revisionable"`
	Translatable bool `yaml:"translatable"`
	HasAuthor    bool `yaml:"has_author"`
	HasTaxonomy  bool `yaml:"has_taxonomy"`

	Fields []manifestField `yaml:"fields"`
}

// manifestField is the YAML shape of one declared field.
type manifestField struct {
	Label        string         `yaml:"label"`
	Identifier   string         `yaml:"identifier"`
	Type         string         `yaml:"type"`
	Description  string         `yaml:"description"`
	Widget       string         `yaml:"widget"`
	Required     bool           `yaml:"required"`
	Multiple     bool           `yaml:"multiple"`
	Cardinality  int            `yaml:"cardinality"`
	Default      any            `yaml:"default"`
	Weight       int            `yaml:"weight"`
	Searchable   bool           `yaml:"searchable"`
	Translatable bool           `yaml:"translatable"`
	Settings     map[string]any `yaml:"settings"`
	Validation   map[string]any `yaml:"validation"`
}

// LoadManifests reads every *.yaml / *.yml file in dir, builds a validated
// code-defined Definition from each, and returns them sorted by name for
// deterministic registration order. An empty directory is fine; a missing
// one is an error.
func LoadManifests(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory %q: %w", dir, err)
	}

	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		def, err := loadManifestFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading manifest %q: %w", entry.Name(), err)
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// loadManifestFile parses one YAML manifest. Unknown keys are parse errors
// (KnownFields) so a misspelled flag fails loudly instead of being ignored.
func loadManifestFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return m.toDefinition()
}

// toDefinition validates the manifest and builds the code-defined type.
func (m manifest) toDefinition() (*Definition, error) {
	if m.Label == "" {
		return nil, ErrEmptyLabel
	}

	name := m.Name
	if name == "" {
		name = NormalizeName(m.Label)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	fields := field.NewCollection()
	for i, mf := range m.Fields {
		d, err := field.New(mf.Label, mf.Identifier, mf.Type)
		if err != nil {
			return nil, fmt.Errorf("field[%d]: %w", i, err)
		}
		d = d.
			WithDescription(mf.Description).
			WithWidget(mf.Widget).
			WithRequired(mf.Required).
			WithMultiple(mf.Multiple).
			WithWeight(mf.Weight).
			WithSearchable(mf.Searchable).
			WithTranslatable(mf.Translatable).
			WithSettings(mf.Settings).
			WithValidation(mf.Validation)
		if mf.Cardinality != 0 {
			d = d.WithCardinality(mf.Cardinality)
		}
		if mf.Default != nil {
			d = d.WithDefault(mf.Default)
		}

		if fields.Has(d.Identifier()) {
			return nil, fmt.Errorf("field[%d]: duplicate identifier %q", i, d.Identifier())
		}
		fields = fields.Add(d)
	}

	return &Definition{
		Name:        name,
		Label:       m.Label,
		LabelPlural: m.LabelPlural,
		Description: m.Description,
		Icon:        m.Icon,
		Source:      SourceCode,
		Weight:      m.Weight,
		HasTitle:    m.Title,
		HasSlug:     m.Slug,
		Capabilities: Capabilities{
			Publishable:  m.Publishable,
			Revisionable: m.Revisionable,
			Translatable: m.Translatable,
			HasAuthor:    m.HasAuthor,
			HasTaxonomy:  m.HasTaxonomy,
		},
		Settings: m.Settings,
		Fields:   fields.SortByWeight(),
	}, nil
}
