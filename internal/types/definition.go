package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/monkeyscms/monkeys/internal/field"
	"github.com/monkeyscms/monkeys/internal/schema"
)

// Source discriminates where a type definition came from. Code-defined
// types are registered at boot and immutable from the admin surface;
// database-defined types live as rows and are fully mutable (unless
// flagged as system types).
type Source string

// Type sources.
const (
	SourceCode     Source = "code"
	SourceDatabase Source = "database"
)

// Capabilities are the boolean flags that shape a type's dynamic table and
// behavior. Content types use the full set; block types typically leave
// them all off and carry their block-specific settings (regions,
// cacheability) in the settings map.
type Capabilities struct {
	Publishable  bool `json:"publishable" yaml:"publishable"`
	Revisionable bool `json:"revisionable" yaml:"revisionable"`
	Translatable bool `json:"translatable" yaml:"translatable"`
	HasAuthor    bool `json:"has_author" yaml:"has_author"`
	HasTaxonomy  bool `json:"has_taxonomy" yaml:"has_taxonomy"`
}

// Definition is the schema-level description of one content or block type:
// its identity, labels, capability flags, and the collection of attached
// fields.
type Definition struct {
	ID           int64
	Name         string // machine name, unique within the kind
	Label        string
	LabelPlural  string
	Description  string
	Icon         string
	Source       Source
	System       bool // protects database-defined rows from deletion
	Weight       int
	HasTitle     bool
	HasSlug      bool
	Capabilities Capabilities
	Settings     map[string]any
	Fields       *field.Collection
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Table returns the definition's physical table name for the given kind.
func (d *Definition) Table(kind Kind) string {
	return kind.Table(d.Name)
}

// TableSpec translates the definition into the shape the schema generator
// consumes.
func (d *Definition) TableSpec(kind Kind) schema.TableSpec {
	return schema.TableSpec{
		Name:         d.Table(kind),
		HasTitle:     d.HasTitle,
		HasSlug:      d.HasSlug,
		Publishable:  d.Capabilities.Publishable,
		HasAuthor:    d.Capabilities.HasAuthor,
		Revisionable: d.Capabilities.Revisionable,
		Translatable: d.Capabilities.Translatable,
		Fields:       d.Fields,
	}
}

// clone returns a deep-enough copy for handing out of the manager: callers
// may mutate the returned settings map or rebind Fields without affecting
// the registry's copy. Field definitions themselves are immutable values.
func (d *Definition) clone() *Definition {
	c := *d
	c.Settings = maps.Clone(d.Settings)
	if d.Fields != nil {
		c.Fields = d.Fields.Merge(field.NewCollection())
	}
	return &c
}

// Record is the persisted form of a type registry row. Settings travel as
// a JSON blob; capability flags are plain columns so they can be indexed
// and inspected with SQL.
type Record struct {
	ID           int64
	Name         string
	Label        string
	LabelPlural  string
	Description  string
	Icon         string
	System       bool
	Weight       int
	HasTitle     bool
	HasSlug      bool
	Publishable  bool
	Revisionable bool
	Translatable bool
	HasAuthor    bool
	HasTaxonomy  bool
	SettingsJSON []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToRecord returns the persisted form of a database-defined type.
func (d *Definition) ToRecord() (Record, error) {
	rec := Record{
		ID:           d.ID,
		Name:         d.Name,
		Label:        d.Label,
		LabelPlural:  d.LabelPlural,
		Description:  d.Description,
		Icon:         d.Icon,
		System:       d.System,
		Weight:       d.Weight,
		HasTitle:     d.HasTitle,
		HasSlug:      d.HasSlug,
		Publishable:  d.Capabilities.Publishable,
		Revisionable: d.Capabilities.Revisionable,
		Translatable: d.Capabilities.Translatable,
		HasAuthor:    d.Capabilities.HasAuthor,
		HasTaxonomy:  d.Capabilities.HasTaxonomy,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}

	if len(d.Settings) > 0 {
		b, err := json.Marshal(d.Settings)
		if err != nil {
			return Record{}, fmt.Errorf("type %q: encoding settings: %w", d.Name, err)
		}
		rec.SettingsJSON = b
	}

	return rec, nil
}

// FromRecord hydrates a database-defined Definition from its persisted
// row and the fields attached to it.
func FromRecord(rec Record, fields *field.Collection) (*Definition, error) {
	d := &Definition{
		ID:          rec.ID,
		Name:        rec.Name,
		Label:       rec.Label,
		LabelPlural: rec.LabelPlural,
		Description: rec.Description,
		Icon:        rec.Icon,
		Source:      SourceDatabase,
		System:      rec.System,
		Weight:      rec.Weight,
		HasTitle:    rec.HasTitle,
		HasSlug:     rec.HasSlug,
		Capabilities: Capabilities{
			Publishable:  rec.Publishable,
			Revisionable: rec.Revisionable,
			Translatable: rec.Translatable,
			HasAuthor:    rec.HasAuthor,
			HasTaxonomy:  rec.HasTaxonomy,
		},
		Fields:    fields,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	if len(rec.SettingsJSON) > 0 {
		if err := json.Unmarshal(rec.SettingsJSON, &d.Settings); err != nil {
			return nil, fmt.Errorf("type %q: decoding settings: %w", rec.Name, err)
		}
	}
	if d.Fields == nil {
		d.Fields = field.NewCollection()
	}

	return d, nil
}
