package field

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"
)

// identifierPattern is the grammar every normalized field identifier must
// match. The "field_" prefix is structural: schema generation relies on it
// to tell custom columns apart from system columns.
var identifierPattern = regexp.MustCompile(`^field_[a-z][a-z0-9_]*$`)

// CardinalityUnlimited marks a field that may hold any number of values.
const CardinalityUnlimited = -1

// Sentinel errors for definition construction.
var (
	ErrInvalidIdentifier = errors.New("invalid field identifier")
	ErrEmptyLabel        = errors.New("field label must not be empty")
)

// Definition describes one custom field attached to a content or block
// type. It is an immutable value object: all With* methods return a copy
// and no mutation is ever observable through an existing reference.
type Definition struct {
	id           int64
	typeID       int64
	label        string
	identifier   string
	fieldType    Type
	description  string
	widget       string
	required     bool
	multiple     bool
	cardinality  int
	defaultValue any
	settings     map[string]any
	validation   map[string]any
	weight       int
	searchable   bool
	translatable bool
	createdAt    time.Time
	updatedAt    time.Time
}

// New builds a Definition from a display label, a raw identifier, and a
// field type name. The identifier is normalized (lowercased, "field_"
// prefix added if missing) and validated against the identifier grammar.
func New(label, identifier, typeName string) (Definition, error) {
	if strings.TrimSpace(label) == "" {
		return Definition{}, ErrEmptyLabel
	}

	ft, err := Classify(typeName)
	if err != nil {
		return Definition{}, err
	}

	ident, err := NormalizeIdentifier(identifier)
	if err != nil {
		return Definition{}, err
	}

	return Definition{
		label:       label,
		identifier:  ident,
		fieldType:   ft,
		cardinality: 1,
	}, nil
}

// NormalizeIdentifier lowercases a raw identifier, prefixes it with
// "field_" when missing, and validates the result against the identifier
// grammar. Normalization is idempotent: feeding the output back in returns
// it unchanged.
func NormalizeIdentifier(raw string) (string, error) {
	ident := strings.ToLower(strings.TrimSpace(raw))
	if ident != "" && !strings.HasPrefix(ident, "field_") {
		ident = "field_" + ident
	}
	if !identifierPattern.MatchString(ident) {
		return "", fmt.Errorf("%w: %q must match %s", ErrInvalidIdentifier, raw, identifierPattern.String())
	}
	return ident, nil
}

// Record is the persisted form of a Definition. Settings, validation rules,
// and the default value are carried as JSON so the round trip through
// storage is lossless.
type Record struct {
	ID           int64
	TypeID       int64
	Label        string
	Identifier   string
	FieldType    string
	Description  string
	Widget       string
	Required     bool
	Multiple     bool
	Cardinality  int
	DefaultJSON  []byte
	SettingsJSON []byte
	RulesJSON    []byte
	Weight       int
	Searchable   bool
	Translatable bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FromRecord hydrates a Definition from its persisted form. It runs the
// same normalization and validation as New so that hand-edited or legacy
// rows self-heal on load.
func FromRecord(rec Record) (Definition, error) {
	d, err := New(rec.Label, rec.Identifier, rec.FieldType)
	if err != nil {
		return Definition{}, fmt.Errorf("field %q: %w", rec.Identifier, err)
	}

	d.id = rec.ID
	d.typeID = rec.TypeID
	d.description = rec.Description
	d.widget = rec.Widget
	d.required = rec.Required
	d.multiple = rec.Multiple
	if rec.Cardinality != 0 {
		d.cardinality = rec.Cardinality
	}
	d.weight = rec.Weight
	d.searchable = rec.Searchable
	d.translatable = rec.Translatable
	d.createdAt = rec.CreatedAt
	d.updatedAt = rec.UpdatedAt

	if len(rec.DefaultJSON) > 0 {
		if err := json.Unmarshal(rec.DefaultJSON, &d.defaultValue); err != nil {
			return Definition{}, fmt.Errorf("field %q: decoding default value: %w", d.identifier, err)
		}
	}
	if len(rec.SettingsJSON) > 0 {
		if err := json.Unmarshal(rec.SettingsJSON, &d.settings); err != nil {
			return Definition{}, fmt.Errorf("field %q: decoding settings: %w", d.identifier, err)
		}
	}
	if len(rec.RulesJSON) > 0 {
		if err := json.Unmarshal(rec.RulesJSON, &d.validation); err != nil {
			return Definition{}, fmt.Errorf("field %q: decoding validation rules: %w", d.identifier, err)
		}
	}

	return d, nil
}

// ToRecord returns the persisted form of the definition, the inverse of
// FromRecord.
func (d Definition) ToRecord() (Record, error) {
	rec := Record{
		ID:           d.id,
		TypeID:       d.typeID,
		Label:        d.label,
		Identifier:   d.identifier,
		FieldType:    string(d.fieldType),
		Description:  d.description,
		Widget:       d.widget,
		Required:     d.required,
		Multiple:     d.multiple,
		Cardinality:  d.cardinality,
		Weight:       d.weight,
		Searchable:   d.searchable,
		Translatable: d.translatable,
		CreatedAt:    d.createdAt,
		UpdatedAt:    d.updatedAt,
	}

	var err error
	if d.defaultValue != nil {
		if rec.DefaultJSON, err = json.Marshal(d.defaultValue); err != nil {
			return Record{}, fmt.Errorf("field %q: encoding default value: %w", d.identifier, err)
		}
	}
	if len(d.settings) > 0 {
		if rec.SettingsJSON, err = json.Marshal(d.settings); err != nil {
			return Record{}, fmt.Errorf("field %q: encoding settings: %w", d.identifier, err)
		}
	}
	if len(d.validation) > 0 {
		if rec.RulesJSON, err = json.Marshal(d.validation); err != nil {
			return Record{}, fmt.Errorf("field %q: encoding validation rules: %w", d.identifier, err)
		}
	}

	return rec, nil
}

// Accessors. Identifier and field type are immutable after construction;
// there is deliberately no With* for either.

func (d Definition) ID() int64          { return d.id }
func (d Definition) TypeID() int64      { return d.typeID }
func (d Definition) Label() string      { return d.label }
func (d Definition) Identifier() string { return d.identifier }
func (d Definition) FieldType() Type    { return d.fieldType }
func (d Definition) Description() string {
	return d.description
}
func (d Definition) Widget() string       { return d.widget }
func (d Definition) Required() bool       { return d.required }
func (d Definition) Multiple() bool       { return d.multiple }
func (d Definition) Cardinality() int     { return d.cardinality }
func (d Definition) Default() any         { return d.defaultValue }
func (d Definition) Weight() int          { return d.weight }
func (d Definition) Searchable() bool     { return d.searchable }
func (d Definition) Translatable() bool   { return d.translatable }
func (d Definition) CreatedAt() time.Time { return d.createdAt }
func (d Definition) UpdatedAt() time.Time { return d.updatedAt }

// Setting returns a single settings value and whether it was present.
func (d Definition) Setting(key string) (any, bool) {
	v, ok := d.settings[key]
	return v, ok
}

// Settings returns a copy of the settings map; mutating it does not affect
// the definition.
func (d Definition) Settings() map[string]any {
	return maps.Clone(d.settings)
}

// Validation returns a copy of the validation-rule map.
func (d Definition) Validation() map[string]any {
	return maps.Clone(d.validation)
}

// WithID returns a copy with the persisted row id set.
func (d Definition) WithID(id int64) Definition { d.id = id; return d }

// WithTypeID returns a copy owned by the given type row.
func (d Definition) WithTypeID(typeID int64) Definition { d.typeID = typeID; return d }

// WithLabel returns a copy with a new display label.
func (d Definition) WithLabel(label string) Definition { d.label = label; return d }

// WithDescription returns a copy with new help text.
func (d Definition) WithDescription(desc string) Definition { d.description = desc; return d }

// WithWidget returns a copy with a new widget hint.
func (d Definition) WithWidget(widget string) Definition { d.widget = widget; return d }

// WithRequired returns a copy with the required flag set.
func (d Definition) WithRequired(required bool) Definition { d.required = required; return d }

// WithMultiple returns a copy with the multiple flag set.
func (d Definition) WithMultiple(multiple bool) Definition { d.multiple = multiple; return d }

// WithCardinality returns a copy with the given cardinality. Valid domain
// values are n >= 1 or CardinalityUnlimited; zero is a data-entry error the
// boundary layer rejects before reaching here.
func (d Definition) WithCardinality(n int) Definition { d.cardinality = n; return d }

// WithDefault returns a copy with a new default value.
func (d Definition) WithDefault(v any) Definition { d.defaultValue = v; return d }

// WithSetting returns a copy with one settings key set. The settings map is
// cloned so the receiver is untouched.
func (d Definition) WithSetting(key string, value any) Definition {
	s := maps.Clone(d.settings)
	if s == nil {
		s = make(map[string]any, 1)
	}
	s[key] = value
	d.settings = s
	return d
}

// WithSettings returns a copy with the whole settings map replaced.
func (d Definition) WithSettings(settings map[string]any) Definition {
	d.settings = maps.Clone(settings)
	return d
}

// WithValidationRule returns a copy with one validation rule set.
func (d Definition) WithValidationRule(key string, value any) Definition {
	v := maps.Clone(d.validation)
	if v == nil {
		v = make(map[string]any, 1)
	}
	v[key] = value
	d.validation = v
	return d
}

// WithValidation returns a copy with the whole validation-rule map replaced.
func (d Definition) WithValidation(rules map[string]any) Definition {
	d.validation = maps.Clone(rules)
	return d
}

// WithWeight returns a copy with a new sort weight.
func (d Definition) WithWeight(w int) Definition { d.weight = w; return d }

// WithSearchable returns a copy with the searchable flag set.
func (d Definition) WithSearchable(s bool) Definition { d.searchable = s; return d }

// WithTranslatable returns a copy with the translatable flag set.
func (d Definition) WithTranslatable(t bool) Definition { d.translatable = t; return d }

// WithTimestamps returns a copy carrying the persisted timestamps.
func (d Definition) WithTimestamps(created, updated time.Time) Definition {
	d.createdAt = created
	d.updatedAt = updated
	return d
}
