// Package field defines the field type taxonomy, the immutable field
// definition value object, and the ordered field collection used by the
// type managers and the content CRUD engine.
package field

import (
	"errors"
	"fmt"
)

// Type is one of the closed set of supported field primitive types.
type Type string

// Supported field types. The set is fixed; anything else is rejected by
// Classify at construction time.
const (
	TypeString      Type = "string"
	TypeText        Type = "text"
	TypeTextarea    Type = "textarea"
	TypeHTML        Type = "html"
	TypeMarkdown    Type = "markdown"
	TypeCode        Type = "code"
	TypeInteger     Type = "integer"
	TypeFloat       Type = "float"
	TypeDecimal     Type = "decimal"
	TypeBoolean     Type = "boolean"
	TypeSelect      Type = "select"
	TypeRadio       Type = "radio"
	TypeCheckbox    Type = "checkbox"
	TypeMultiselect Type = "multiselect"
	TypeDate        Type = "date"
	TypeDatetime    Type = "datetime"
	TypeTime        Type = "time"
	TypeEmail       Type = "email"
	TypeURL         Type = "url"
	TypePhone       Type = "phone"
	TypeColor       Type = "color"
	TypeSlug        Type = "slug"
	TypeJSON        Type = "json"
	TypeLink        Type = "link"
	TypeAddress     Type = "address"
	TypeGeolocation Type = "geolocation"
	TypeImage       Type = "image"
	TypeFile        Type = "file"
	TypeGallery     Type = "gallery"
	TypeVideo       Type = "video"

	TypeEntityRef   Type = "entity_reference"
	TypeTaxonomyRef Type = "taxonomy_reference"
	TypeUserRef     Type = "user_reference"
	TypeBlockRef    Type = "block_reference"
)

// Category groups field types for the admin UI and collection grouping.
// Categories never drive storage decisions; see schema.ColumnType for that.
type Category string

// Display categories. Other is the residual bucket for types that fit no
// dedicated category.
const (
	CategoryText      Category = "Text"
	CategoryNumeric   Category = "Number"
	CategorySelection Category = "Selection"
	CategoryDate      Category = "Date & Time"
	CategoryMedia     Category = "Media"
	CategoryReference Category = "Reference"
	CategoryOther     Category = "Other"
)

// ErrUnknownType is returned when a field type name is outside the fixed
// enumeration.
var ErrUnknownType = errors.New("unknown field type")

// typeCategories maps every valid field type to its single category.
// Boolean is deliberately grouped under Selection: the admin surface has
// always presented it next to checkbox and radio, and downstream grouping
// code depends on that placement.
var typeCategories = map[Type]Category{
	TypeString:   CategoryText,
	TypeText:     CategoryText,
	TypeTextarea: CategoryText,
	TypeHTML:     CategoryText,
	TypeMarkdown: CategoryText,
	TypeCode:     CategoryText,
	TypeEmail:    CategoryText,
	TypeURL:      CategoryText,
	TypePhone:    CategoryText,
	TypeColor:    CategoryText,
	TypeSlug:     CategoryText,

	TypeInteger: CategoryNumeric,
	TypeFloat:   CategoryNumeric,
	TypeDecimal: CategoryNumeric,

	TypeBoolean:     CategorySelection,
	TypeSelect:      CategorySelection,
	TypeRadio:       CategorySelection,
	TypeCheckbox:    CategorySelection,
	TypeMultiselect: CategorySelection,

	TypeDate:     CategoryDate,
	TypeDatetime: CategoryDate,
	TypeTime:     CategoryDate,

	TypeImage:   CategoryMedia,
	TypeFile:    CategoryMedia,
	TypeGallery: CategoryMedia,
	TypeVideo:   CategoryMedia,

	TypeEntityRef:   CategoryReference,
	TypeTaxonomyRef: CategoryReference,
	TypeUserRef:     CategoryReference,
	TypeBlockRef:    CategoryReference,

	TypeJSON:        CategoryOther,
	TypeLink:        CategoryOther,
	TypeAddress:     CategoryOther,
	TypeGeolocation: CategoryOther,
}

// Classify validates a raw type name against the fixed enumeration. Unknown
// names fail with ErrUnknownType.
func Classify(name string) (Type, error) {
	t := Type(name)
	if _, ok := typeCategories[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Valid reports whether t belongs to the fixed enumeration.
func (t Type) Valid() bool {
	_, ok := typeCategories[t]
	return ok
}

// CategoryOf returns the single category a valid type belongs to. Unknown
// types fall into Other (callers should have validated via Classify first).
func (t Type) CategoryOf() Category {
	if c, ok := typeCategories[t]; ok {
		return c
	}
	return CategoryOther
}

// IsText reports whether t is a text-kind field.
func (t Type) IsText() bool { return t.CategoryOf() == CategoryText }

// IsNumeric reports whether t is a numeric-kind field.
func (t Type) IsNumeric() bool { return t.CategoryOf() == CategoryNumeric }

// IsSelection reports whether t is a selection-kind field. Boolean counts
// as a selection type.
func (t Type) IsSelection() bool { return t.CategoryOf() == CategorySelection }

// IsDate reports whether t is a date/time-kind field.
func (t Type) IsDate() bool { return t.CategoryOf() == CategoryDate }

// IsMedia reports whether t is a media-kind field.
func (t Type) IsMedia() bool { return t.CategoryOf() == CategoryMedia }

// IsReference reports whether t references another entity.
func (t Type) IsReference() bool { return t.CategoryOf() == CategoryReference }

// AllTypes returns every valid field type. The order is fixed and matches
// the declaration order above, suitable for deterministic output.
func AllTypes() []Type {
	return []Type{
		TypeString, TypeText, TypeTextarea, TypeHTML, TypeMarkdown, TypeCode,
		TypeInteger, TypeFloat, TypeDecimal,
		TypeBoolean, TypeSelect, TypeRadio, TypeCheckbox, TypeMultiselect,
		TypeDate, TypeDatetime, TypeTime,
		TypeEmail, TypeURL, TypePhone, TypeColor, TypeSlug,
		TypeJSON, TypeLink, TypeAddress, TypeGeolocation,
		TypeImage, TypeFile, TypeGallery, TypeVideo,
		TypeEntityRef, TypeTaxonomyRef, TypeUserRef, TypeBlockRef,
	}
}
