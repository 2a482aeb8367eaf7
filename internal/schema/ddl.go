// Package schema translates type definitions and their field collections
// into PostgreSQL DDL, and executes that DDL with idempotent tolerance for
// re-running schema sync.
package schema

import (
	"fmt"
	"strings"

	"github.com/monkeyscms/monkeys/internal/field"
)

// Default sizing for settings-driven column types.
const (
	defaultVarcharLength    = 255
	defaultNumericPrecision = 10
	defaultNumericScale     = 2
)

// QuoteIdent quotes a SQL identifier with double quotes, doubling any
// embedded quote. Identifiers reaching here are already validated machine
// names; quoting is defense-in-depth.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// affinity is the SQL column family a field type maps to. The mapping is
// table-driven so storage decisions live in one place.
type affinity int

const (
	affVarchar affinity = iota // bounded varchar sized from settings
	affText
	affInteger
	affNumeric // precision/scale from settings
	affBoolean
	affDate
	affTimestamp
	affTime
	affJSON
	affBigint // FK-like reference column, no enforced constraint
)

// typeAffinities maps every field type to its column family. Reference and
// media kinds store a bare id: the referenced table may itself be dynamic,
// so no FK constraint is emitted.
var typeAffinities = map[field.Type]affinity{
	field.TypeString: affVarchar,
	field.TypeEmail:  affVarchar,
	field.TypeURL:    affVarchar,
	field.TypePhone:  affVarchar,
	field.TypeColor:  affVarchar,
	field.TypeSlug:   affVarchar,
	field.TypeSelect: affVarchar,
	field.TypeRadio:  affVarchar,

	field.TypeText:     affText,
	field.TypeTextarea: affText,
	field.TypeHTML:     affText,
	field.TypeMarkdown: affText,
	field.TypeCode:     affText,

	field.TypeInteger: affInteger,
	field.TypeFloat:   affNumeric,
	field.TypeDecimal: affNumeric,

	field.TypeBoolean:  affBoolean,
	field.TypeCheckbox: affBoolean,

	field.TypeDate:     affDate,
	field.TypeDatetime: affTimestamp,
	field.TypeTime:     affTime,

	field.TypeJSON:        affJSON,
	field.TypeMultiselect: affJSON,
	field.TypeGallery:     affJSON,
	field.TypeLink:        affJSON,
	field.TypeAddress:     affJSON,
	field.TypeGeolocation: affJSON,

	field.TypeImage:       affBigint,
	field.TypeFile:        affBigint,
	field.TypeVideo:       affBigint,
	field.TypeEntityRef:   affBigint,
	field.TypeTaxonomyRef: affBigint,
	field.TypeUserRef:     affBigint,
	field.TypeBlockRef:    affBigint,
}

// ColumnType returns the PostgreSQL column type for a field, applying the
// length / precision / scale settings where the family supports them.
func ColumnType(d field.Definition) string {
	switch typeAffinities[d.FieldType()] {
	case affVarchar:
		length := settingInt(d, "length", defaultVarcharLength)
		return fmt.Sprintf("VARCHAR(%d)", length)
	case affText:
		return "TEXT"
	case affInteger:
		return "INTEGER"
	case affNumeric:
		precision := settingInt(d, "precision", defaultNumericPrecision)
		scale := settingInt(d, "scale", defaultNumericScale)
		return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale)
	case affBoolean:
		return "BOOLEAN"
	case affDate:
		return "DATE"
	case affTimestamp:
		return "TIMESTAMPTZ"
	case affTime:
		return "TIME"
	case affJSON:
		return "JSONB"
	case affBigint:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// settingInt reads an integer setting, accepting the numeric shapes JSON
// decoding produces.
func settingInt(d field.Definition, key string, def int) int {
	v, ok := d.Setting(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		if n > 0 {
			return n
		}
	case int64:
		if n > 0 {
			return int(n)
		}
	case float64:
		if n > 0 {
			return int(n)
		}
	}
	return def
}

// TableSpec describes the dynamic table to generate for one type
// definition. The type managers build it from their metadata; this package
// only cares about the physical shape.
type TableSpec struct {
	// Name is the physical table name including the kind prefix
	// (e.g. "ct_product", "bt_hero_banner").
	Name string

	HasTitle bool
	HasSlug  bool

	Publishable  bool
	HasAuthor    bool
	Revisionable bool
	Translatable bool

	Fields *field.Collection
}

// GenerateCreateTable emits the CREATE TABLE statement plus its index
// statements for a type's dynamic table. The column order is fixed — id,
// uuid, title, slug, custom fields, capability columns, timestamps — so
// generated DDL diffs predictably across versions; any reordering is a
// breaking change for tooling that reviews this output.
func GenerateCreateTable(spec TableSpec) string {
	var b strings.Builder
	qTable := QuoteIdent(spec.Name)

	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", qTable))
	b.WriteString(fmt.Sprintf("    %s BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,\n", QuoteIdent("id")))
	b.WriteString(fmt.Sprintf("    %s UUID NOT NULL UNIQUE,\n", QuoteIdent("uuid")))

	if spec.HasTitle {
		b.WriteString(fmt.Sprintf("    %s TEXT NOT NULL,\n", QuoteIdent("title")))
	}
	if spec.HasSlug {
		b.WriteString(fmt.Sprintf("    %s VARCHAR(255) NOT NULL UNIQUE,\n", QuoteIdent("slug")))
	}

	if spec.Fields != nil {
		for _, d := range spec.Fields.All() {
			b.WriteString("    " + columnDef(d) + ",\n")
		}
	}

	if spec.Publishable {
		b.WriteString(fmt.Sprintf("    %s TEXT NOT NULL DEFAULT 'draft',\n", QuoteIdent("status")))
		b.WriteString(fmt.Sprintf("    %s TIMESTAMPTZ,\n", QuoteIdent("published_at")))
	}
	if spec.HasAuthor {
		b.WriteString(fmt.Sprintf("    %s BIGINT,\n", QuoteIdent("author_id")))
	}
	if spec.Revisionable {
		b.WriteString(fmt.Sprintf("    %s BIGINT,\n", QuoteIdent("revision_id")))
	}
	if spec.Translatable {
		b.WriteString(fmt.Sprintf("    %s VARCHAR(12) NOT NULL DEFAULT 'und',\n", QuoteIdent("language")))
		b.WriteString(fmt.Sprintf("    %s BIGINT,\n", QuoteIdent("translation_of")))
	}

	b.WriteString(fmt.Sprintf("    %s TIMESTAMPTZ NOT NULL DEFAULT now(),\n", QuoteIdent("created_at")))
	b.WriteString(fmt.Sprintf("    %s TIMESTAMPTZ NOT NULL DEFAULT now()\n", QuoteIdent("updated_at")))
	b.WriteString(");\n")

	if spec.Publishable {
		writeIndex(&b, spec.Name, "status")
	}
	writeIndex(&b, spec.Name, "created_at")
	if spec.HasAuthor {
		writeIndex(&b, spec.Name, "author_id")
	}
	if spec.Translatable {
		writeIndex(&b, spec.Name, "language")
	}

	return b.String()
}

// columnDef builds a custom-field column definition. Custom columns are
// always nullable: required is a write-time rule, not a storage constraint,
// so attaching a required field to a populated table never fails.
func columnDef(d field.Definition) string {
	return QuoteIdent(d.Identifier()) + " " + ColumnType(d)
}

func writeIndex(b *strings.Builder, table, column string) {
	b.WriteString(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);\n",
		QuoteIdent("idx_"+table+"_"+column), QuoteIdent(table), QuoteIdent(column)))
}

// GenerateAddColumn emits the ALTER TABLE ADD COLUMN statement for a newly
// attached field.
func GenerateAddColumn(table string, d field.Definition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", QuoteIdent(table), columnDef(d))
}

// GenerateDropColumn emits the ALTER TABLE DROP COLUMN statement for a
// detached field.
func GenerateDropColumn(table, identifier string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", QuoteIdent(table), QuoteIdent(identifier))
}

// GenerateDropTable emits the DROP TABLE statement used when a database-
// defined type is deleted with table removal requested.
func GenerateDropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", QuoteIdent(table))
}
