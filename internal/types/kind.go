// Package types implements the generalized type manager: the merged
// registry of code-defined and database-defined content and block types,
// field attach/detach with schema synchronization, and the metadata
// persistence behind it.
package types

// Kind parameterizes the manager over the two type families. Content types
// and block types share all behavior; only table names, the physical-table
// prefix, and cache addressing differ.
type Kind struct {
	// Name identifies the family in logs and cache keys.
	Name string

	// MetaTable holds the type registry rows.
	MetaTable string

	// FieldTable holds the field registry rows, FK'd to MetaTable with
	// cascading delete.
	FieldTable string

	// TablePrefix prefixes each type's dynamic table name.
	TablePrefix string
}

// The two supported type families.
var (
	ContentTypes = Kind{
		Name:        "content",
		MetaTable:   "content_types",
		FieldTable:  "content_type_fields",
		TablePrefix: "ct_",
	}

	BlockTypes = Kind{
		Name:        "block",
		MetaTable:   "block_types",
		FieldTable:  "block_type_fields",
		TablePrefix: "bt_",
	}
)

// Table returns the physical table name for a type's machine name.
func (k Kind) Table(name string) string {
	return k.TablePrefix + name
}

// CacheKey is the cache entry holding this family's database-defined set.
func (k Kind) CacheKey() string {
	return "types:" + k.Name
}

// CacheTag groups every cache entry belonging to this family for bulk
// invalidation on backends that support tags.
func (k Kind) CacheTag() string {
	return "types:" + k.Name + ":all"
}
