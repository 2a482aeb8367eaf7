package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// namePattern matches valid type machine names: lowercase letter followed
// by lowercase letters, digits, or underscores.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// nonAlnumRuns matches the character runs NormalizeName collapses to a
// single underscore when synthesizing a machine name from a label.
var nonAlnumRuns = regexp.MustCompile(`[^a-z0-9]+`)

// maxNameLength keeps prefixed table names inside PostgreSQL's 63-byte
// identifier limit ("ct_"/"bt_" prefix plus the name).
const maxNameLength = 59

// Validation errors for type metadata.
var (
	ErrEmptyLabel  = errors.New("type label must not be empty")
	ErrInvalidName = errors.New("invalid type machine name")
)

// sqlReservedWords are SQL keywords that must not be used as machine names
// because they would collide with SQL syntax in generated DDL.
var sqlReservedWords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"drop": true, "table": true, "create": true, "alter": true,
	"index": true, "where": true, "from": true, "join": true,
	"order": true, "group": true, "having": true, "limit": true,
	"offset": true, "union": true, "distinct": true, "and": true,
	"or": true, "not": true, "null": true, "true": true, "false": true,
	"in": true, "between": true, "like": true, "is": true, "exists": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"as": true, "on": true, "into": true, "values": true, "set": true,
	"primary": true, "foreign": true, "key": true, "check": true,
	"default": true, "cascade": true, "trigger": true, "user": true,
}

// NormalizeName synthesizes a machine name from free text: lowercased,
// non-alphanumeric runs collapsed to a single underscore, trimmed. The
// result still goes through ValidateName.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = nonAlnumRuns.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// ValidateName checks a machine name against the grammar, the length
// limit, and the reserved-word list.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidName, name, namePattern.String())
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, maxNameLength)
	}
	if sqlReservedWords[name] {
		return fmt.Errorf("%w: %q is a reserved SQL keyword", ErrInvalidName, name)
	}
	return nil
}
