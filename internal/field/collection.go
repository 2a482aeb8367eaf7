package field

import (
	"fmt"
	"sort"
)

// NotFoundError is returned by GetOrFail when an identifier is absent from
// the collection, so callers can choose fail-fast over optional lookup.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.Identifier)
}

// Collection is an ordered, identifier-keyed set of field definitions.
// Construction preserves insertion order; every mutator returns a new
// collection and never changes the receiver.
type Collection struct {
	order []string
	byID  map[string]Definition
}

// NewCollection builds a collection from the given definitions in order.
// A repeated identifier replaces the earlier definition but keeps its
// original position, so identifiers stay unique.
func NewCollection(defs ...Definition) *Collection {
	c := &Collection{byID: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, exists := c.byID[d.identifier]; !exists {
			c.order = append(c.order, d.identifier)
		}
		c.byID[d.identifier] = d
	}
	return c
}

// Count returns the number of fields in the collection.
func (c *Collection) Count() int { return len(c.order) }

// Has reports whether a field with the given identifier exists.
func (c *Collection) Has(identifier string) bool {
	_, ok := c.byID[identifier]
	return ok
}

// Get returns the field with the given identifier, if present.
func (c *Collection) Get(identifier string) (Definition, bool) {
	d, ok := c.byID[identifier]
	return d, ok
}

// GetOrFail returns the field with the given identifier or a *NotFoundError.
func (c *Collection) GetOrFail(identifier string) (Definition, error) {
	d, ok := c.byID[identifier]
	if !ok {
		return Definition{}, &NotFoundError{Identifier: identifier}
	}
	return d, nil
}

// All returns the definitions in collection order. The returned slice is
// freshly allocated; mutating it does not affect the collection.
func (c *Collection) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Identifiers returns the field identifiers in collection order.
func (c *Collection) Identifiers() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Add returns a new collection with the definition appended (or replaced in
// place when the identifier already exists).
func (c *Collection) Add(d Definition) *Collection {
	n := c.clone()
	if _, exists := n.byID[d.identifier]; !exists {
		n.order = append(n.order, d.identifier)
	}
	n.byID[d.identifier] = d
	return n
}

// Remove returns a new collection without the given identifier. Removing an
// absent identifier returns an equivalent collection.
func (c *Collection) Remove(identifier string) *Collection {
	n := &Collection{byID: make(map[string]Definition, len(c.byID))}
	for _, id := range c.order {
		if id == identifier {
			continue
		}
		n.order = append(n.order, id)
		n.byID[id] = c.byID[id]
	}
	return n
}

// Merge returns a new collection containing the receiver's fields followed
// by other's; on identifier collision other's definition wins but keeps the
// receiver's position.
func (c *Collection) Merge(other *Collection) *Collection {
	n := c.clone()
	for _, id := range other.order {
		if _, exists := n.byID[id]; !exists {
			n.order = append(n.order, id)
		}
		n.byID[id] = other.byID[id]
	}
	return n
}

// Filter returns a new collection with only the fields the predicate keeps,
// preserving relative order.
func (c *Collection) Filter(keep func(Definition) bool) *Collection {
	n := &Collection{byID: make(map[string]Definition)}
	for _, id := range c.order {
		d := c.byID[id]
		if keep(d) {
			n.order = append(n.order, id)
			n.byID[id] = d
		}
	}
	return n
}

// FilterByType returns the fields of the given type.
func (c *Collection) FilterByType(t Type) *Collection {
	return c.Filter(func(d Definition) bool { return d.fieldType == t })
}

// Required returns only the required fields.
func (c *Collection) Required() *Collection {
	return c.Filter(func(d Definition) bool { return d.required })
}

// Searchable returns only the searchable fields.
func (c *Collection) Searchable() *Collection {
	return c.Filter(func(d Definition) bool { return d.searchable })
}

// Translatable returns only the translatable fields.
func (c *Collection) Translatable() *Collection {
	return c.Filter(func(d Definition) bool { return d.translatable })
}

// SortByWeight returns a new collection ordered by weight, ties broken by
// identifier.
func (c *Collection) SortByWeight() *Collection {
	return c.SortFunc(func(a, b Definition) bool {
		if a.weight != b.weight {
			return a.weight < b.weight
		}
		return a.identifier < b.identifier
	})
}

// SortByLabel returns a new collection ordered by display label.
func (c *Collection) SortByLabel() *Collection {
	return c.SortFunc(func(a, b Definition) bool { return a.label < b.label })
}

// SortFunc returns a new collection ordered by the given comparator.
func (c *Collection) SortFunc(less func(a, b Definition) bool) *Collection {
	defs := c.All()
	sort.SliceStable(defs, func(i, j int) bool { return less(defs[i], defs[j]) })
	return NewCollection(defs...)
}

// Group is one named bucket produced by the grouping operations.
type Group struct {
	Name   string
	Fields *Collection
}

// GroupBySetting buckets fields by the value of a settings key, defaulting
// to "General" when the key is absent. Bucket order is the insertion order
// of each group's first occurrence, not alphabetical.
func (c *Collection) GroupBySetting(key string) []Group {
	return c.groupBy(func(d Definition) string {
		if v, ok := d.Setting(key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
		return "General"
	})
}

// GroupByCategory buckets fields by their type category using the fixed
// display-category names.
func (c *Collection) GroupByCategory() []Group {
	return c.groupBy(func(d Definition) string {
		return string(d.fieldType.CategoryOf())
	})
}

func (c *Collection) groupBy(keyOf func(Definition) string) []Group {
	var names []string
	buckets := make(map[string][]Definition)
	for _, id := range c.order {
		d := c.byID[id]
		k := keyOf(d)
		if _, seen := buckets[k]; !seen {
			names = append(names, k)
		}
		buckets[k] = append(buckets[k], d)
	}

	groups := make([]Group, len(names))
	for i, name := range names {
		groups[i] = Group{Name: name, Fields: NewCollection(buckets[name]...)}
	}
	return groups
}

// Map applies fn to every field in order and returns the results.
func (c *Collection) Map(fn func(Definition) any) []any {
	out := make([]any, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, fn(c.byID[id]))
	}
	return out
}

// Find returns the first field matching the predicate.
func (c *Collection) Find(match func(Definition) bool) (Definition, bool) {
	for _, id := range c.order {
		if d := c.byID[id]; match(d) {
			return d, true
		}
	}
	return Definition{}, false
}

// Any reports whether at least one field matches the predicate.
func (c *Collection) Any(match func(Definition) bool) bool {
	_, ok := c.Find(match)
	return ok
}

// Every reports whether all fields match the predicate. An empty collection
// reports true.
func (c *Collection) Every(match func(Definition) bool) bool {
	for _, id := range c.order {
		if !match(c.byID[id]) {
			return false
		}
	}
	return true
}

// Records returns the persisted form of every field in collection order.
func (c *Collection) Records() ([]Record, error) {
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		rec, err := c.byID[id].ToRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection) clone() *Collection {
	n := &Collection{
		order: make([]string, len(c.order)),
		byID:  make(map[string]Definition, len(c.byID)),
	}
	copy(n.order, c.order)
	for k, v := range c.byID {
		n.byID[k] = v
	}
	return n
}
