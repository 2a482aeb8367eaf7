package field

import (
	"errors"
	"reflect"
	"testing"
)

// mustField builds a definition for collection tests, failing the test on
// invalid input.
func mustField(t *testing.T, label, ident, typeName string) Definition {
	t.Helper()
	d, err := New(label, ident, typeName)
	if err != nil {
		t.Fatalf("New(%q, %q, %q): %v", label, ident, typeName, err)
	}
	return d
}

func sampleCollection(t *testing.T) *Collection {
	t.Helper()
	return NewCollection(
		mustField(t, "Title Override", "heading", "string").WithWeight(2),
		mustField(t, "Price", "price", "decimal").WithRequired(true).WithWeight(1),
		mustField(t, "In Stock", "in_stock", "boolean").WithSetting("group", "Inventory"),
		mustField(t, "Photo", "photo", "image").WithSetting("group", "Media"),
		mustField(t, "Tags", "tags", "multiselect").WithSearchable(true),
	)
}

func TestCollection_OrderAndLookup(t *testing.T) {
	c := sampleCollection(t)

	if c.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", c.Count())
	}

	wantOrder := []string{"field_heading", "field_price", "field_in_stock", "field_photo", "field_tags"}
	if !reflect.DeepEqual(c.Identifiers(), wantOrder) {
		t.Errorf("Identifiers() = %v, want %v", c.Identifiers(), wantOrder)
	}

	if _, ok := c.Get("field_price"); !ok {
		t.Error("Get(field_price) reported missing")
	}
	if _, ok := c.Get("field_missing"); ok {
		t.Error("Get(field_missing) reported present")
	}
}

func TestCollection_GetOrFail(t *testing.T) {
	c := sampleCollection(t)

	if _, err := c.GetOrFail("field_price"); err != nil {
		t.Errorf("GetOrFail(field_price) returned error: %v", err)
	}

	_, err := c.GetOrFail("field_ghost")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("GetOrFail(field_ghost) error = %v, want *NotFoundError", err)
	}
	if nf.Identifier != "field_ghost" {
		t.Errorf("NotFoundError.Identifier = %q, want field_ghost", nf.Identifier)
	}
}

func TestCollection_MutatorsReturnNewCollections(t *testing.T) {
	c := sampleCollection(t)
	before := c.Identifiers()

	_ = c.Add(mustField(t, "Extra", "extra", "string"))
	_ = c.Remove("field_price")
	_ = c.Filter(func(d Definition) bool { return d.Required() })
	_ = c.SortByWeight()

	if !reflect.DeepEqual(c.Identifiers(), before) {
		t.Error("a mutator changed the original collection")
	}
}

func TestCollection_AddReplaceKeepsPosition(t *testing.T) {
	c := sampleCollection(t)
	replacement := mustField(t, "Unit Price", "price", "decimal")

	n := c.Add(replacement)
	if n.Count() != c.Count() {
		t.Fatalf("replace changed count: %d != %d", n.Count(), c.Count())
	}
	if n.Identifiers()[1] != "field_price" {
		t.Errorf("replaced field moved to position %v", n.Identifiers())
	}
	got, _ := n.Get("field_price")
	if got.Label() != "Unit Price" {
		t.Errorf("replaced label = %q, want Unit Price", got.Label())
	}
}

func TestCollection_FilterAndPredicates(t *testing.T) {
	c := sampleCollection(t)

	req := c.Required()
	if req.Count() != 1 || !req.Has("field_price") {
		t.Errorf("Required() = %v, want just field_price", req.Identifiers())
	}

	se := c.Searchable()
	if se.Count() != 1 || !se.Has("field_tags") {
		t.Errorf("Searchable() = %v, want just field_tags", se.Identifiers())
	}

	bools := c.FilterByType(TypeBoolean)
	if bools.Count() != 1 || !bools.Has("field_in_stock") {
		t.Errorf("FilterByType(boolean) = %v, want just field_in_stock", bools.Identifiers())
	}

	if !c.Any(func(d Definition) bool { return d.FieldType().IsMedia() }) {
		t.Error("Any(IsMedia) = false, want true")
	}
	if c.Every(func(d Definition) bool { return d.Required() }) {
		t.Error("Every(Required) = true, want false")
	}
}

func TestCollection_SortByWeight_TiesBrokenByIdentifier(t *testing.T) {
	c := NewCollection(
		mustField(t, "B", "bbb", "string").WithWeight(1),
		mustField(t, "A", "aaa", "string").WithWeight(1),
		mustField(t, "C", "ccc", "string").WithWeight(0),
	)

	got := c.SortByWeight().Identifiers()
	want := []string{"field_ccc", "field_aaa", "field_bbb"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortByWeight() order = %v, want %v", got, want)
	}
}

func TestCollection_GroupBySetting(t *testing.T) {
	c := sampleCollection(t)

	groups := c.GroupBySetting("group")

	// First occurrence order: General (heading), Inventory, Media.
	wantNames := []string{"General", "Inventory", "Media"}
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("group names = %v, want %v", names, wantNames)
	}

	if groups[0].Fields.Count() != 3 {
		t.Errorf("General group has %d fields, want 3", groups[0].Fields.Count())
	}
	if !groups[1].Fields.Has("field_in_stock") {
		t.Error("Inventory group missing field_in_stock")
	}
}

func TestCollection_GroupByCategory(t *testing.T) {
	c := sampleCollection(t)

	groups := c.GroupByCategory()

	byName := make(map[string]*Collection, len(groups))
	for _, g := range groups {
		byName[g.Name] = g.Fields
	}

	if sel, ok := byName["Selection"]; !ok || !sel.Has("field_in_stock") || !sel.Has("field_tags") {
		t.Errorf("Selection bucket wrong: %+v", byName)
	}
	if num, ok := byName["Number"]; !ok || !num.Has("field_price") {
		t.Errorf("Number bucket wrong: %+v", byName)
	}
	if med, ok := byName["Media"]; !ok || !med.Has("field_photo") {
		t.Errorf("Media bucket wrong: %+v", byName)
	}
}

func TestCollection_Merge(t *testing.T) {
	a := NewCollection(
		mustField(t, "One", "one", "string"),
		mustField(t, "Two", "two", "string"),
	)
	b := NewCollection(
		mustField(t, "Two Replaced", "two", "string"),
		mustField(t, "Three", "three", "string"),
	)

	m := a.Merge(b)

	want := []string{"field_one", "field_two", "field_three"}
	if !reflect.DeepEqual(m.Identifiers(), want) {
		t.Errorf("Merge order = %v, want %v", m.Identifiers(), want)
	}
	got, _ := m.Get("field_two")
	if got.Label() != "Two Replaced" {
		t.Errorf("Merge collision label = %q, want other side to win", got.Label())
	}
}
