package field

import (
	"errors"
	"testing"
)

func TestClassify_AllValidNames(t *testing.T) {
	for _, ft := range AllTypes() {
		t.Run(string(ft), func(t *testing.T) {
			got, err := Classify(string(ft))
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", ft, err)
			}
			if got != ft {
				t.Errorf("Classify(%q) = %q, want %q", ft, got, ft)
			}
		})
	}
}

func TestClassify_UnknownName(t *testing.T) {
	for _, name := range []string{"", "varchar", "STRING", "rich_text", "blob"} {
		t.Run(name, func(t *testing.T) {
			_, err := Classify(name)
			if !errors.Is(err, ErrUnknownType) {
				t.Errorf("Classify(%q) error = %v, want ErrUnknownType", name, err)
			}
		})
	}
}

func TestCategoryPredicates_MutuallyExclusive(t *testing.T) {
	for _, ft := range AllTypes() {
		t.Run(string(ft), func(t *testing.T) {
			preds := []bool{
				ft.IsText(), ft.IsNumeric(), ft.IsSelection(),
				ft.IsDate(), ft.IsMedia(), ft.IsReference(),
			}
			trueCount := 0
			for _, p := range preds {
				if p {
					trueCount++
				}
			}
			if trueCount > 1 {
				t.Errorf("%q matches %d category predicates, want at most 1", ft, trueCount)
			}
			if trueCount == 0 && ft.CategoryOf() != CategoryOther {
				t.Errorf("%q matches no predicate but category is %q, want Other", ft, ft.CategoryOf())
			}
		})
	}
}

func TestBooleanIsSelection(t *testing.T) {
	if !TypeBoolean.IsSelection() {
		t.Error("boolean must classify as a selection type")
	}
	if TypeBoolean.IsNumeric() {
		t.Error("boolean must not classify as numeric")
	}
}

func TestCategoryOf_UnknownFallsBackToOther(t *testing.T) {
	if got := Type("bogus").CategoryOf(); got != CategoryOther {
		t.Errorf("CategoryOf(bogus) = %q, want %q", got, CategoryOther)
	}
}
