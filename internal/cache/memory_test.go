package cache

import (
	"context"
	"testing"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}

	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want v", v, ok, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get(k) hit after Delete")
	}
}

func TestMemory_InvalidateTag(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Set(ctx, "a", []byte("1"), "types")
	_ = m.Set(ctx, "b", []byte("2"), "types")
	_ = m.Set(ctx, "c", []byte("3"), "other")

	if err := m.InvalidateTag(ctx, "types"); err != nil {
		t.Fatalf("InvalidateTag: %v", err)
	}

	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("tagged key a survived tag invalidation")
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("tagged key b survived tag invalidation")
	}
	if _, ok, _ := m.Get(ctx, "c"); !ok {
		t.Error("unrelated key c was invalidated")
	}
}

func TestInvalidate_PrefersTagCapability(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Set(ctx, "a", []byte("1"), "types")
	_ = m.Set(ctx, "b", []byte("2"), "types")

	// Memory implements TagInvalidator, so both tagged keys must go.
	if err := Invalidate(ctx, m, "a", "types"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("Invalidate fell back to single-key delete despite tag support")
	}
}

func TestInvalidate_FallsBackToKeyDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Set(ctx, "a", []byte("1"), "types")
	_ = m.Set(ctx, "b", []byte("2"), "types")

	if err := Invalidate(ctx, storeWithoutTags{m}, "a", "types"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("key a survived fallback delete")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Error("key b was cleared even though the store has no tag support")
	}
}

// storeWithoutTags narrows Memory to the plain Store interface so the
// capability check in Invalidate fails.
type storeWithoutTags struct{ m *Memory }

func (s storeWithoutTags) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.m.Get(ctx, key)
}
func (s storeWithoutTags) Set(ctx context.Context, key string, value []byte, tags ...string) error {
	return s.m.Set(ctx, key, value, tags...)
}
func (s storeWithoutTags) Delete(ctx context.Context, key string) error {
	return s.m.Delete(ctx, key)
}
