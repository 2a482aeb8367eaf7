// Package cache provides the key/value cache abstraction the type managers
// use to avoid re-reading type and field metadata on every request. The
// backend is a soft dependency: tag-based bulk invalidation is an optional
// capability detected at construction time, never by catching errors at
// call sites.
package cache

import "context"

// Store is the minimal cache contract. A miss is reported via the second
// return value, not an error; errors mean the backend itself is unhealthy.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value and associates it with zero or more tags for
	// later bulk invalidation, if the backend supports tags.
	Set(ctx context.Context, key string, value []byte, tags ...string) error
	Delete(ctx context.Context, key string) error
}

// TagInvalidator is the optional capability of clearing every key that was
// stored under a tag.
type TagInvalidator interface {
	InvalidateTag(ctx context.Context, tag string) error
}

// Invalidate clears a cached entry, using tag invalidation when the store
// supports it and falling back to a single-key delete otherwise.
func Invalidate(ctx context.Context, s Store, key, tag string) error {
	if ti, ok := s.(TagInvalidator); ok && tag != "" {
		return ti.InvalidateTag(ctx, tag)
	}
	return s.Delete(ctx, key)
}
