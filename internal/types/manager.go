package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/monkeyscms/monkeys/internal/cache"
	"github.com/monkeyscms/monkeys/internal/field"
	"github.com/monkeyscms/monkeys/internal/schema"
)

// Manager errors.
var (
	ErrNotFound        = errors.New("type not found")
	ErrDuplicateType   = errors.New("type name already in use")
	ErrDuplicateField  = errors.New("field identifier already attached")
	ErrImmutableType   = errors.New("code-defined types cannot be modified through the API")
	ErrSystemProtected = errors.New("system types cannot be deleted")
)

// MetadataStore persists type and field registry rows. *Repository is the
// production implementation.
type MetadataStore interface {
	ListTypes(ctx context.Context) ([]Record, error)
	InsertType(ctx context.Context, rec Record) (Record, error)
	UpdateType(ctx context.Context, rec Record) (Record, error)
	DeleteType(ctx context.Context, id int64) error
	ListFields(ctx context.Context) (map[int64][]field.Record, error)
	InsertField(ctx context.Context, rec field.Record) (field.Record, error)
	DeleteField(ctx context.Context, typeID int64, identifier string) error
}

// DDL keeps each type's dynamic table in step with its definition.
// *schema.Executor is the production implementation.
type DDL interface {
	CreateTable(ctx context.Context, spec schema.TableSpec) error
	AddColumn(ctx context.Context, table string, d field.Definition) error
	DropColumn(ctx context.Context, table, identifier string) error
	DropTable(ctx context.Context, table string) error
}

// Manager is the merged registry for one type family. Code-defined types
// are registered at boot and served as-is; database-defined types load
// lazily from the metadata store through the cache and reload after every
// mutation. All reads return clones, so callers can never corrupt the
// registry.
type Manager struct {
	kind  Kind
	store MetadataStore
	ddl   DDL
	cache cache.Store

	mu          sync.RWMutex
	initialized bool
	code        map[string]*Definition
	db          map[string]*Definition
}

// NewManager creates a Manager for the given kind. cache may be nil when
// no caching layer is configured.
func NewManager(kind Kind, store MetadataStore, ddl DDL, c cache.Store) *Manager {
	return &Manager{
		kind:  kind,
		store: store,
		ddl:   ddl,
		cache: c,
		code:  make(map[string]*Definition),
		db:    make(map[string]*Definition),
	}
}

// Kind returns the type family this manager serves.
func (m *Manager) Kind() Kind { return m.kind }

// RegisterCode adds code-defined types to the registry. It is called at
// boot, before any reads; registering the same name twice is a programming
// error and fails.
func (m *Manager) RegisterCode(defs ...*Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range defs {
		if err := ValidateName(d.Name); err != nil {
			return fmt.Errorf("code-defined %s type %q: %w", m.kind.Name, d.Name, err)
		}
		if _, exists := m.code[d.Name]; exists {
			return fmt.Errorf("code-defined %s type %q: %w", m.kind.Name, d.Name, ErrDuplicateType)
		}
		c := d.clone()
		c.Source = SourceCode
		if c.Fields == nil {
			c.Fields = field.NewCollection()
		}
		m.code[d.Name] = c
	}
	return nil
}

// SyncCodeTables ensures every code-defined type's dynamic table exists
// with all declared columns. Creation is idempotent, so boot can call this
// unconditionally.
func (m *Manager) SyncCodeTables(ctx context.Context) error {
	m.mu.RLock()
	defs := make([]*Definition, 0, len(m.code))
	for _, d := range m.code {
		defs = append(defs, d)
	}
	m.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	for _, d := range defs {
		if err := m.ddl.CreateTable(ctx, d.TableSpec(m.kind)); err != nil {
			return err
		}
		// Columns declared after the table first shipped.
		table := d.Table(m.kind)
		for _, f := range d.Fields.All() {
			if err := m.ddl.AddColumn(ctx, table, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetTypes returns every known type of the kind, code-defined and
// database-defined merged, sorted by label. When both sources
// claim a name the code definition wins and the shadowed row is logged.
func (m *Manager) GetTypes(ctx context.Context) ([]*Definition, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := make([]*Definition, 0, len(m.code)+len(m.db))
	for name, d := range m.db {
		if _, shadowed := m.code[name]; shadowed {
			slog.Warn("database-defined type shadowed by code definition",
				"kind", m.kind.Name, "type", name)
			continue
		}
		merged = append(merged, d.clone())
	}
	for _, d := range m.code {
		merged = append(merged, d.clone())
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Label != merged[j].Label {
			return merged[i].Label < merged[j].Label
		}
		return merged[i].Name < merged[j].Name
	})
	return merged, nil
}

// GetType returns one type by machine name, or ErrNotFound.
func (m *Manager) GetType(ctx context.Context, name string) (*Definition, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if d, ok := m.code[name]; ok {
		return d.clone(), nil
	}
	if d, ok := m.db[name]; ok {
		return d.clone(), nil
	}
	return nil, fmt.Errorf("%s type %q: %w", m.kind.Name, name, ErrNotFound)
}

// CreateDatabaseType persists a new database-defined type, attaches its
// initial fields, and creates the backing table. The draft's Name may be
// empty, in which case it is derived from the label. The name must not
// collide with any existing type of either source.
func (m *Manager) CreateDatabaseType(ctx context.Context, draft *Definition) (*Definition, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if draft.Label == "" {
		return nil, ErrEmptyLabel
	}

	name := draft.Name
	if name == "" {
		name = NormalizeName(draft.Label)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	_, inCode := m.code[name]
	_, inDB := m.db[name]
	m.mu.RUnlock()
	if inCode || inDB {
		return nil, fmt.Errorf("%s type %q: %w", m.kind.Name, name, ErrDuplicateType)
	}

	def := draft.clone()
	def.Name = name
	def.Source = SourceDatabase

	rec, err := def.ToRecord()
	if err != nil {
		return nil, err
	}
	stored, err := m.store.InsertType(ctx, rec)
	if err != nil {
		return nil, err
	}
	// The store now holds the row; the registry and cache must be
	// re-derived from it even if a later step fails partway.
	defer m.invalidate(ctx)

	fields := field.NewCollection()
	if def.Fields != nil {
		for _, f := range def.Fields.All() {
			fr, err := f.WithTypeID(stored.ID).ToRecord()
			if err != nil {
				return nil, err
			}
			saved, err := m.store.InsertField(ctx, fr)
			if err != nil {
				return nil, err
			}
			d, err := field.FromRecord(saved)
			if err != nil {
				return nil, err
			}
			fields = fields.Add(d)
		}
	}

	created, err := FromRecord(stored, fields)
	if err != nil {
		return nil, err
	}
	if err := m.ddl.CreateTable(ctx, created.TableSpec(m.kind)); err != nil {
		return nil, err
	}
	return created, nil
}

// TypeUpdate is a partial update of a database-defined type. Nil pointers
// leave the column unchanged; the machine name is not updatable.
type TypeUpdate struct {
	Label       *string
	LabelPlural *string
	Description *string
	Icon        *string
	Weight      *int
	Settings    map[string]any
}

// UpdateDatabaseType patches a database-defined type's metadata.
// Code-defined types are rejected with ErrImmutableType, system-flagged
// rows with ErrSystemProtected.
func (m *Manager) UpdateDatabaseType(ctx context.Context, name string, upd TypeUpdate) (*Definition, error) {
	existing, err := m.requireDatabaseType(ctx, name)
	if err != nil {
		return nil, err
	}

	if upd.Label != nil {
		if *upd.Label == "" {
			return nil, ErrEmptyLabel
		}
		existing.Label = *upd.Label
	}
	if upd.LabelPlural != nil {
		existing.LabelPlural = *upd.LabelPlural
	}
	if upd.Description != nil {
		existing.Description = *upd.Description
	}
	if upd.Icon != nil {
		existing.Icon = *upd.Icon
	}
	if upd.Weight != nil {
		existing.Weight = *upd.Weight
	}
	if upd.Settings != nil {
		existing.Settings = upd.Settings
	}
	existing.UpdatedAt = time.Now().UTC()

	rec, err := existing.ToRecord()
	if err != nil {
		return nil, err
	}
	stored, err := m.store.UpdateType(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer m.invalidate(ctx)

	return FromRecord(stored, existing.Fields)
}

// DeleteDatabaseType removes a database-defined type's registry rows and,
// when dropTable is set, its backing table and data. System-flagged types
// cannot be deleted.
func (m *Manager) DeleteDatabaseType(ctx context.Context, name string, dropTable bool) error {
	existing, err := m.requireDatabaseType(ctx, name)
	if err != nil {
		return err
	}

	if err := m.store.DeleteType(ctx, existing.ID); err != nil {
		return err
	}
	// The row is gone; the next read must re-derive from the store even
	// when the table drop fails.
	defer m.invalidate(ctx)

	if dropTable {
		if err := m.ddl.DropTable(ctx, existing.Table(m.kind)); err != nil {
			return err
		}
	}
	return nil
}

// AttachField adds a field to a database-defined type: a registry row plus
// a column on the backing table.
func (m *Manager) AttachField(ctx context.Context, name string, d field.Definition) (field.Definition, error) {
	existing, err := m.requireDatabaseType(ctx, name)
	if err != nil {
		return field.Definition{}, err
	}
	if existing.Fields.Has(d.Identifier()) {
		return field.Definition{}, fmt.Errorf("%s type %q, field %q: %w",
			m.kind.Name, name, d.Identifier(), ErrDuplicateField)
	}

	fr, err := d.WithTypeID(existing.ID).ToRecord()
	if err != nil {
		return field.Definition{}, err
	}
	saved, err := m.store.InsertField(ctx, fr)
	if err != nil {
		return field.Definition{}, err
	}
	// The field row is persisted; invalidate even if the column add fails
	// so reads pick the store back up.
	defer m.invalidate(ctx)

	attached, err := field.FromRecord(saved)
	if err != nil {
		return field.Definition{}, err
	}
	if err := m.ddl.AddColumn(ctx, existing.Table(m.kind), attached); err != nil {
		return field.Definition{}, err
	}
	return attached, nil
}

// DetachField removes a field from a database-defined type. The column is
// dropped only when dropColumn is set; otherwise the data is preserved
// for a later re-attach.
func (m *Manager) DetachField(ctx context.Context, name, identifier string, dropColumn bool) error {
	existing, err := m.requireDatabaseType(ctx, name)
	if err != nil {
		return err
	}
	d, err := existing.Fields.GetOrFail(identifier)
	if err != nil {
		return fmt.Errorf("%s type %q: %w", m.kind.Name, name, err)
	}

	if err := m.store.DeleteField(ctx, existing.ID, d.Identifier()); err != nil {
		return err
	}
	defer m.invalidate(ctx)

	if dropColumn {
		if err := m.ddl.DropColumn(ctx, existing.Table(m.kind), d.Identifier()); err != nil {
			return err
		}
	}
	return nil
}

// requireDatabaseType resolves name to a mutable, database-defined type
// clone. Code-defined names fail with ErrImmutableType; system-flagged
// rows fail with ErrSystemProtected.
func (m *Manager) requireDatabaseType(ctx context.Context, name string) (*Definition, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.code[name]; ok {
		return nil, fmt.Errorf("%s type %q: %w", m.kind.Name, name, ErrImmutableType)
	}
	if d, ok := m.db[name]; ok {
		if d.System {
			return nil, fmt.Errorf("%s type %q: %w", m.kind.Name, name, ErrSystemProtected)
		}
		return d.clone(), nil
	}
	return nil, fmt.Errorf("%s type %q: %w", m.kind.Name, name, ErrNotFound)
}

// registrySnapshot is the cache payload for one kind's database-defined
// set.
type registrySnapshot struct {
	Types  []Record                 `json:"types"`
	Fields map[int64][]field.Record `json:"fields"`
}

// ensureLoaded populates the database-defined map on first use and after
// every invalidation, preferring the cache over the metadata store.
func (m *Manager) ensureLoaded(ctx context.Context) error {
	m.mu.RLock()
	ready := m.initialized
	m.mu.RUnlock()
	if ready {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	snap, fromCache, err := m.loadSnapshot(ctx)
	if err != nil {
		return err
	}

	db := make(map[string]*Definition, len(snap.Types))
	for _, rec := range snap.Types {
		fields := field.NewCollection()
		for _, fr := range snap.Fields[rec.ID] {
			d, err := field.FromRecord(fr)
			if err != nil {
				return fmt.Errorf("%s type %q: %w", m.kind.Name, rec.Name, err)
			}
			fields = fields.Add(d)
		}
		def, err := FromRecord(rec, fields.SortByWeight())
		if err != nil {
			return err
		}
		db[def.Name] = def
	}

	m.db = db
	m.initialized = true
	if !fromCache {
		m.storeSnapshot(ctx, snap)
	}
	return nil
}

// loadSnapshot reads the kind's registry from cache, falling back to the
// metadata store on a miss. Cache read failures degrade to the store.
func (m *Manager) loadSnapshot(ctx context.Context) (registrySnapshot, bool, error) {
	var snap registrySnapshot

	if m.cache != nil {
		data, ok, err := m.cache.Get(ctx, m.kind.CacheKey())
		if err != nil {
			slog.Warn("type registry cache read failed",
				"kind", m.kind.Name, "error", err)
		} else if ok {
			if err := json.Unmarshal(data, &snap); err == nil {
				return snap, true, nil
			}
			slog.Warn("type registry cache entry corrupt, reloading",
				"kind", m.kind.Name)
		}
	}

	types, err := m.store.ListTypes(ctx)
	if err != nil {
		return registrySnapshot{}, false, err
	}
	fields, err := m.store.ListFields(ctx)
	if err != nil {
		return registrySnapshot{}, false, err
	}
	return registrySnapshot{Types: types, Fields: fields}, false, nil
}

// storeSnapshot writes the registry back to cache. Failures are logged,
// never fatal.
func (m *Manager) storeSnapshot(ctx context.Context, snap registrySnapshot) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Warn("encoding type registry for cache failed",
			"kind", m.kind.Name, "error", err)
		return
	}
	if err := m.cache.Set(ctx, m.kind.CacheKey(), data, m.kind.CacheTag()); err != nil {
		slog.Warn("type registry cache write failed",
			"kind", m.kind.Name, "error", err)
	}
}

// invalidate drops the cached registry and forces the next read to reload
// from the metadata store.
func (m *Manager) invalidate(ctx context.Context) {
	if m.cache != nil {
		if err := cache.Invalidate(ctx, m.cache, m.kind.CacheKey(), m.kind.CacheTag()); err != nil {
			slog.Warn("type registry cache invalidation failed",
				"kind", m.kind.Name, "error", err)
		}
	}
	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()
}
