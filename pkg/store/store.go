package store

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/lc/nextconf/internal/filesys"
	"github.com/lc/nextconf/internal/log"
	"github.com/lc/nextconf/pkg/codec"
	"github.com/lc/nextconf/pkg/registry"
	"github.com/lc/nextconf/pkg/value"
)

// VersionField is the reserved top-level key carrying the schema version of
// a persisted config document. It is rewritten on every save. A document
// without the field is treated as version 1 (pre-versioning files) unless
// the store is built with VersionRequired.
const VersionField = "_version"

const (
	_defaultFileMode = os.FileMode(0o644)
	_dirMode         = os.FileMode(0o755)
)

// Option configures a Store at construction time.
type Option func(*Store)

// WithCodec sets the on-disk encoding. The default is TOML.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithFS injects a file system implementation, mainly for tests.
func WithFS(fsys filesys.FS) Option {
	return func(s *Store) { s.fs = fsys }
}

// WithFileMode sets the mode for persisted config files. The default is 0644.
func WithFileMode(m os.FileMode) Option {
	return func(s *Store) { s.fileMode = m }
}

// WithVersionRequired makes a missing version field a load error instead of
// defaulting to version 1.
func WithVersionRequired() Option {
	return func(s *Store) { s.requireVersion = true }
}

// Store owns a config directory and the decoded, typed in-memory values of
// every registered config type. Each type has its own reader/writer lock:
// reads are shared, updates are exclusive, and distinct types never contend.
type Store struct {
	dir        string
	fs         filesys.FS
	codec      codec.Codec
	types      *registry.Types
	migrations *registry.Migrations

	fileMode       os.FileMode
	requireVersion bool

	entries map[string]*entry // keyed by type ID, fixed at construction

	loads      atomic.Int64
	migrated   atomic.Int64
	updates    atomic.Int64
	bootstraps atomic.Int64
}

// entry is the per-type cache cell.
type entry struct {
	mu     sync.RWMutex // guards fields below
	desc   *registry.Descriptor
	loaded bool
	val    any // the decoded typed value; concrete type is desc.GoType
}

// Stats is a snapshot of the store's operation counters.
type Stats struct {
	Loads      int64 // successful per-type loads
	Migrations int64 // migration steps applied
	Updates    int64 // successful updates
	Bootstraps int64 // defaults persisted for absent files
}

// New creates a store rooted at dir, creating the directory if absent.
// Every type registered in types gets an unloaded cache entry; call LoadAll
// before reading or updating. Registration must be complete before New.
func New(dir string, types *registry.Types, migrations *registry.Migrations, opts ...Option) (*Store, error) {
	s := &Store{
		dir:        dir,
		fs:         filesys.OS(),
		codec:      codec.TOML(),
		types:      types,
		migrations: migrations,
		fileMode:   _defaultFileMode,
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.fs.MkdirAll(dir, _dirMode); err != nil {
		return nil, fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	for _, d := range types.All() {
		s.entries[d.TypeID] = &entry{desc: d}
	}

	log.Debugf("store: initialized at %s with %d config types (%s)", dir, len(s.entries), s.codec.Name())
	return s, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Stats returns a snapshot of the operation counters.
func (s *Store) Stats() Stats {
	return Stats{
		Loads:      s.loads.Load(),
		Migrations: s.migrated.Load(),
		Updates:    s.updates.Load(),
		Bootstraps: s.bootstraps.Load(),
	}
}

// LoadAll loads every registered config type from disk, in registration
// order. Loading is all-or-nothing per type but independent across types:
// one type's failure never prevents the others from loading. The returned
// error aggregates every per-type failure, each naming the type and file.
//
// LoadAll is meant to run once at startup, before concurrent Get/Update
// traffic begins.
func (s *Store) LoadAll() error {
	run := uuid.NewString()
	log.Debugf("store: load run %s starting for %d types", run, len(s.entries))

	var errs error
	for _, d := range s.types.All() {
		e, ok := s.entries[d.TypeID]
		if !ok {
			err := fmt.Errorf("%w: %q registered after store construction", registry.ErrUnknownType, d.TypeID)
			log.Warnf("store: load run %s: %v", run, err)
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.load(e); err != nil {
			log.Warnf("store: load run %s: config %q (%s): %v", run, d.TypeID, s.path(d), err)
			errs = multierr.Append(errs, fmt.Errorf("config %q (%s): %w", d.TypeID, s.path(d), err))
		}
	}
	return errs
}

// load reads, migrates, decodes and caches one config type.
func (s *Store) load(e *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.desc
	path := s.path(d)

	data, err := s.fs.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s.bootstrap(e)
	case err != nil:
		return fmt.Errorf("reading config file: %w", err)
	}

	doc, err := s.codec.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	m, ok := doc.AsMap()
	if !ok {
		return fmt.Errorf("%w: document is a %s, expected a map", ErrParse, doc.Kind())
	}

	stored, err := s.storedVersion(m)
	if err != nil {
		return err
	}

	chain, err := s.migrations.Chain(d.TypeID, stored, d.Version)
	if err != nil {
		return err
	}

	if len(chain) > 0 {
		doc, err = s.runChain(d, doc, chain)
		if err != nil {
			return err
		}
	}

	val, err := d.Decode(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// Re-persist upgraded documents so the next load skips the chain.
	if len(chain) > 0 {
		m, _ = doc.AsMap()
		if err := s.persist(d, m); err != nil {
			return err
		}
		s.migrated.Add(int64(len(chain)))
		log.Infof("store: migrated config %q from version %d to %d", d.TypeID, stored, d.Version)
	}

	e.val = val
	e.loaded = true
	s.loads.Inc()
	log.Debugf("store: loaded config %q (version %d)", d.TypeID, d.Version)
	return nil
}

// bootstrap installs and persists the default value for a type whose backing
// file does not exist yet. Caller holds the entry lock.
func (s *Store) bootstrap(e *entry) error {
	d := e.desc
	val := d.New()

	doc, err := d.Encode(val)
	if err != nil {
		return fmt.Errorf("%w: default value: %v", ErrEncode, err)
	}
	m, ok := doc.AsMap()
	if !ok {
		return fmt.Errorf("%w: default value encoded as %s, expected a map", ErrEncode, doc.Kind())
	}
	if err := s.persist(d, m); err != nil {
		return err
	}

	e.val = val
	e.loaded = true
	s.loads.Inc()
	s.bootstraps.Inc()
	log.Infof("store: created config %q at %s with defaults (version %d)", d.TypeID, s.path(d), d.Version)
	return nil
}

// runChain applies the resolved migration steps in order. Before each step,
// top-level fields present in the encoded default value but absent from the
// document are filled in, so old files stay decodable as fields accrete.
func (s *Store) runChain(d *registry.Descriptor, doc value.Value, chain []registry.Step) (value.Value, error) {
	defDoc, err := d.Encode(d.New())
	if err != nil {
		return value.Nil(), fmt.Errorf("%w: default value: %v", ErrEncode, err)
	}
	defaults, _ := defDoc.AsMap()

	for _, step := range chain {
		if m, ok := doc.AsMap(); ok {
			mergeDefaults(m, defaults)
		}
		doc, err = step.Transform(doc)
		if err != nil {
			return value.Nil(), &MigrationError{TypeID: d.TypeID, From: step.From, Err: err}
		}
		if doc.Kind() != value.KindMap {
			return value.Nil(), &MigrationError{
				TypeID: d.TypeID,
				From:   step.From,
				Err:    fmt.Errorf("transform returned a %s, expected a map", doc.Kind()),
			}
		}
	}
	return doc, nil
}

// mergeDefaults inserts top-level default entries absent from m.
// Existing entries always win.
func mergeDefaults(m, defaults value.Map) {
	for k, v := range defaults {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
}

// storedVersion extracts the schema version from a parsed document.
func (s *Store) storedVersion(m value.Map) (uint32, error) {
	v, ok := m[VersionField]
	if !ok {
		if s.requireVersion {
			return 0, ErrMissingVersion
		}
		// Pre-versioning files are version 1 by convention.
		return 1, nil
	}
	// Bounds-check before narrowing: a version beyond uint32 must not
	// truncate into a small, accepted one.
	u, ok := v.AsUint()
	if !ok || u == 0 || u > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s is not a positive 32-bit integer", ErrParse, VersionField)
	}
	return uint32(u), nil
}

// persist writes a document to the type's backing file via an atomic
// temp-file-and-rename, stamping the current schema version.
func (s *Store) persist(d *registry.Descriptor, m value.Map) error {
	m[VersionField] = value.Uint(uint64(d.Version))

	data, err := s.codec.Marshal(value.MapOf(m))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := filesys.AtomicWrite(s.fs, s.path(d), data, s.fileMode); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Store) path(d *registry.Descriptor) string {
	return filepath.Join(s.dir, d.FileName)
}

// entryFor resolves the cache entry for a concrete Go type.
func (s *Store) entryFor(rt reflect.Type) (*entry, error) {
	d, err := s.types.LookupGoType(rt)
	if err != nil {
		return nil, err
	}
	e, ok := s.entries[d.TypeID]
	if !ok {
		// Registered after New; the store has no cell for it.
		return nil, fmt.Errorf("%w: %q registered after store construction", registry.ErrUnknownType, d.TypeID)
	}
	return e, nil
}

// clone deep-copies the cached value through the descriptor's codec pair, so
// callers can never alias the cache through slice or map fields.
// Caller holds at least a read lock on the entry.
func clone[T any](e *entry) (T, error) {
	var zero T
	doc, err := e.desc.Encode(e.val)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	cp, err := e.desc.Decode(doc)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	t, ok := cp.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T", ErrTypeMismatch, e.desc.TypeID, e.val)
	}
	return t, nil
}
