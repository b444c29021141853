package store

import (
	"fmt"
	"reflect"
)

// Get returns a copy of the cached value for config type T.
//
// It fails with registry.ErrUnknownType if T was never registered, and with
// ErrNotLoaded if the type has not been loaded yet. The copy is deep (taken
// through the type's codec pair), so the caller can hold it indefinitely
// without aliasing the cache. Concurrent readers never block each other.
func Get[T any](s *Store) (T, error) {
	var zero T

	e, err := s.entryFor(goType[T]())
	if err != nil {
		return zero, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return zero, fmt.Errorf("%w: %q", ErrNotLoaded, e.desc.TypeID)
	}
	return clone[T](e)
}

// View runs fn with the cached value for T under the type's shared read
// lock. fn receives the value by copy and must not retain references derived
// from it past its return; use View when Get's deep copy is too expensive
// for a hot read path.
func View[T any](s *Store, fn func(T) error) error {
	e, err := s.entryFor(goType[T]())
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return fmt.Errorf("%w: %q", ErrNotLoaded, e.desc.TypeID)
	}
	t, ok := e.val.(T)
	if !ok {
		return fmt.Errorf("%w: %q holds %T", ErrTypeMismatch, e.desc.TypeID, e.val)
	}
	return fn(t)
}

// Load loads (or reloads) the single config type T from disk, applying
// migrations exactly like LoadAll does for every type.
func Load[T any](s *Store) error {
	e, err := s.entryFor(goType[T]())
	if err != nil {
		return err
	}
	if err := s.load(e); err != nil {
		return fmt.Errorf("config %q (%s): %w", e.desc.TypeID, s.path(e.desc), err)
	}
	return nil
}

// Update applies mutate to config type T and persists the result.
//
// The entry's write lock is held for the whole call, so updates on the same
// type are fully serialized: mutate always observes the result of every
// update that completed before it. The mutator runs on a scratch copy; on
// any failure the cache and the backing file are left exactly as they were.
//
//   - mutate returns an error: reported as ErrUpdateFailed, nothing changes.
//   - encoding the result fails: reported as ErrEncode, nothing changes.
//   - persisting fails: reported as ErrPersist, the cache is NOT updated,
//     so file and cache never diverge.
//
// Only after the file is durably written is the new value committed to the
// cache. Updates across different config types are not transactional.
func Update[T any](s *Store, mutate func(*T) error) error {
	e, err := s.entryFor(goType[T]())
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return fmt.Errorf("%w: %q", ErrNotLoaded, e.desc.TypeID)
	}

	work, err := clone[T](e)
	if err != nil {
		return err
	}
	if err := mutate(&work); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	doc, err := e.desc.Encode(work)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	m, ok := doc.AsMap()
	if !ok {
		return fmt.Errorf("%w: encoded document is a %s, expected a map", ErrEncode, doc.Kind())
	}

	// Commit a value decoded fresh from the document, not work itself: the
	// mutator was handed &work and may retain references into it.
	committed, err := e.desc.Decode(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := s.persist(e.desc, m); err != nil {
		return err
	}

	e.val = committed
	s.updates.Inc()
	return nil
}

func goType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
