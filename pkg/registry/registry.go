// Package registry tracks the config types a process manages and the
// migration steps that evolve their on-disk schema.
//
// Both registries are plain owned values with an explicit lifecycle: populate
// them during startup, pass them to the config store, and treat them as
// read-only afterwards. There is no hidden global state and no link-time
// collection magic; each config module registers itself from an ordinary
// initialization function.
package registry

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/lc/nextconf/pkg/value"
)

// Descriptor is the type-erased metadata for one registered config type.
// Descriptors are immutable after registration.
type Descriptor struct {
	// TypeID uniquely and stably identifies the config type.
	TypeID string
	// GoType is the concrete Go type behind the descriptor.
	GoType reflect.Type
	// Version is the current schema version, starting at 1.
	Version uint32
	// FileName is the file's path relative to the store's root directory.
	FileName string
	// New constructs the default value, used when no backing file exists.
	New func() any
	// Decode converts a generic value into the typed representation.
	Decode func(value.Value) (any, error)
	// Encode converts the typed representation into a generic value.
	Encode func(any) (value.Value, error)
}

// Types is the registry of config descriptors, keyed both by type ID and by
// Go type. Registration order is preserved; the store loads in that order.
type Types struct {
	mu    sync.RWMutex
	byID  map[string]*Descriptor
	byGo  map[reflect.Type]*Descriptor
	order []string
}

// NewTypes creates an empty type registry.
func NewTypes() *Types {
	return &Types{
		byID: make(map[string]*Descriptor),
		byGo: make(map[reflect.Type]*Descriptor),
	}
}

// Register inserts a descriptor. It fails with ErrDuplicateType if either
// the type ID or the Go type is already present, and with
// ErrInvalidDescriptor if required fields are missing or malformed.
func (t *Types) Register(d Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[d.TypeID]; ok {
		return fmt.Errorf("%w: id %q", ErrDuplicateType, d.TypeID)
	}
	if prev, ok := t.byGo[d.GoType]; ok {
		return fmt.Errorf("%w: %s already registered as %q", ErrDuplicateType, d.GoType, prev.TypeID)
	}

	cp := d
	t.byID[d.TypeID] = &cp
	t.byGo[d.GoType] = &cp
	t.order = append(t.order, d.TypeID)
	return nil
}

// Lookup returns the descriptor for a type ID.
func (t *Types) Lookup(typeID string) (*Descriptor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d, ok := t.byID[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrUnknownType, typeID)
	}
	return d, nil
}

// LookupGoType returns the descriptor registered for a concrete Go type.
func (t *Types) LookupGoType(rt reflect.Type) (*Descriptor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d, ok := t.byGo[rt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, rt)
	}
	return d, nil
}

// All returns the descriptors in registration order.
func (t *Types) All() []*Descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Descriptor, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// Len returns the number of registered types.
func (t *Types) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

func validateDescriptor(d Descriptor) error {
	switch {
	case d.TypeID == "":
		return fmt.Errorf("%w: empty type id", ErrInvalidDescriptor)
	case d.Version == 0:
		return fmt.Errorf("%w: %q version must be >= 1", ErrInvalidDescriptor, d.TypeID)
	case d.FileName == "":
		return fmt.Errorf("%w: %q has no file name", ErrInvalidDescriptor, d.TypeID)
	case filepath.IsAbs(d.FileName):
		return fmt.Errorf("%w: %q file name must be relative", ErrInvalidDescriptor, d.TypeID)
	case d.GoType == nil:
		return fmt.Errorf("%w: %q has no Go type", ErrInvalidDescriptor, d.TypeID)
	case d.New == nil || d.Decode == nil || d.Encode == nil:
		return fmt.Errorf("%w: %q missing constructor or codec functions", ErrInvalidDescriptor, d.TypeID)
	}
	return nil
}

// Config describes one config type for registration. TypeID, Version and
// FileName are required. Default, Decode and Encode are optional: Default
// falls back to the zero value, Decode and Encode to the yaml-based
// value.As / value.From glue.
type Config[T any] struct {
	TypeID   string
	Version  uint32
	FileName string
	Default  func() T
	Decode   func(value.Value) (T, error)
	Encode   func(T) (value.Value, error)
}

// Register erases a typed Config into a Descriptor and registers it.
// Call it once per config type during startup, before the store loads.
func Register[T any](r *Types, cfg Config[T]) error {
	newFn := func() any {
		if cfg.Default != nil {
			return cfg.Default()
		}
		var zero T
		return zero
	}
	decode := func(v value.Value) (any, error) {
		if cfg.Decode != nil {
			return cfg.Decode(v)
		}
		return value.As[T](v)
	}
	encode := func(x any) (value.Value, error) {
		t, ok := x.(T)
		if !ok {
			return value.Nil(), fmt.Errorf("encode: expected %T, got %T", t, x)
		}
		if cfg.Encode != nil {
			return cfg.Encode(t)
		}
		return value.From(t)
	}

	return r.Register(Descriptor{
		TypeID:   cfg.TypeID,
		GoType:   reflect.TypeOf((*T)(nil)).Elem(),
		Version:  cfg.Version,
		FileName: cfg.FileName,
		New:      newFn,
		Decode:   decode,
		Encode:   encode,
	})
}
