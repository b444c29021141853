package registry

import (
	"fmt"
	"sync"

	"github.com/lc/nextconf/pkg/value"
)

// Step upgrades a config document by exactly one schema version.
type Step struct {
	// From is the version this step upgrades from; the result is From+1.
	From uint32
	// Transform rewrites the generic document (adding, removing or renaming
	// fields, changing types). It must be deterministic and side-effect free.
	Transform func(value.Value) (value.Value, error)
}

// Migrations is the registry of migration steps, keyed by (type ID, from
// version). At most one step may exist per pair; the chain from any stored
// version to the current one is therefore unique.
type Migrations struct {
	mu    sync.RWMutex
	steps map[string]map[uint32]Step
}

// NewMigrations creates an empty migration registry.
func NewMigrations() *Migrations {
	return &Migrations{steps: make(map[string]map[uint32]Step)}
}

// Register inserts a step for the given type. It fails with
// ErrDuplicateMigration if the (type, from-version) pair already exists.
func (m *Migrations) Register(typeID string, s Step) error {
	switch {
	case typeID == "":
		return fmt.Errorf("%w: empty type id", ErrInvalidDescriptor)
	case s.From == 0:
		return fmt.Errorf("%w: %q migration from-version must be >= 1", ErrInvalidDescriptor, typeID)
	case s.Transform == nil:
		return fmt.Errorf("%w: %q migration from %d has no transform", ErrInvalidDescriptor, typeID, s.From)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byFrom := m.steps[typeID]
	if byFrom == nil {
		byFrom = make(map[uint32]Step)
		m.steps[typeID] = byFrom
	}
	if _, ok := byFrom[s.From]; ok {
		return fmt.Errorf("%w: %q from version %d", ErrDuplicateMigration, typeID, s.From)
	}
	byFrom[s.From] = s
	return nil
}

// Chain resolves the ordered sequence of steps that upgrades typeID from
// stored to target.
//
// An equal stored and target version yields an empty chain. A stored version
// beyond target fails with ErrFutureVersion; files written by newer code are
// never downgraded. Otherwise the chain is the contiguous walk stored,
// stored+1, ..., target-1; any gap fails with MissingMigrationError naming
// the version with no registered step. A missing step is never treated as
// "no change needed".
func (m *Migrations) Chain(typeID string, stored, target uint32) ([]Step, error) {
	if stored == target {
		return nil, nil
	}
	if stored > target {
		return nil, fmt.Errorf("%w: %q stored %d, current %d", ErrFutureVersion, typeID, stored, target)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	byFrom := m.steps[typeID]
	chain := make([]Step, 0, target-stored)
	for v := stored; v < target; v++ {
		s, ok := byFrom[v]
		if !ok {
			return nil, &MissingMigrationError{TypeID: typeID, From: v}
		}
		chain = append(chain, s)
	}
	return chain, nil
}
