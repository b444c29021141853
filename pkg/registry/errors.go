package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateType is returned when a type ID or Go type is registered twice.
	ErrDuplicateType = errors.New("config type already registered")
	// ErrUnknownType is returned when looking up a type that was never registered.
	ErrUnknownType = errors.New("config type not registered")
	// ErrDuplicateMigration is returned when a (type, from-version) pair is registered twice.
	ErrDuplicateMigration = errors.New("migration already registered")
	// ErrFutureVersion is returned when a stored version exceeds the current
	// code version. Configs are never silently downgraded.
	ErrFutureVersion = errors.New("stored version is newer than current version")
	// ErrInvalidDescriptor is returned when a descriptor or migration step
	// fails basic validation at registration time.
	ErrInvalidDescriptor = errors.New("invalid registration")
)

// MissingMigrationError reports a gap in a migration chain: the type has no
// registered step upgrading from the named version.
type MissingMigrationError struct {
	TypeID string
	From   uint32
}

func (e *MissingMigrationError) Error() string {
	return fmt.Sprintf("config %q has no migration from version %d", e.TypeID, e.From)
}
