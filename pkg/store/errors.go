package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned when accessing a registered type before it
	// has been loaded.
	ErrNotLoaded = errors.New("config not loaded")
	// ErrTypeMismatch is returned when the cached value does not match the
	// requested Go type.
	ErrTypeMismatch = errors.New("cached config type mismatch")
	// ErrParse is returned when a config file cannot be parsed.
	ErrParse = errors.New("malformed config file")
	// ErrMissingVersion is returned when the version field is absent and the
	// store was built with VersionRequired.
	ErrMissingVersion = errors.New("config file missing version field")
	// ErrDecode is returned when a generic document cannot be decoded into
	// its typed representation.
	ErrDecode = errors.New("config decode failed")
	// ErrEncode is returned when a typed value cannot be encoded into a
	// generic document.
	ErrEncode = errors.New("config encode failed")
	// ErrUpdateFailed is returned when an update mutator fails. The cache
	// and the backing file are left unchanged.
	ErrUpdateFailed = errors.New("config update failed")
	// ErrPersist is returned when writing a config file fails. On the update
	// path the in-memory cache is left unchanged, so file and cache agree.
	ErrPersist = errors.New("config persist failed")
)

// MigrationError reports a migration step whose transform failed.
type MigrationError struct {
	TypeID string
	From   uint32
	Err    error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("config %q migration from version %d failed: %v", e.TypeID, e.From, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
