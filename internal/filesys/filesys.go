// Package filesys provides the file system abstraction used by the config
// store. It defines a small interface over the handful of os calls the store
// needs, an implementation backed by the standard library, and a crash-safe
// AtomicWrite helper used for every config persist.
package filesys

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lc/nextconf/internal/log"
)

// FS is the surface the config store needs from the file system.
// It is intentionally smaller than *os.File: the store never does
// random-access writes or directory iteration.
type FS interface {
	Stat(string) (fs.FileInfo, error)
	MkdirAll(string, os.FileMode) error
	ReadFile(string) ([]byte, error)
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
	Open(string) (*os.File, error)
}

// OS returns an FS implementation that delegates to the standard library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements FS against the local disk.
type OsFS struct{}

var _ FS = OsFS{}

func (OsFS) Stat(p string) (fs.FileInfo, error)           { return os.Stat(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) ReadFile(p string) ([]byte, error)            { return os.ReadFile(p) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }
func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }

// AtomicWrite atomically persists data to dst with the provided file mode.
// The write is crash-safe on local filesystems:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// The live file at dst is never truncated in place; an interrupted write
// leaves either the old file or the new file, never a torn mix.
func AtomicWrite(fsys FS, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := fsys.CreateTemp(dir, ".nextconf-*")
	if err != nil {
		return err
	}
	discard := func() {
		if rmErr := fsys.Remove(tmp.Name()); rmErr != nil {
			log.Warnf("filesys: failed to remove temp file %s: %v", tmp.Name(), rmErr)
		}
	}

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		discard()
		return err
	}

	// Rename keeps the temp file's mode, so fix it up first.
	if err = fsys.Chmod(tmp.Name(), perm); err != nil {
		discard()
		return err
	}
	if err = fsys.Rename(tmp.Name(), dst); err != nil {
		discard()
		return err
	}

	// Best effort: make the rename itself durable.
	if d, dirErr := fsys.Open(dir); dirErr == nil {
		if syncErr := d.Sync(); syncErr != nil {
			log.Debugf("filesys: failed to sync directory %s: %v", dir, syncErr)
		}
		if closeErr := d.Close(); closeErr != nil {
			log.Debugf("filesys: failed to close directory %s: %v", dir, closeErr)
		}
	}
	return nil
}
