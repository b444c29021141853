// Package mocks provides testify-based mocks for the nextconf internal
// interfaces, used to exercise error paths that are hard to reproduce
// against a real file system.
package mocks

import (
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/lc/nextconf/internal/filesys"
)

var _ filesys.FS = (*MockFS)(nil)

// MockFS is a mock implementation of the filesys.FS interface.
type MockFS struct {
	mock.Mock
}

// Stat mocks the Stat method.
func (m *MockFS) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	var fi fs.FileInfo
	if args.Get(0) != nil {
		fi = args.Get(0).(fs.FileInfo)
	}
	return fi, args.Error(1)
}

// MkdirAll mocks the MkdirAll method.
func (m *MockFS) MkdirAll(p string, mode os.FileMode) error {
	args := m.Called(p, mode)
	return args.Error(0)
}

// ReadFile mocks the ReadFile method.
func (m *MockFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

// CreateTemp mocks the CreateTemp method.
func (m *MockFS) CreateTemp(dir, pat string) (*os.File, error) {
	args := m.Called(dir, pat)
	var f *os.File
	if args.Get(0) != nil {
		f = args.Get(0).(*os.File)
	}
	return f, args.Error(1)
}

// Rename mocks the Rename method.
func (m *MockFS) Rename(old, newPath string) error {
	args := m.Called(old, newPath)
	return args.Error(0)
}

// Remove mocks the Remove method.
func (m *MockFS) Remove(p string) error {
	args := m.Called(p)
	return args.Error(0)
}

// Chmod mocks the Chmod method.
func (m *MockFS) Chmod(p string, mode os.FileMode) error {
	args := m.Called(p, mode)
	return args.Error(0)
}

// Open mocks the Open method.
func (m *MockFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	var f *os.File
	if args.Get(0) != nil {
		f = args.Get(0).(*os.File)
	}
	return f, args.Error(1)
}
