package filesys_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/nextconf/internal/filesys"
	"github.com/lc/nextconf/internal/mocks"
)

type AtomicWriteTestSuite struct {
	suite.Suite
	dir string
}

func (s *AtomicWriteTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *AtomicWriteTestSuite) TestCreatesNewFile() {
	dst := filepath.Join(s.dir, "app.toml")

	err := filesys.AtomicWrite(filesys.OS(), dst, []byte("port = 1\n"), 0o644)
	s.Require().NoError(err)

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("port = 1\n", string(data))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(dst)
		s.Require().NoError(err)
		s.Equal(os.FileMode(0o644), fi.Mode().Perm())
	}
}

func (s *AtomicWriteTestSuite) TestReplacesExistingFile() {
	dst := filepath.Join(s.dir, "app.toml")
	s.Require().NoError(os.WriteFile(dst, []byte("old"), 0o600))

	err := filesys.AtomicWrite(filesys.OS(), dst, []byte("new"), 0o644)
	s.Require().NoError(err)

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("new", string(data))
}

func (s *AtomicWriteTestSuite) TestLeavesNoTempFiles() {
	dst := filepath.Join(s.dir, "app.toml")
	s.Require().NoError(filesys.AtomicWrite(filesys.OS(), dst, []byte("x"), 0o644))

	ents, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Require().Len(ents, 1)
	s.Equal("app.toml", ents[0].Name())
}

func (s *AtomicWriteTestSuite) TestCreateTempFailure() {
	fsys := new(mocks.MockFS)
	fsys.On("CreateTemp", s.dir, mock.Anything).Return(nil, errors.New("read-only fs"))

	err := filesys.AtomicWrite(fsys, filepath.Join(s.dir, "app.toml"), []byte("x"), 0o644)
	s.Require().Error(err)
	fsys.AssertNotCalled(s.T(), "Rename", mock.Anything, mock.Anything)
}

func (s *AtomicWriteTestSuite) TestRenameFailureDiscardsTemp() {
	tmp, err := os.CreateTemp(s.dir, ".nextconf-*")
	s.Require().NoError(err)

	dst := filepath.Join(s.dir, "app.toml")
	fsys := new(mocks.MockFS)
	fsys.On("CreateTemp", s.dir, mock.Anything).Return(tmp, nil)
	fsys.On("Chmod", tmp.Name(), mock.Anything).Return(nil)
	fsys.On("Rename", tmp.Name(), dst).Return(errors.New("cross-device link"))
	fsys.On("Remove", tmp.Name()).Return(nil)

	err = filesys.AtomicWrite(fsys, dst, []byte("x"), 0o644)
	s.Require().Error(err)
	fsys.AssertCalled(s.T(), "Remove", tmp.Name())

	// The destination was never created.
	_, err = os.Stat(dst)
	s.ErrorIs(err, os.ErrNotExist)
}

func TestAtomicWriteSuite(t *testing.T) {
	suite.Run(t, new(AtomicWriteTestSuite))
}
