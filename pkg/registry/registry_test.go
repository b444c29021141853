package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/nextconf/pkg/registry"
	"github.com/lc/nextconf/pkg/value"
)

type dbConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type uiConfig struct {
	Theme string `yaml:"theme"`
}

type RegistryTestSuite struct {
	suite.Suite
	types *registry.Types
}

func (s *RegistryTestSuite) SetupTest() {
	s.types = registry.NewTypes()
}

func (s *RegistryTestSuite) register(typeID, fileName string, version uint32) {
	s.Require().NoError(registry.Register(s.types, registry.Config[dbConfig]{
		TypeID:   typeID,
		Version:  version,
		FileName: fileName,
	}))
}

func (s *RegistryTestSuite) TestRegisterAndLookup() {
	s.register("database", "database.toml", 1)

	d, err := s.types.Lookup("database")
	s.Require().NoError(err)
	s.Equal("database", d.TypeID)
	s.Equal(uint32(1), d.Version)
	s.Equal("database.toml", d.FileName)
	s.Equal(1, s.types.Len())
}

func (s *RegistryTestSuite) TestDuplicateTypeID() {
	s.register("database", "database.toml", 1)

	err := registry.Register(s.types, registry.Config[uiConfig]{
		TypeID:   "database",
		Version:  1,
		FileName: "ui.toml",
	})
	s.ErrorIs(err, registry.ErrDuplicateType)
}

func (s *RegistryTestSuite) TestDuplicateGoType() {
	s.register("database", "database.toml", 1)

	// Same Go type under a different ID is also a collision: the typed
	// accessors resolve entries by Go type.
	err := registry.Register(s.types, registry.Config[dbConfig]{
		TypeID:   "database-replica",
		Version:  1,
		FileName: "replica.toml",
	})
	s.ErrorIs(err, registry.ErrDuplicateType)
}

func (s *RegistryTestSuite) TestLookupUnknown() {
	_, err := s.types.Lookup("nope")
	s.ErrorIs(err, registry.ErrUnknownType)
}

func (s *RegistryTestSuite) TestInvalidDescriptors() {
	testCases := []struct {
		name string
		cfg  registry.Config[uiConfig]
	}{
		{
			name: "empty type id",
			cfg:  registry.Config[uiConfig]{Version: 1, FileName: "ui.toml"},
		},
		{
			name: "zero version",
			cfg:  registry.Config[uiConfig]{TypeID: "ui", FileName: "ui.toml"},
		},
		{
			name: "empty file name",
			cfg:  registry.Config[uiConfig]{TypeID: "ui", Version: 1},
		},
		{
			name: "absolute file name",
			cfg:  registry.Config[uiConfig]{TypeID: "ui", Version: 1, FileName: "/etc/ui.toml"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := registry.Register(registry.NewTypes(), tc.cfg)
			s.ErrorIs(err, registry.ErrInvalidDescriptor)
		})
	}
}

func (s *RegistryTestSuite) TestAllPreservesRegistrationOrder() {
	s.Require().NoError(registry.Register(s.types, registry.Config[uiConfig]{
		TypeID: "ui", Version: 1, FileName: "ui.toml",
	}))
	s.Require().NoError(registry.Register(s.types, registry.Config[dbConfig]{
		TypeID: "database", Version: 1, FileName: "database.toml",
	}))

	all := s.types.All()
	s.Require().Len(all, 2)
	s.Equal("ui", all[0].TypeID)
	s.Equal("database", all[1].TypeID)
}

func (s *RegistryTestSuite) TestDefaultCodecFunctions() {
	s.Require().NoError(registry.Register(s.types, registry.Config[dbConfig]{
		TypeID:   "database",
		Version:  1,
		FileName: "database.toml",
		Default:  func() dbConfig { return dbConfig{Host: "localhost", Port: 5432} },
	}))

	d, err := s.types.Lookup("database")
	s.Require().NoError(err)

	def := d.New()
	s.Equal(dbConfig{Host: "localhost", Port: 5432}, def)

	doc, err := d.Encode(def)
	s.Require().NoError(err)
	back, err := d.Decode(doc)
	s.Require().NoError(err)
	s.Equal(def, back)
}

func (s *RegistryTestSuite) TestEncodeRejectsWrongType() {
	s.register("database", "database.toml", 1)

	d, err := s.types.Lookup("database")
	s.Require().NoError(err)

	_, err = d.Encode(uiConfig{Theme: "dark"})
	s.Error(err)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

type MigrationsTestSuite struct {
	suite.Suite
	migs *registry.Migrations
}

func (s *MigrationsTestSuite) SetupTest() {
	s.migs = registry.NewMigrations()
}

func noop(v value.Value) (value.Value, error) { return v, nil }

func (s *MigrationsTestSuite) TestDuplicateStep() {
	s.Require().NoError(s.migs.Register("database", registry.Step{From: 1, Transform: noop}))

	err := s.migs.Register("database", registry.Step{From: 1, Transform: noop})
	s.ErrorIs(err, registry.ErrDuplicateMigration)

	// Same from-version on a different type is fine.
	s.NoError(s.migs.Register("ui", registry.Step{From: 1, Transform: noop}))
}

func (s *MigrationsTestSuite) TestInvalidSteps() {
	s.ErrorIs(s.migs.Register("", registry.Step{From: 1, Transform: noop}), registry.ErrInvalidDescriptor)
	s.ErrorIs(s.migs.Register("database", registry.Step{From: 0, Transform: noop}), registry.ErrInvalidDescriptor)
	s.ErrorIs(s.migs.Register("database", registry.Step{From: 1}), registry.ErrInvalidDescriptor)
}

func (s *MigrationsTestSuite) TestChainEqualVersionsIsEmpty() {
	s.Require().NoError(s.migs.Register("database", registry.Step{From: 1, Transform: noop}))

	chain, err := s.migs.Chain("database", 2, 2)
	s.Require().NoError(err)
	s.Empty(chain)
}

func (s *MigrationsTestSuite) TestChainOrder() {
	s.Require().NoError(s.migs.Register("database", registry.Step{From: 2, Transform: noop}))
	s.Require().NoError(s.migs.Register("database", registry.Step{From: 1, Transform: noop}))

	chain, err := s.migs.Chain("database", 1, 3)
	s.Require().NoError(err)
	s.Require().Len(chain, 2)
	s.Equal(uint32(1), chain[0].From)
	s.Equal(uint32(2), chain[1].From)

	// A partial walk takes only the first step.
	chain, err = s.migs.Chain("database", 1, 2)
	s.Require().NoError(err)
	s.Require().Len(chain, 1)
	s.Equal(uint32(1), chain[0].From)
}

func (s *MigrationsTestSuite) TestChainGap() {
	s.Require().NoError(s.migs.Register("database", registry.Step{From: 1, Transform: noop}))

	_, err := s.migs.Chain("database", 1, 3)
	s.Require().Error(err)

	var missing *registry.MissingMigrationError
	s.Require().True(errors.As(err, &missing))
	s.Equal("database", missing.TypeID)
	s.Equal(uint32(2), missing.From)
}

func (s *MigrationsTestSuite) TestChainFutureVersion() {
	_, err := s.migs.Chain("database", 5, 3)
	s.ErrorIs(err, registry.ErrFutureVersion)
}

func TestMigrationsSuite(t *testing.T) {
	suite.Run(t, new(MigrationsTestSuite))
}
