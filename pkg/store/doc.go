// Package store implements the versioned config store: it loads structured
// config files from a directory, migrates their schema version forward, and
// exposes concurrency-safe typed access to the decoded values.
//
// # Lifecycle
//
// Registration happens first, during startup, and must be complete before
// the store is constructed:
//
//	types := registry.NewTypes()
//	migs := registry.NewMigrations()
//
//	err := registry.Register(types, registry.Config[ServerConfig]{
//		TypeID:   "server",
//		Version:  2,
//		FileName: "server.toml",
//		Default:  func() ServerConfig { return ServerConfig{Port: 8080} },
//	})
//
//	err = migs.Register("server", registry.Step{
//		From: 1,
//		Transform: func(doc value.Value) (value.Value, error) {
//			m, _ := doc.AsMap()
//			m["max_conns"] = value.Int(64) // field added in version 2
//			return doc, nil
//		},
//	})
//
// Then construct and load:
//
//	s, err := store.New("/etc/myapp", types, migs)
//	if err := s.LoadAll(); err != nil { ... }
//
//	cfg, err := store.Get[ServerConfig](s)
//
//	err = store.Update(s, func(c *ServerConfig) error {
//		c.Port = 9090
//		return nil
//	})
//
// # Loading and migration
//
// LoadAll processes each registered type independently, in registration
// order. For each type: a missing file is bootstrapped from the default
// value and persisted at the current version; an existing file is parsed
// into a generic value, its "_version" field is read (absent means version
// 1), the migration chain from the stored version to the current one is
// resolved and applied step by step, the result is decoded into the typed
// cache, and, if any step ran, the upgraded document is written back so
// later loads skip the chain entirely.
//
// A gap in the migration chain, a stored version newer than the code, a
// parse failure or a failing transform all fail that one type's load; the
// other types still load, and LoadAll returns every per-type failure
// aggregated into one error.
//
// # Concurrency
//
// Each config type has its own reader/writer lock. Get and View take shared
// access, Update takes exclusive access, and different types never contend.
// Concurrent updates of one type are equivalent to some serial order of
// their mutators. LoadAll itself is a startup operation: run it to
// completion before Get/Update traffic starts.
//
// # Persistence
//
// Every write goes through a temp-file-write, fsync and rename in the config
// directory, so an interrupted process leaves either the old file or the new
// one, never a torn mix. After a successful update the file is written
// before the cache is touched; a persist failure therefore rolls the update
// back entirely.
package store
