package config

import "sync/atomic"

// Store holds the current configuration. Readers on the line path call
// Current or Version without locking; reloads swap the whole Config.
type Store struct {
	cfg     atomic.Pointer[Config]
	version atomic.Uint64
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.cfg.Store(cfg)
	return s
}

// Current returns the current configuration. It must not be modified.
func (s *Store) Current() *Config {
	return s.cfg.Load()
}

// Version increases by one on every Update.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Update replaces the current configuration.
func (s *Store) Update(cfg *Config) {
	s.cfg.Store(cfg)
	s.version.Add(1)
}
