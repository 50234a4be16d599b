package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// State is the view selection that outlives a single panel session.
type State struct {
	Filter string `json:"filter"`
	Search string `json:"search"`
}

func LoadState(dir string) (State, error) {
	b, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("parse state: %w", err)
	}
	return st, nil
}

func SaveState(dir string, st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, "state.json", b, 0o644)
}

// Store serializes access to the config and state files of one directory.
type Store struct {
	dir string

	mu    sync.Mutex
	cfg   Config
	state State
}

func OpenStore(dir string) (*Store, error) {
	cfg, err := LoadFrom(dir)
	if err != nil {
		return nil, err
	}
	st, err := LoadState(dir)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, cfg: cfg, state: st}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Store) UpdateConfig(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg
	fn(&next)
	EnsureDefaults(&next)
	if err := SaveTo(s.dir, next); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	s.cfg = next
	return nil
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) SaveState(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := SaveState(s.dir, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.state = st
	return nil
}
