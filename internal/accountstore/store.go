package accountstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mrz1836/hdwscan/internal/fileutil"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

const (
	// FileName is the name of the account storage file.
	FileName = "accounts.json"

	// currentVersion is the current file format version.
	currentVersion = 1

	// filePermissions for accounts.json
	filePermissions = 0o600
)

// File is the on-disk envelope. Accounts keep their store order.
type File struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Accounts  []Account `json:"accounts"`
}

// Store owns the current State snapshot and persists it to disk.
// Callers read snapshots and replace them through Apply.
type Store struct {
	path  string
	mu    sync.RWMutex
	state State
}

// New creates a store persisted at path. Nothing is read until Load.
func New(path string) *Store {
	return &Store{path: path, state: Initial()}
}

// Open creates a store in dir and loads it.
func Open(dir string) (*Store, error) {
	s := New(filepath.Join(dir, FileName))
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load replaces the in-memory state with the file content.
// A missing file yields the empty state.
func (s *Store) Load() error {
	state, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Store) read() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Initial(), nil
		}
		return State{}, fmt.Errorf("reading account store: %w", err)
	}

	var file File
	if err = json.Unmarshal(data, &file); err != nil {
		return State{}, hdwerr.WithCause(hdwerr.ErrStoreCorrupted, err)
	}
	if file.Version > currentVersion {
		return State{}, hdwerr.WithDetails(hdwerr.ErrStoreCorrupted, map[string]string{
			"version": fmt.Sprintf("%d", file.Version),
		})
	}

	state, err := NewState(file.Accounts...)
	if err != nil {
		return State{}, hdwerr.WithCause(hdwerr.ErrStoreCorrupted, err)
	}
	return state, nil
}

// Save writes the current state to disk atomically.
func (s *Store) Save() error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	return s.write(state)
}

func (s *Store) write(state State) error {
	file := File{
		Version:   currentVersion,
		UpdatedAt: time.Now().UTC(),
		Accounts:  state.Accounts(),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling account store: %w", err)
	}
	if err = fileutil.WriteAtomic(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("writing account store: %w", err)
	}
	return nil
}

// Apply runs op against the state on disk while holding the store's file
// lock, so writers in other processes are not lost. The snapshot is replaced,
// and persisted, only when op succeeds; on any error the store is unchanged.
func (s *Store) Apply(op func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := fileutil.Lock(s.path + ".lock")
	if err != nil {
		return s.state, fmt.Errorf("locking account store: %w", err)
	}
	defer unlock()

	current, err := s.read()
	if err != nil {
		return s.state, err
	}
	s.state = current

	next, err := op(current)
	if err != nil {
		return s.state, err
	}
	if err = s.write(next); err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}
