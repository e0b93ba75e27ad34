package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/hdwscan/internal/fileutil"
)

// FileName is the default cache file inside the home directory.
const FileName = "cache.json"

// cacheFilePermissions is the permission mode for cache files.
const cacheFilePermissions = 0o640

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// FileStorage implements cache persistence using the filesystem.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new file-based cache storage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save writes the cache to the filesystem.
func (s *FileStorage) Save(cache *BalanceCache) error {
	cache.mu.RLock()
	data, err := json.MarshalIndent(cache, "", "  ")
	cache.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := fileutil.WriteAtomic(s.path, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Load reads the cache from the filesystem.
// Returns an empty cache if the file doesn't exist. A corrupt file is moved
// aside and an empty cache is returned along with ErrCorruptCache.
func (s *FileStorage) Load() (*BalanceCache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewBalanceCache(), nil
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	cache := NewBalanceCache()
	if err := json.Unmarshal(data, cache); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, corruptPath); renameErr != nil {
			return NewBalanceCache(), fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return NewBalanceCache(), fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, corruptPath)
	}

	// Ensure map is initialized
	if cache.Entries == nil {
		cache.Entries = make(map[string]Entry)
	}
	return cache, nil
}

// Path returns the cache file path.
func (s *FileStorage) Path() string {
	return s.path
}
