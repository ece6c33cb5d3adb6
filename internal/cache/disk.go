package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore keeps one raw payload file per key under a single
// directory. File presence is equivalent to "verified success", so the
// payload is stored as-is with no envelope.
type DiskStore struct {
	dir string
	ext string
}

// NewDiskStore creates a disk store writing files with the given
// extension (e.g. ".xml", ".txt") under dir.
func NewDiskStore(dir, ext string) *DiskStore {
	return &DiskStore{dir: dir, ext: ext}
}

// Get retrieves a payload. An empty or unreadable file is treated as a
// corrupted entry: it is removed and reported as a miss.
func (s *DiskStore) Get(key string) ([]byte, bool) {
	path := s.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if len(data) == 0 {
		_ = os.Remove(path)
		return nil, false
	}
	return data, true
}

// PutIfAbsent stores a payload unless the key already exists. The write
// goes through a temp file and rename so an entry is either fully
// present or absent.
func (s *DiskStore) PutIfAbsent(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := s.Path(key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Missing entries are not an error.
func (s *DiskStore) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the on-disk location for a key. Callers record it in
// output records so downstream gates can verify the file exists.
func (s *DiskStore) Path(key string) string {
	return filepath.Join(s.dir, key+s.ext)
}
