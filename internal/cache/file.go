package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
)

const (
	citiesDir    = "cities"
	geoCacheFile = "geolocation.json"
	geoTTL       = 24 * time.Hour
)

// FileStore keeps one JSON file per location under dir/cities.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Detected `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "salah-times"), nil
}

// NewFileStore creates a FileStore rooted at the given directory.
// If dir is empty, it defaults to ~/.cache/salah-times/.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	dir, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(dir, citiesDir), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	o := applyOptions(opts)
	return &FileStore{dir: dir, logger: o.logger}, nil
}

// Dir returns the cache root.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, citiesDir, key+".json")
}

// Load reads the set for key. Missing and corrupt files both yield ErrAbsent.
func (f *FileStore) Load(_ context.Context, key string) (*ScheduleSet, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAbsent
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("cache file unreadable")
		return nil, ErrAbsent
	}

	set, err := decodeSet(data)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("ignoring corrupt cache file")
		return nil, ErrAbsent
	}
	return set, nil
}

// Save writes set for key through a temp file and rename so readers never
// see a partial file.
func (f *FileStore) Save(_ context.Context, key string, set *ScheduleSet) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encodeSet(set)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.path(key), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (f *FileStore) LoadGeo() *geo.Detected {
	data, err := os.ReadFile(filepath.Join(f.dir, geoCacheFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if time.Since(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (f *FileStore) SaveGeo(loc *geo.Detected) error {
	entry := GeoCacheEntry{
		Location: *loc,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(f.dir, geoCacheFile), data); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}

	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
