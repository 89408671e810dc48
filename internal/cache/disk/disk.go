package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
)

// Ensure DiskCache implements interfaces.DurableCache
var _ interfaces.DurableCache = (*DiskCache)(nil)

const (
	tempPrefix   = ".tmp-"
	hashedPrefix = ".h-"
	maxNameLen   = 255 // NAME_MAX on common file systems
)

// DiskCache stores one file per key inside a namespace directory.
// Files hold the raw payload only.
type DiskCache struct {
	dir    string
	logger *zap.Logger
}

// NewDiskCache creates the namespace directory if needed
func NewDiskCache(dir string, logger *zap.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	logger.Debug("Disk cache ready", zap.String("dir", dir))

	return &DiskCache{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir returns the namespace directory
func (d *DiskCache) Dir() string {
	return d.dir
}

// Read returns the payload stored for key
func (d *DiskCache) Read(key string) ([]byte, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write stores data for key. The payload is written to a temporary file and
// renamed into place so readers never observe a partial file.
func (d *DiskCache) Write(key string, data []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

// Delete removes the file for key; a missing file is not an error
func (d *DiskCache) Delete(key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every entry in the namespace directory
func (d *DiskCache) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(d.dir, entry.Name())); err != nil {
			d.logger.Warn("Failed to remove cache file", zap.String("file", entry.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// path maps key to a file inside the namespace; keys are expected to be
// file-name safe already, anything that could escape the directory is rejected.
// Keys longer than maxNameLen are stored under ".h-" + sha256(key).
func (d *DiskCache) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) ||
		strings.HasPrefix(key, tempPrefix) || strings.HasPrefix(key, hashedPrefix) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	if len(key) > maxNameLen {
		sum := sha256.Sum256([]byte(key))
		return filepath.Join(d.dir, hashedPrefix+hex.EncodeToString(sum[:])), nil
	}
	return filepath.Join(d.dir, key), nil
}
