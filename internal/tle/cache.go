package tle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrNoCache is returned by LoadLatest when no usable file is cached.
var ErrNoCache = errors.New("no cached element files")

const (
	cachePrefix = "elements-"
	cacheSuffix = ".tle"
	cacheLayout = "20060102T150405Z"
)

// Cache keeps fetched catalog files on disk so a restart without network
// still has elements to simulate. Files are named by fetch time.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache keeps at most maxFiles files (default 5) in dir.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{dir: dir, maxFiles: maxFiles}
}

func cacheName(ts time.Time) string {
	return cachePrefix + ts.UTC().Format(cacheLayout) + cacheSuffix
}

// Write stores data fetched at ts and prunes the oldest files. A download
// identical to the newest cached file only refreshes that file's time.
func (c *Cache) Write(data []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("element cache dir: %w", err)
	}

	files, err := c.files()
	if err != nil {
		return err
	}
	if n := len(files); n > 0 {
		newest := files[n-1]
		if prev, err := os.ReadFile(c.path(newest.name)); err == nil && bytes.Equal(prev, data) {
			if err := os.Rename(c.path(newest.name), c.path(cacheName(ts))); err != nil {
				return fmt.Errorf("element cache touch: %w", err)
			}
			return nil
		}
	}

	tmp, err := os.CreateTemp(c.dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("element cache write: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("element cache write: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(cacheName(ts))); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("element cache write: %w", err)
	}
	return c.prune()
}

// LoadLatest returns the newest cached file that still holds element
// lines, with its fetch time. Damaged files are skipped.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	files, err := c.files()
	if err != nil {
		return nil, time.Time{}, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		data, err := os.ReadFile(c.path(files[i].name))
		if err != nil || !hasElementLine(data) {
			continue
		}
		return data, files[i].ts, nil
	}
	return nil, time.Time{}, ErrNoCache
}

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *Cache) path(name string) string { return filepath.Join(c.dir, name) }

// files lists cache files oldest first. A missing directory is empty.
func (c *Cache) files() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("element cache list: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		stamp, ok := strings.CutPrefix(e.Name(), cachePrefix)
		if !ok || e.IsDir() {
			continue
		}
		stamp, ok = strings.CutSuffix(stamp, cacheSuffix)
		if !ok {
			continue
		}
		ts, err := time.Parse(cacheLayout, stamp)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: e.Name(), ts: ts})
	}
	slices.SortFunc(files, func(a, b cacheFile) int { return a.ts.Compare(b.ts) })
	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.files()
	if err != nil {
		return err
	}
	var errs []error
	for len(files) > c.maxFiles {
		if err := os.Remove(c.path(files[0].name)); err != nil {
			errs = append(errs, err)
		}
		files = files[1:]
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("element cache prune: %w", err)
	}
	return nil
}
