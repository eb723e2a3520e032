package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Built-in element set for the ISS, used when no other source is configured.
const (
	DefaultName  = "ISS (ZARYA)"
	DefaultLine1 = "1 25544U 98067A   20194.88612269 -.00002218  00000-0 -31515-4 0  9992"
	DefaultLine2 = "2 25544  51.6461 221.2784 0001413  89.1723 280.4612 15.49507896236008"
)

// LoadConfig selects where elements come from. Sources are tried in order:
// inline lines, file, fresh cache, remote fetch, stale cache, built-in.
type LoadConfig struct {
	Name      string
	Line1     string
	Line2     string
	File      string
	Fetch     bool
	SourceURL string
	ExtraURLs []string
	CacheDir  string
	CacheMax  int
	MaxAge    time.Duration
}

// Load resolves a dataset from the configured sources.
func Load(ctx context.Context, cfg LoadConfig, logger *slog.Logger) (*TLEDataset, error) {
	now := time.Now().UTC()

	if cfg.Line1 != "" || cfg.Line2 != "" {
		el, err := ParseElements(cfg.Line1, cfg.Line2)
		if err != nil {
			return nil, fmt.Errorf("inline elements: %w", err)
		}
		el.Name = cfg.Name
		return NewDataset("inline", now, []TLEEntry{entryFor(el)}), nil
	}

	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("reading element file: %w", err)
		}
		return parseDataset("file:"+cfg.File, now, data, logger)
	}

	var cache *Cache
	if cfg.CacheDir != "" {
		cache = NewCache(cfg.CacheDir, cfg.CacheMax)
	}

	var stale []byte
	var staleTS time.Time
	if cache != nil {
		data, ts, err := cache.LoadLatest()
		switch {
		case err == nil && (cfg.MaxAge <= 0 || now.Sub(ts) < cfg.MaxAge || !cfg.Fetch):
			logger.Info("using cached elements", "age", now.Sub(ts).Round(time.Second).String())
			return parseDataset("cache", ts, data, logger)
		case err == nil:
			stale, staleTS = data, ts
		case !errors.Is(err, ErrNoCache):
			logger.Warn("element cache unreadable", "error", err)
		}
	}

	if cfg.Fetch {
		fetcher := NewFetcher(cfg.SourceURL, logger, cfg.ExtraURLs...)
		data, err := fetcher.Fetch(ctx)
		if err == nil {
			ds, perr := parseDataset(fetcher.SourceURL(), now, data, logger)
			if perr == nil {
				if cache != nil {
					if werr := cache.Write(data, now); werr != nil {
						logger.Warn("writing element cache failed", "error", werr)
					}
				}
				return ds, nil
			}
			err = perr
		}
		logger.Warn("element fetch failed", "url", fetcher.SourceURL(), "error", err)
		if stale != nil {
			logger.Info("falling back to stale cached elements", "age", now.Sub(staleTS).Round(time.Second).String())
			return parseDataset("cache", staleTS, stale, logger)
		}
	}

	el, err := ParseElements(DefaultLine1, DefaultLine2)
	if err != nil {
		return nil, fmt.Errorf("built-in elements: %w", err)
	}
	el.Name = DefaultName
	return NewDataset("builtin", now, []TLEEntry{entryFor(el)}), nil
}

func parseDataset(source string, ts time.Time, data []byte, logger *slog.Logger) (*TLEDataset, error) {
	entries, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w: no valid entries", source, ErrInvalidElements)
	}
	return NewDataset(source, ts, entries), nil
}

func entryFor(el Elements) TLEEntry {
	return TLEEntry{
		NORADID:  el.NORADID,
		Name:     strings.TrimSpace(el.Name),
		Epoch:    el.Epoch,
		Line1:    el.Line1,
		Line2:    el.Line2,
		Elements: el,
	}
}
