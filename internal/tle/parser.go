package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse reads a catalog file of element sets, named (3-line) or not
// (2-line). Malformed entries are skipped with a warning. When a body
// appears more than once, as happens when sources are concatenated, the
// entry with the latest epoch wins and keeps the first one's position.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	var (
		entries []TLEEntry
		index   = map[int]int{}
		name    string
		line1   string
		skipped int
	)
	add := func(el Elements) {
		e := entryFor(el)
		if i, dup := index[e.NORADID]; dup {
			if e.Epoch.After(entries[i].Epoch) {
				entries[i] = e
			}
			return
		}
		index[e.NORADID] = len(entries)
		entries = append(entries, e)
	}

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimRight(sc.Text(), "\r\n ")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "1 "):
			if line1 != "" {
				skipped++
				logger.Warn("element line 1 without line 2", "line", n-1, "name", name)
			}
			line1 = line
		case strings.HasPrefix(line, "2 ") && line1 != "":
			el, err := ParseElements(line1, line)
			if err != nil {
				skipped++
				logger.Warn("skipping invalid element set", "line", n, "name", name, "error", err)
			} else {
				el.Name = name
				add(el)
			}
			name, line1 = "", ""
		default:
			if line1 != "" {
				skipped++
				logger.Warn("element line 1 without line 2", "line", n-1, "name", name)
				line1 = ""
			}
			name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading element sets: %w", err)
	}
	if line1 != "" {
		skipped++
	}
	if skipped > 0 {
		logger.Info("catalog parsed with skipped entries", "entries", len(entries), "skipped", skipped)
	}
	return entries, nil
}

// parseEpoch decodes the YYDDD.DDDDDDDD epoch field. Two-digit years
// 57-99 are 1900s, 00-56 are 2000s. The result is rounded to the
// microsecond, finer than the field's eight decimals resolve.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year %q: %w", s[:2], err)
	}
	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}

	doy, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day %q: %w", s[2:], err)
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := jan1.AddDate(1, 0, 0).Sub(jan1).Hours() / 24
	if doy < 1 || doy >= days+1 {
		return time.Time{}, fmt.Errorf("epoch day %v outside %d", doy, year)
	}

	whole, frac := math.Modf(doy)
	t := jan1.AddDate(0, 0, int(whole)-1)
	return t.Add(time.Duration(frac * float64(24*time.Hour))).Round(time.Microsecond), nil
}
