// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
history.go - Keyed artifact history

This file implements the multi-configuration side of the store: every
render lands as radar-<keyhash>-<epochms>.gif, where the key hash is the
render plan's 16-hex-digit cache key and the timestamp is the publish
instant in epoch milliseconds. Filenames carry all the metadata the
history needs, so lookups and sweeps are a directory scan with no index
to corrupt.
*/

package diskcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
)

const (
	historyPrefix = "radar-"
	historySuffix = ".gif"
)

// writeHistory stores one keyed history entry atomically.
func (s *Store) writeHistory(key string, data []byte, now time.Time) error {
	name := fmt.Sprintf("%s%s-%d%s", historyPrefix, key, now.UnixMilli(), historySuffix)
	if err := atomicWrite(filepath.Join(s.dir, name), data); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// FindNewest returns the newest history artifact for key whose age at now
// is within maxAge, or ErrNoArtifact.
func (s *Store) FindNewest(key string, maxAge time.Duration, now time.Time) ([]byte, error) {
	return s.findNewest(key, maxAge, now)
}

// FindNewestAny returns the newest history artifact of any key within
// maxAge. This is the engine's last-resort fallback: an animation for a
// different configuration still beats an error page.
func (s *Store) FindNewestAny(maxAge time.Duration, now time.Time) ([]byte, error) {
	return s.findNewest("", maxAge, now)
}

// findNewest scans the directory for the largest in-range timestamp,
// filtered by key when non-empty.
func (s *Store) findNewest(key string, maxAge time.Duration, now time.Time) ([]byte, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ErrNoArtifact
	}

	cutoff := now.Add(-maxAge).UnixMilli()
	var bestName string
	var bestTS int64 = -1

	for _, e := range entries {
		entryKey, ts, ok := parseHistoryName(e.Name())
		if !ok || ts < cutoff || ts <= bestTS {
			continue
		}
		if key != "" && entryKey != key {
			continue
		}
		bestName, bestTS = e.Name(), ts
	}

	if bestName == "" {
		return nil, ErrNoArtifact
	}

	data, err := os.ReadFile(filepath.Join(s.dir, bestName))
	if err != nil {
		// Swept or replaced between scan and read; to the caller that is
		// just a miss.
		return nil, ErrNoArtifact
	}
	return data, nil
}

// SweepExpired deletes every history entry older than retention,
// regardless of key, and returns the number removed. The latest slot and
// its sidecar are not history entries and are never swept.
func (s *Store) SweepExpired(retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache dir: %w", err)
	}

	cutoff := now.Add(-retention).UnixMilli()
	removed := 0
	for _, e := range entries {
		_, ts, ok := parseHistoryName(e.Name())
		if !ok || ts >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			logging.Warn().Err(err).Str("entry", e.Name()).Msg("Failed to sweep expired artifact")
			continue
		}
		removed++
	}

	metrics.RecordSweep(removed)
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Swept expired history artifacts")
	}
	return removed, nil
}

// MaybeSweep runs SweepExpired at most once per minInterval, tracked by an
// in-process watermark. Callers invoke it opportunistically after a
// publish; most calls return immediately.
func (s *Store) MaybeSweep(retention, minInterval time.Duration, now time.Time) {
	last := s.lastSweep.Load()
	if now.Unix()-last < int64(minInterval/time.Second) {
		return
	}
	if !s.lastSweep.CompareAndSwap(last, now.Unix()) {
		return // another goroutine took this sweep
	}

	if _, err := s.SweepExpired(retention, now); err != nil {
		logging.Warn().Err(err).Msg("Retention sweep failed")
	}
}

// parseHistoryName extracts the key hash and millisecond timestamp from a
// history filename. The latest slot, sidecars and temp files all fail the
// parse and are ignored by scans.
func parseHistoryName(name string) (key string, ts int64, ok bool) {
	if !strings.HasPrefix(name, historyPrefix) || !strings.HasSuffix(name, historySuffix) {
		return "", 0, false
	}

	core := strings.TrimSuffix(strings.TrimPrefix(name, historyPrefix), historySuffix)
	i := strings.LastIndexByte(core, '-')
	if i <= 0 {
		return "", 0, false
	}

	key = core[:i]
	if len(key) != 16 || !isHex(key) {
		return "", 0, false
	}

	ts, err := strconv.ParseInt(core[i+1:], 10, 64)
	if err != nil || ts <= 0 {
		return "", 0, false
	}
	return key, ts, true
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
