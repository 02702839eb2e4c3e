// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
)

// On-disk names of the latest-slot artifact and its sidecar. The .tmp
// suffixed variants exist transiently during a publish.
const (
	latestName     = "radar-latest.gif"
	latestMetaName = "radar-latest.meta.json"
)

// ErrNoArtifact is returned when no cached artifact satisfies a read:
// nothing was ever published, the sidecar is unreadable, or everything in
// range is too old. Callers cannot distinguish the causes and must not
// need to.
var ErrNoArtifact = errors.New("no cached artifact available")

// Meta is the latest-slot sidecar: the artifact's dimensions, render
// time, and a checksum of the data file it describes. RenderedAt marshals
// as RFC 3339 in UTC; Checksum is the lowercase hex SHA-256 of the data.
type Meta struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RenderedAt time.Time `json:"renderedAt"`
	Checksum   string    `json:"checksum"`
}

// Store is a disk-backed artifact cache over one directory. Safe for
// concurrent use: publishes are atomic renames and readers only ever open
// fully-renamed files.
type Store struct {
	dir string

	lastSweep atomic.Int64 // unix seconds of the last retention sweep
}

// NewStore opens (creating if needed) the cache directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

// Publish stores one successful render: a keyed history entry first, then
// the latest slot (data before sidecar). Write order matters — the sidecar
// is the last thing to land, so readers that saw it can trust the data
// file it describes.
func (s *Store) Publish(key string, data []byte, width, height int, now time.Time) error {
	if err := s.writeHistory(key, data, now); err != nil {
		return err
	}

	if err := atomicWrite(filepath.Join(s.dir, latestName), data); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}

	meta, err := json.Marshal(Meta{
		Width:      width,
		Height:     height,
		RenderedAt: now.UTC(),
		Checksum:   checksumOf(data),
	})
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, latestMetaName), meta); err != nil {
		return fmt.Errorf("failed to publish sidecar: %w", err)
	}

	logging.Debug().Str("key", key).Int("bytes", len(data)).Msg("Artifact published")
	return nil
}

// latestReadAttempts bounds the sidecar/data pairing retries in Latest. A
// publish that lands between the two reads leaves a sidecar that fails its
// checksum; one retry normally suffices, the rest absorb back-to-back
// publishes.
const latestReadAttempts = 4

// Latest returns the latest-slot artifact when its sidecar is valid, its
// age is within maxAge, and the sidecar checksum matches the data file.
// The sidecar and data are separate files, so a concurrent publish can
// interleave with the two reads; the checksum detects a mismatched pair
// and the read is retried. Anything less — missing files, malformed
// sidecar, non-positive dimensions, zero timestamp, stale entry,
// persistent checksum mismatch — is ErrNoArtifact. The raw data file is
// never served without a valid sidecar; a stale entry is reported absent
// but not deleted.
func (s *Store) Latest(maxAge time.Duration, now time.Time) ([]byte, *Meta, error) {
	for range latestReadAttempts {
		meta, err := s.readMeta()
		if err != nil {
			metrics.RecordArtifactCacheRead("miss")
			return nil, nil, ErrNoArtifact
		}

		if now.Sub(meta.RenderedAt) > maxAge {
			metrics.RecordArtifactCacheRead("stale")
			return nil, nil, ErrNoArtifact
		}

		data, err := os.ReadFile(filepath.Join(s.dir, latestName))
		if err != nil {
			metrics.RecordArtifactCacheRead("miss")
			return nil, nil, ErrNoArtifact
		}

		if checksumOf(data) != meta.Checksum {
			continue
		}

		metrics.RecordArtifactCacheRead("hit")
		return data, meta, nil
	}

	metrics.RecordArtifactCacheRead("miss")
	return nil, nil, ErrNoArtifact
}

// LatestMeta returns the latest-slot sidecar without an age gate, for
// callers that report on the cache rather than serve from it. A raw data
// file without a valid sidecar is still invisible.
func (s *Store) LatestMeta() (*Meta, error) {
	meta, err := s.readMeta()
	if err != nil {
		return nil, ErrNoArtifact
	}
	return meta, nil
}

// readMeta loads and validates the sidecar. Every malformation is
// collapsed into an error: a sidecar that cannot be trusted entirely is
// not trusted at all.
func (s *Store) readMeta() (*Meta, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, latestMetaName))
	if err != nil {
		return nil, err
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("malformed sidecar: %w", err)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("sidecar has non-positive dimensions %dx%d", meta.Width, meta.Height)
	}
	if meta.RenderedAt.IsZero() {
		return nil, fmt.Errorf("sidecar has no render timestamp")
	}
	if len(meta.Checksum) != sha256.Size*2 || !isHex(meta.Checksum) {
		return nil, fmt.Errorf("sidecar has no usable checksum")
	}
	return &meta, nil
}

// checksumOf is the sidecar checksum of an artifact's bytes.
func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// atomicWrite publishes data at path via a temp file in the same
// directory. The rename is the sole visibility point; a reader either sees
// the whole previous file or the whole new one.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
