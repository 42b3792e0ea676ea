package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// SnapshotVersionCurrent is written by [Encode].
	SnapshotVersionCurrent = 1
	snapshotVersionLegacy  = 0
)

// ErrSnapshotCorrupt is returned when a stored snapshot cannot be decoded.
var ErrSnapshotCorrupt = errors.New("session snapshot corrupt")

// ErrSnapshotVersion is returned for snapshots written by a newer client.
var ErrSnapshotVersion = errors.New("unsupported session snapshot version")

type snapshotEnvelope struct {
	State   json.RawMessage `json:"state"`
	Version *int            `json:"version"`
}

type snapshotDoc struct {
	State   Snapshot `json:"state"`
	Version int      `json:"version"`
}

// Encode serializes s in the current snapshot format.
func Encode(s Snapshot) ([]byte, error) {
	normalized, _ := s.normalize()
	return json.Marshal(snapshotDoc{State: normalized, Version: SnapshotVersionCurrent})
}

// Decode parses a stored snapshot. Version 0 documents (and bare state objects
// without a wrapper) share the version 1 field layout and are upgraded
// in place. The returned snapshot always satisfies the auth invariant; the
// boolean reports whether normalization discarded inconsistent data.
func Decode(data []byte) (Snapshot, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Snapshot{}, false, fmt.Errorf("%w: empty document", ErrSnapshotCorrupt)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	raw := env.State
	version := snapshotVersionLegacy
	if env.Version != nil {
		version = *env.Version
	}
	if len(raw) == 0 {
		if env.Version != nil {
			return Snapshot{}, false, fmt.Errorf("%w: missing state", ErrSnapshotCorrupt)
		}
		raw = data
	}

	switch version {
	case snapshotVersionLegacy, SnapshotVersionCurrent:
	default:
		return Snapshot{}, false, fmt.Errorf("%w: %d", ErrSnapshotVersion, version)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	normalized, changed := snap.normalize()
	return normalized, changed, nil
}
