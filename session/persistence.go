package session

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultSnapshotKey is the storage key of the persisted snapshot.
	DefaultSnapshotKey = "auth-storage"
	// DefaultLegacyTokenKey is the dedicated token key written by older
	// clients. It is read once during rehydration and then deleted.
	DefaultLegacyTokenKey = "token"
)

// LoadReport describes what [Persistence.Load] had to repair.
type LoadReport struct {
	// Found is true when a snapshot document existed.
	Found bool
	// Discarded is true when stored data violated the auth invariant (or
	// could not be decoded) and was dropped.
	Discarded bool
	// LegacyTokenRemoved is true when the dedicated legacy token key existed
	// and was deleted.
	LegacyTokenRemoved bool
}

// Persistence reads and writes the session snapshot through a [Storage]. It is
// the only writer of the snapshot key, and the bearer token read path used by
// the HTTP transport is derived from the same document, so the two views can
// never disagree.
type Persistence struct {
	storage        Storage
	snapshotKey    string
	legacyTokenKey string
}

// NewPersistence wraps storage. Empty keys fall back to
// [DefaultSnapshotKey] and [DefaultLegacyTokenKey].
func NewPersistence(storage Storage, snapshotKey, legacyTokenKey string) *Persistence {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if snapshotKey == "" {
		snapshotKey = DefaultSnapshotKey
	}
	if legacyTokenKey == "" {
		legacyTokenKey = DefaultLegacyTokenKey
	}
	return &Persistence{
		storage:        storage,
		snapshotKey:    snapshotKey,
		legacyTokenKey: legacyTokenKey,
	}
}

// SnapshotKey returns the key holding the snapshot.
func (p *Persistence) SnapshotKey() string {
	return p.snapshotKey
}

// Storage returns the underlying backend.
func (p *Persistence) Storage() Storage {
	return p.storage
}

// Save writes s under the snapshot key.
func (p *Persistence) Save(ctx context.Context, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.storage.Set(ctx, p.snapshotKey, string(data))
}

// Clear writes the empty snapshot. When the write fails it falls back to
// deleting the key so a stale token cannot survive a logout.
func (p *Persistence) Clear(ctx context.Context) error {
	err := p.Save(ctx, Snapshot{})
	if err == nil {
		return nil
	}
	if delErr := p.storage.Delete(ctx, p.snapshotKey); delErr != nil {
		return errors.Join(err, delErr)
	}
	return nil
}

// Snapshot reads the stored snapshot without repairing anything. A missing
// key yields the empty snapshot.
func (p *Persistence) Snapshot(ctx context.Context) (Snapshot, error) {
	raw, err := p.storage.Get(ctx, p.snapshotKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	snap, _, err := Decode([]byte(raw))
	return snap, err
}

// Token returns the bearer token of the stored snapshot, if authenticated.
// Storage or decoding failures read as "no token".
func (p *Persistence) Token(ctx context.Context) (string, bool) {
	snap, err := p.Snapshot(ctx)
	if err != nil || !snap.IsAuthenticated {
		return "", false
	}
	return snap.Token, true
}

// Load reads the snapshot for rehydration. Undecodable or inconsistent data is
// replaced by the empty snapshot, and the legacy token key is deleted. Only
// storage failures are returned as errors.
func (p *Persistence) Load(ctx context.Context) (Snapshot, LoadReport, error) {
	var report LoadReport

	raw, err := p.storage.Get(ctx, p.snapshotKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return Snapshot{}, report, err
	default:
		report.Found = true
	}

	var snap Snapshot
	if report.Found {
		decoded, changed, decErr := Decode([]byte(raw))
		switch {
		case decErr != nil:
			report.Discarded = true
		case changed:
			report.Discarded = true
			snap = decoded
		default:
			snap = decoded
		}
		if report.Discarded {
			if err := p.Save(ctx, snap); err != nil {
				return Snapshot{}, report, err
			}
		}
	}

	if _, err := p.storage.Get(ctx, p.legacyTokenKey); err == nil {
		if err := p.storage.Delete(ctx, p.legacyTokenKey); err != nil {
			return Snapshot{}, report, err
		}
		report.LegacyTokenRemoved = true
	} else if !errors.Is(err, ErrNotFound) {
		return Snapshot{}, report, err
	}

	return snap, report, nil
}
