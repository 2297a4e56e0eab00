package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store persists resolved names between runs.
type Store interface {
	LookupNames(ctx context.Context, refs []string) (map[string]string, error)
	SaveNames(ctx context.Context, names map[string]string, fetchedAt time.Time) error
}

// CachedDirectory answers from a Store and asks the upstream Directory only
// for references the store does not know. Upstream answers are written back.
type CachedDirectory struct {
	store    Store
	upstream Directory
	now      func() time.Time
}

// NewCachedDirectory creates a CachedDirectory.
func NewCachedDirectory(store Store, upstream Directory) *CachedDirectory {
	return &CachedDirectory{store: store, upstream: upstream, now: time.Now}
}

// LookupNames implements Directory.
func (d *CachedDirectory) LookupNames(ctx context.Context, refs []string) (map[string]string, error) {
	names, err := d.store.LookupNames(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("lookup stored names: %w", err)
	}

	var missing []string
	for _, ref := range refs {
		if _, ok := names[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) == 0 {
		return names, nil
	}

	fetched, err := d.upstream.LookupNames(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("lookup upstream names: %w", err)
	}
	for ref, name := range fetched {
		names[ref] = name
	}

	if err := d.store.SaveNames(ctx, fetched, d.now()); err != nil {
		// names were resolved; only the write-back failed
		slog.Warn("failed to store resolved names", "count", len(fetched), "error", err)
	}

	return names, nil
}
