// Package identity accumulates identity references seen while normalizing transaction logs
// and resolves them to display names in one batch.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of resolved names kept in memory.
const DefaultCacheSize = 4096

// Directory looks up display names for identity references.
// References it does not know are left out of the result.
type Directory interface {
	LookupNames(ctx context.Context, refs []string) (map[string]string, error)
}

// Registry collects identity references and resolves them through a Directory.
// Register is safe for concurrent use.
type Registry struct {
	directory Directory

	mu      sync.Mutex
	pending map[string]struct{}
	names   *lru.Cache[string, string]
}

// NewRegistry creates a Registry backed by directory.
func NewRegistry(directory Directory, cacheSize int) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	names, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create name cache: %w", err)
	}
	return &Registry{
		directory: directory,
		pending:   make(map[string]struct{}),
		names:     names,
	}, nil
}

// Register adds a reference to the next batch resolution. Empty and already
// resolved references are ignored.
func (r *Registry) Register(ref string) {
	if ref == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names.Contains(ref) {
		return
	}
	r.pending[ref] = struct{}{}
}

// Pending returns the registered references that have not been resolved yet, sorted.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]string, 0, len(r.pending))
	for ref := range r.pending {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Resolve looks up every pending reference in one directory call.
// References the directory does not know stay unresolved and are not retried.
func (r *Registry) Resolve(ctx context.Context) error {
	refs := r.Pending()
	if len(refs) == 0 {
		return nil
	}

	names, err := r.directory.LookupNames(ctx, refs)
	if err != nil {
		return fmt.Errorf("lookup %d identities: %w", len(refs), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		if name, ok := names[ref]; ok {
			r.names.Add(ref, name)
		}
		delete(r.pending, ref)
	}

	slog.Debug("identities resolved",
		"requested", len(refs),
		"resolved", len(names),
	)

	return nil
}

// NameOf returns the display name of a resolved reference.
func (r *Registry) NameOf(ref string) (string, bool) {
	return r.names.Get(ref)
}
