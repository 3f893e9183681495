package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Source loads reference entries grouped by kind. A source may cover
// only some kinds; the loader falls through per kind.
type Source interface {
	Name() string
	Load(ctx context.Context) (map[Kind][]Entry, error)
}

// Loader assembles a Store from prioritized sources. Unlike the
// catalog, empty reference data is not fatal: validation for that kind
// is disabled instead (Store.Exists accepts everything).
type Loader struct {
	sources []Source
}

func NewLoader(sources ...Source) *Loader {
	return &Loader{sources: sources}
}

func (l *Loader) Load(ctx context.Context) (*Store, error) {
	start := time.Now()

	merged := make(map[Kind][]Entry, len(Kinds))
	for _, src := range l.sources {
		data, err := src.Load(ctx)
		if err != nil {
			slog.WarnContext(ctx, "master data source failed, falling back",
				"source", src.Name(), "error", err)
			continue
		}
		for _, kind := range Kinds {
			if len(merged[kind]) > 0 || len(data[kind]) == 0 {
				continue
			}
			merged[kind] = data[kind]
			slog.InfoContext(ctx, "master data loaded",
				"kind", string(kind), "source", src.Name(), "count", len(data[kind]))
		}
	}

	store := NewStore(merged)
	for _, kind := range Kinds {
		if !store.Validatable(kind) {
			slog.WarnContext(ctx, "master data empty, existence checks disabled for kind",
				"kind", string(kind))
		}
	}

	slog.InfoContext(ctx, "master data ready",
		"items", store.Counts().Items,
		"warehouses", store.Counts().Warehouses,
		"workstations", store.Counts().Workstations,
		"duration_ms", time.Since(start).Milliseconds())

	return store, nil
}

// Holder guards the current snapshot, mirroring the catalog holder.
type Holder struct {
	mu     sync.RWMutex
	store  *Store
	loader *Loader
}

func NewHolder(loader *Loader) *Holder {
	return &Holder{loader: loader}
}

func (h *Holder) Load(ctx context.Context) error {
	store, err := h.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load master data: %w", err)
	}

	h.mu.Lock()
	h.store = store
	h.mu.Unlock()
	return nil
}

func (h *Holder) Current() *Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

func (h *Holder) Reload(ctx context.Context) error {
	store, err := h.loader.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "master data reload failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("reload master data: %w", err)
	}

	h.mu.Lock()
	h.store = store
	h.mu.Unlock()
	return nil
}
