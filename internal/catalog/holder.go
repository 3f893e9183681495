package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Holder guards the current catalog snapshot. Readers always get a
// complete store; Reload swaps in a fully validated replacement or
// keeps the old one, never anything in between.
type Holder struct {
	mu     sync.RWMutex
	store  *Store
	loader *Loader
}

func NewHolder(loader *Loader) *Holder {
	return &Holder{loader: loader}
}

// Load performs the initial load. The service must not start serving
// without a catalog, so failure here is fatal to startup.
func (h *Holder) Load(ctx context.Context) error {
	store, err := h.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	h.mu.Lock()
	h.store = store
	h.mu.Unlock()
	return nil
}

// Current returns the active snapshot. Callers keep using the returned
// store even across a concurrent reload; it stays internally consistent.
func (h *Holder) Current() *Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// Reload loads a fresh snapshot and swaps it in. On failure the
// previous snapshot stays active and the error is returned for the
// caller to report.
func (h *Holder) Reload(ctx context.Context) error {
	start := time.Now()

	store, err := h.loader.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "catalog reload failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("reload catalog: %w", err)
	}

	h.mu.Lock()
	h.store = store
	h.mu.Unlock()

	slog.InfoContext(ctx, "catalog reloaded",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
