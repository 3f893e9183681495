package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/domain"
)

// Sources feed one catalog section each. A source that errors or yields
// nothing falls through to the next one in priority order, so a remote
// outage degrades to local files instead of failing the service.
type ConceptSource interface {
	Name() string
	Concepts(ctx context.Context, systemID string) ([]Concept, error)
}

type IntentSource interface {
	Name() string
	Intents(ctx context.Context, systemID string) ([]Intent, error)
}

type BindingSource interface {
	Name() string
	Bindings(ctx context.Context, systemID string) ([]Binding, error)
}

type TableSource interface {
	Name() string
	Tables(ctx context.Context) ([]TableSchema, error)
}

// Loader assembles a Store from prioritized sources and validates the
// result against the active dialect.
type Loader struct {
	systemID string
	dialect  domain.Dialect

	concepts []ConceptSource
	intents  []IntentSource
	bindings []BindingSource
	tables   []TableSource
}

type LoaderParams struct {
	SystemID string
	Dialect  domain.Dialect

	ConceptSources []ConceptSource
	IntentSources  []IntentSource
	BindingSources []BindingSource
	TableSources   []TableSource
}

func NewLoader(params LoaderParams) *Loader {
	return &Loader{
		systemID: params.SystemID,
		dialect:  params.Dialect,
		concepts: params.ConceptSources,
		intents:  params.IntentSources,
		bindings: params.BindingSources,
		tables:   params.TableSources,
	}
}

// Load walks every section's source chain, normalizes what it finds and
// returns a validated store. It fails when no source yields bindings or
// when an intent references a concept unbound for the active dialect.
// Concepts and intents may legitimately be empty; the rule parser still
// works without them, so those only warn.
func (l *Loader) Load(ctx context.Context) (*Store, error) {
	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SystemID:  logger.Ptr(l.systemID),
		Component: "querycore.catalog.loader",
	})

	var rawConcepts []Concept
	for _, src := range l.concepts {
		items, err := src.Concepts(ctx, l.systemID)
		if err != nil {
			slog.WarnContext(ctx, "catalog concept source failed, falling back",
				"source", src.Name(), "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		slog.InfoContext(ctx, "catalog concepts loaded", "source", src.Name(), "count", len(items))
		rawConcepts = items
		break
	}

	var rawIntents []Intent
	for _, src := range l.intents {
		items, err := src.Intents(ctx, l.systemID)
		if err != nil {
			slog.WarnContext(ctx, "catalog intent source failed, falling back",
				"source", src.Name(), "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		slog.InfoContext(ctx, "catalog intents loaded", "source", src.Name(), "count", len(items))
		rawIntents = items
		break
	}

	var rawBindings []Binding
	for _, src := range l.bindings {
		items, err := src.Bindings(ctx, l.systemID)
		if err != nil {
			slog.WarnContext(ctx, "catalog binding source failed, falling back",
				"source", src.Name(), "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		slog.InfoContext(ctx, "catalog bindings loaded", "source", src.Name(), "count", len(items))
		rawBindings = items
		break
	}

	if len(rawBindings) == 0 {
		return nil, fmt.Errorf("no catalog source yielded bindings for system %q", l.systemID)
	}

	var rawTables []TableSchema
	for _, src := range l.tables {
		items, err := src.Tables(ctx)
		if err != nil {
			slog.WarnContext(ctx, "catalog table source failed, falling back",
				"source", src.Name(), "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		rawTables = items
		break
	}

	concepts := make([]Concept, 0, len(rawConcepts))
	for _, c := range rawConcepts {
		normalized, err := normalizeConcept(c)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, normalized)
	}

	bindings := make([]Binding, 0, len(rawBindings))
	for _, b := range rawBindings {
		normalized, err := normalizeBinding(b)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, normalized)
	}

	store, err := NewStore(concepts, rawIntents, bindings, rawTables)
	if err != nil {
		return nil, err
	}

	if err := store.CrossCheck(l.dialect); err != nil {
		return nil, err
	}

	counts := store.Counts()
	if counts.Concepts == 0 {
		slog.WarnContext(ctx, "catalog has no concepts, concept matching degraded")
	}
	if counts.Intents == 0 {
		slog.WarnContext(ctx, "catalog has no intents, only rule fallback parsing available")
	}

	slog.InfoContext(ctx, "catalog loaded",
		"dialect", string(l.dialect),
		"concepts", counts.Concepts,
		"intents", counts.Intents,
		"bindings", counts.Bindings,
		"tables", counts.Tables,
		"duration_ms", time.Since(start).Milliseconds())

	return store, nil
}
