package service

import (
	"context"
	"log/slog"
	"time"

	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/masterdata"
)

// CatalogStatus reports what the service is currently working from.
type CatalogStatus struct {
	Catalog    catalog.Counts    `json:"catalog"`
	MasterData masterdata.Counts `json:"master_data"`
}

// CachePurger drops parse results that may reference stale catalog
// entries. The NLQ parser implements it.
type CachePurger interface {
	PurgeCache()
}

// CatalogAdminService exposes the operational surface of the catalog:
// a hot reload and the counts shown on the health endpoint.
type CatalogAdminService interface {
	Reload(ctx context.Context) (*CatalogStatus, error)
	Status() *CatalogStatus
}

type catalogAdminService struct {
	catalog *catalog.Holder
	masters *masterdata.Holder
	purger  CachePurger
	logger  *slog.Logger
}

func NewCatalogAdminService(catalogHolder *catalog.Holder, masterHolder *masterdata.Holder, purger CachePurger, logger *slog.Logger) CatalogAdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogAdminService{
		catalog: catalogHolder,
		masters: masterHolder,
		purger:  purger,
		logger:  logger,
	}
}

// Reload swaps in fresh catalog and master data snapshots. In-flight
// requests keep the snapshot they started with. A failed reload leaves
// the previous snapshot active and returns the error.
func (s *catalogAdminService) Reload(ctx context.Context) (*CatalogStatus, error) {
	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "querycore.service.catalog_admin"})

	if err := s.catalog.Reload(ctx); err != nil {
		s.logger.ErrorContext(ctx, "catalog reload failed", "error", err)
		return nil, err
	}
	if err := s.masters.Reload(ctx); err != nil {
		s.logger.ErrorContext(ctx, "master data reload failed", "error", err)
		return nil, err
	}
	if s.purger != nil {
		s.purger.PurgeCache()
	}

	status := s.Status()
	s.logger.InfoContext(ctx, "catalog reloaded",
		"concepts", status.Catalog.Concepts,
		"intents", status.Catalog.Intents,
		"bindings", status.Catalog.Bindings,
		"duration_ms", time.Since(start).Milliseconds())
	return status, nil
}

func (s *catalogAdminService) Status() *CatalogStatus {
	return &CatalogStatus{
		Catalog:    s.catalog.Current().Counts(),
		MasterData: s.masters.Current().Counts(),
	}
}
