package service

import (
	"log/slog"

	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/executor"
	"dataagentjp.io/querycore/internal/masterdata"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/prevalidate"
	"dataagentjp.io/querycore/internal/resolver"
)

type ServicesParams struct {
	Parser           *nlq.Parser
	Validator        *prevalidate.Validator
	Resolver         *resolver.Resolver
	Executor         executor.Executor
	CatalogHolder    *catalog.Holder
	MasterDataHolder *masterdata.Holder
	Debug            bool
	Logger           *slog.Logger
}

type Services struct {
	query QueryService
	admin CatalogAdminService
}

func NewServices(params ServicesParams) *Services {
	return &Services{
		query: NewQueryService(QueryServiceParams{
			Parser:    params.Parser,
			Validator: params.Validator,
			Resolver:  params.Resolver,
			Executor:  params.Executor,
			Debug:     params.Debug,
			Logger:    params.Logger,
		}),
		admin: NewCatalogAdminService(
			params.CatalogHolder,
			params.MasterDataHolder,
			params.Parser,
			params.Logger,
		),
	}
}

func (s *Services) Query() QueryService {
	return s.query
}

func (s *Services) CatalogAdmin() CatalogAdminService {
	return s.admin
}
