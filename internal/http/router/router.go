package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/http/handler"
	"dataagentjp.io/querycore/internal/service"
)

type RouterConfig struct {
	DefaultTimeout time.Duration
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(services.CatalogAdmin())
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		queryHandler := handler.NewQueryHandler(services.Query(), cfg.DefaultTimeout)
		QueryRouter(v1.Group("/query"), queryHandler)

		catalogHandler := handler.NewCatalogHandler(services.CatalogAdmin())
		CatalogRouter(v1.Group("/catalog"), catalogHandler)
	}
}
