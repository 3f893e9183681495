package router

import (
	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/http/handler"
)

func CatalogRouter(rg *gin.RouterGroup, h *handler.CatalogHandler) {
	rg.POST("/reload", h.Reload)
}
