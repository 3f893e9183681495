package router

import (
	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/http/handler"
)

func QueryRouter(rg *gin.RouterGroup, h *handler.QueryHandler) {
	rg.POST("/execute", h.Execute)
	rg.POST("/stream", h.Stream)
}
