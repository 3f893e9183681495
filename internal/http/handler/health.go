package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/service"
)

type HealthHandler struct {
	admin service.CatalogAdminService
}

func NewHealthHandler(admin service.CatalogAdminService) *HealthHandler {
	return &HealthHandler{admin: admin}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := h.admin.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"catalog":     status.Catalog,
		"master_data": status.MasterData,
	})
}
