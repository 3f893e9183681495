package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/service"
)

type CatalogHandler struct {
	admin service.CatalogAdminService
}

func NewCatalogHandler(admin service.CatalogAdminService) *CatalogHandler {
	return &CatalogHandler{admin: admin}
}

// Reload rebuilds the catalog and master data snapshots from their
// sources and purges the parser cache. A failure leaves the previous
// snapshots serving.
func (h *CatalogHandler) Reload(c *gin.Context) {
	ctx := c.Request.Context()

	status, err := h.admin.Reload(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "catalog reload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error": gin.H{
				"code":    domain.ErrorCodeInternalError,
				"message": "catalog reload failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"catalog":     status.Catalog,
		"master_data": status.MasterData,
	})
}
