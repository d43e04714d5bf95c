package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// adminHandler exposes the operational endpoints: ledger verification and
// period-open auto-reversal generation.
type adminHandler struct {
	integritySvc    portssvc.IntegritySvcFacade
	autoReversalSvc portssvc.AutoReversalSvcFacade
}

func newAdminHandler(integritySvc portssvc.IntegritySvcFacade, autoReversalSvc portssvc.AutoReversalSvcFacade) *adminHandler {
	return &adminHandler{
		integritySvc:    integritySvc,
		autoReversalSvc: autoReversalSvc,
	}
}

func registerAdminRoutes(rg *gin.RouterGroup, integritySvc portssvc.IntegritySvcFacade, autoReversalSvc portssvc.AutoReversalSvcFacade) {
	h := newAdminHandler(integritySvc, autoReversalSvc)
	admin := rg.Group("/admin")
	{
		admin.GET("/integrity", h.checkIntegrity)
		admin.POST("/auto-reversals", h.generateAutoReversals)
	}
}

// checkIntegrity runs the full hash chain and accounting equation
// verification for one tenant. A broken ledger still returns 200; the body
// carries the verdict.
func (h *adminHandler) checkIntegrity(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")

	resp, err := h.integritySvc.CheckTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *adminHandler) generateAutoReversals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")

	var req dto.AutoReversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for generateAutoReversals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	count, err := h.autoReversalSvc.GenerateReversals(c.Request.Context(), tenantID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.AutoReversalResponse{ReversalCount: count})
}
