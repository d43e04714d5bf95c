package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// reversalHandler handles HTTP requests for reversals and corrections.
type reversalHandler struct {
	reversalSvc portssvc.ReversalSvcFacade
}

func newReversalHandler(reversalSvc portssvc.ReversalSvcFacade) *reversalHandler {
	return &reversalHandler{reversalSvc: reversalSvc}
}

func registerReversalRoutes(rg *gin.RouterGroup, reversalSvc portssvc.ReversalSvcFacade) {
	h := newReversalHandler(reversalSvc)
	entries := rg.Group("/entries")
	{
		entries.POST("/:entryID/reverse", h.reverseEntry)
		entries.POST("/:entryID/correct", h.correctEntry)
	}
}

func (h *reversalHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	entryID := c.Param("entryID")

	var req dto.ReversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for reverseEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.reversalSvc.Reverse(c.Request.Context(), tenantID, entryID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	logger.Info("Entry reversal posted",
		slog.String("journal_entry_id", entryID),
		slog.String("reversal_journal_entry_id", resp.ReversalEntryID),
	)
	c.JSON(http.StatusCreated, resp)
}

func (h *reversalHandler) correctEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	entryID := c.Param("entryID")

	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for correctEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.reversalSvc.Correct(c.Request.Context(), tenantID, entryID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
