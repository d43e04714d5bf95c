package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// workflowHandler handles HTTP requests for the manual-entry approval flow.
type workflowHandler struct {
	workflowSvc portssvc.WorkflowSvcFacade
}

func newWorkflowHandler(workflowSvc portssvc.WorkflowSvcFacade) *workflowHandler {
	return &workflowHandler{workflowSvc: workflowSvc}
}

func registerWorkflowRoutes(rg *gin.RouterGroup, workflowSvc portssvc.WorkflowSvcFacade) {
	h := newWorkflowHandler(workflowSvc)
	workflows := rg.Group("/workflows")
	{
		workflows.POST("", h.createDraft)
		workflows.POST("/:workflowID/submit", h.submit)
		workflows.POST("/:workflowID/approve", h.approve)
		workflows.POST("/:workflowID/reject", h.reject)
	}
}

func (h *workflowHandler) createDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for createDraft", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.workflowSvc.CreateDraft(c.Request.Context(), tenantID, req, c.GetHeader("traceparent"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *workflowHandler) submit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	workflowID := c.Param("workflowID")

	var req dto.SubmitWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.workflowSvc.Submit(c.Request.Context(), tenantID, workflowID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *workflowHandler) approve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	workflowID := c.Param("workflowID")

	var req dto.ApproveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.workflowSvc.Approve(c.Request.Context(), tenantID, workflowID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	logger.Info("Workflow approved",
		slog.String("workflow_id", workflowID),
		slog.String("approved_by", req.ApprovedBy),
	)
	c.JSON(http.StatusOK, resp)
}

func (h *workflowHandler) reject(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	workflowID := c.Param("workflowID")

	var req dto.RejectWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	resp, err := h.workflowSvc.Reject(c.Request.Context(), tenantID, workflowID, req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
