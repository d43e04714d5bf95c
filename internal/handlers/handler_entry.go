package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// entryHandler handles HTTP requests for ledger entries.
type entryHandler struct {
	postingSvc portssvc.PostingSvcFacade
}

func newEntryHandler(postingSvc portssvc.PostingSvcFacade) *entryHandler {
	return &entryHandler{postingSvc: postingSvc}
}

func registerEntryRoutes(rg *gin.RouterGroup, postingSvc portssvc.PostingSvcFacade) {
	h := newEntryHandler(postingSvc)
	entries := rg.Group("/entries")
	{
		entries.POST("", h.postEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
	}
}

// postEntry accepts one financial event and posts it to the ledger. Replays
// of the same event id return the recorded response with 200.
func (h *entryHandler) postEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for postEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	traceparent := c.GetHeader("traceparent")
	resp, err := h.postingSvc.PostEntry(c.Request.Context(), tenantID, req, traceparent)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	logger.Info("Entry posting accepted",
		slog.String("event_id", req.SourceEventID),
		slog.String("journal_entry_id", resp.EntryID),
		slog.String("status", string(resp.Status)),
	)
	c.JSON(http.StatusCreated, resp)
}

func (h *entryHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")
	entryID := c.Param("entryID")

	resp, err := h.postingSvc.GetEntry(c.Request.Context(), tenantID, entryID)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *entryHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID := c.Param("tenantID")

	params := dto.ListEntriesParams{}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		params.Limit = limit
	}
	if token := c.Query("nextToken"); token != "" {
		params.NextToken = &token
	}

	resp, err := h.postingSvc.ListEntries(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
