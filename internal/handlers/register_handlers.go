package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/finstack/fisledger/internal/core/services"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(r *gin.Engine, svcs *services.Container) {
	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	setupAPIV1Routes(r, svcs)
}

// setupAPIV1Routes configures the tenant-scoped /api/v1 group and delegates
// to the entity route registrations.
func setupAPIV1Routes(r *gin.Engine, svcs *services.Container) {
	v1 := r.Group("/api/v1")
	tenant := v1.Group("/tenants/:tenantID")

	registerEntryRoutes(tenant, svcs.Posting)
	registerReversalRoutes(tenant, svcs.Reversal)
	registerWorkflowRoutes(tenant, svcs.Workflow)
	registerAdminRoutes(tenant, svcs.Integrity, svcs.AutoReversal)
}
