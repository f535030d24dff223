// Package v1 provides the HTTP handlers for the decisioning API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/loancourt/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Case API
	e.POST("/v1/cases", h.CreateCase)
	e.GET("/v1/cases", h.ListCases)
	e.GET("/v1/cases/:case_id", h.GetCase)
	e.PATCH("/v1/cases/:case_id/applicant", h.UpdateApplicant)
	e.POST("/v1/cases/:case_id/documents", h.AttachDocument)
	e.GET("/v1/cases/:case_id/documents", h.ListDocuments)
	e.GET("/v1/cases/:case_id/audit", h.ListAuditEvents)

	// Run API
	e.POST("/v1/cases/:case_id/run", h.StartRun)
	e.GET("/v1/runs/:run_id/status", h.RunStatus)
	e.GET("/v1/runs/:run_id/transcript", h.RunTranscript)
	e.GET("/v1/runs/:run_id/decision", h.RunDecision)

	// Dashboard
	e.GET("/v1/dashboard/stats", h.DashboardStats)

	e.GET("/health", h.Health)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
