package v1

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/loancourt/internal/domain"
	"github.com/xiaot623/loancourt/internal/service"
)

// CaseCreateRequest is the request to create a case.
type CaseCreateRequest struct {
	Applicant json.RawMessage `json:"applicant,omitempty"`
}

// CreateCase creates a new case.
// POST /v1/cases
func (h *Handler) CreateCase(c echo.Context) error {
	ctx := c.Request().Context()

	var req CaseCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	created, err := h.svc.CreateCase(ctx, req.Applicant)
	if err != nil {
		log.Printf("ERROR: failed to create case: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to create case"})
	}

	return c.JSON(http.StatusCreated, created)
}

// GetCase gets a case with its document metadata.
// GET /v1/cases/:case_id
func (h *Handler) GetCase(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	kase, docs, err := h.svc.GetCase(ctx, caseID)
	if errors.Is(err, service.ErrCaseNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to get case: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get case"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"case":      kase,
		"documents": docs,
	})
}

// ListCases lists cases with optional query/status filters.
// GET /v1/cases?q=&status=&limit=&offset=
func (h *Handler) ListCases(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	status := domain.CaseStatus(c.QueryParam("status"))

	cases, total, err := h.svc.ListCases(ctx, c.QueryParam("q"), status, limit, offset)
	if err != nil {
		log.Printf("ERROR: failed to list cases: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list cases"})
	}
	if cases == nil {
		cases = []domain.Case{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cases": cases,
		"total": total,
	})
}

// UpdateApplicant merges a partial applicant payload into the case.
// PATCH /v1/cases/:case_id/applicant
func (h *Handler) UpdateApplicant(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	var patch json.RawMessage
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	updated, err := h.svc.UpdateApplicant(ctx, caseID, patch)
	switch {
	case errors.Is(err, service.ErrCaseNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	case errors.Is(err, service.ErrRunActive):
		return c.JSON(http.StatusConflict, map[string]string{"error": "case has an active run"})
	case err != nil:
		log.Printf("ERROR: failed to update applicant: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid applicant payload"})
	}

	return c.JSON(http.StatusOK, updated)
}

// DocumentRequest is the request to attach document metadata.
type DocumentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// AttachDocument records metadata for an uploaded document.
// POST /v1/cases/:case_id/documents
func (h *Handler) AttachDocument(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Filename == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "filename is required"})
	}

	doc, err := h.svc.AttachDocument(ctx, caseID, req.Filename, req.ContentType, req.Size)
	if errors.Is(err, service.ErrCaseNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to attach document: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to attach document"})
	}

	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments lists a case's document metadata in upload order.
// GET /v1/cases/:case_id/documents
func (h *Handler) ListDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	_, docs, err := h.svc.GetCase(ctx, caseID)
	if errors.Is(err, service.ErrCaseNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to list documents: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
	}
	if docs == nil {
		docs = []domain.Document{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// ListAuditEvents returns the case audit trail in chronological order.
// GET /v1/cases/:case_id/audit
func (h *Handler) ListAuditEvents(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	events, err := h.svc.ListAuditEvents(ctx, caseID)
	if errors.Is(err, service.ErrCaseNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to list audit events: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list audit events"})
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
