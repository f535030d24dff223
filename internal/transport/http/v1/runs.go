package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/loancourt/internal/service"
)

// RunStartRequest carries the optional run parameters.
type RunStartRequest struct {
	TopK int `json:"top_k,omitempty"`
}

// StartRun launches a deliberation run for a case.
// POST /v1/cases/:case_id/run
func (h *Handler) StartRun(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("case_id")

	var req RunStartRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
	}

	run, err := h.svc.StartRun(ctx, caseID, req.TopK)
	switch {
	case errors.Is(err, service.ErrCaseNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
	case errors.Is(err, service.ErrNoApplicant):
		return c.JSON(http.StatusConflict, map[string]string{"error": "case has no applicant payload"})
	case errors.Is(err, service.ErrRunActive):
		return c.JSON(http.StatusConflict, map[string]string{"error": "case already has an active run"})
	case errors.Is(err, service.ErrPrescreenBlocked):
		return c.JSON(http.StatusConflict, map[string]string{"error": "applicant blocked by prescreen policy"})
	case err != nil:
		log.Printf("ERROR: failed to start run: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start run"})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"run_id":  run.RunID,
		"case_id": run.CaseID,
		"status":  run.Status,
	})
}

// RunStatus returns the lifecycle snapshot of a run.
// GET /v1/runs/:run_id/status
func (h *Handler) RunStatus(c echo.Context) error {
	run, err := h.svc.RunStatus(c.Param("run_id"))
	if errors.Is(err, service.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to get run status: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run status"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":     run.RunID,
		"case_id":    run.CaseID,
		"status":     run.Status,
		"stage":      run.Stage,
		"progress":   run.Progress,
		"started_at": run.StartedAt,
		"updated_at": run.UpdatedAt,
	})
}

// RunTranscript returns the transcript accumulated so far.
// GET /v1/runs/:run_id/transcript
func (h *Handler) RunTranscript(c echo.Context) error {
	run, err := h.svc.RunTranscript(c.Param("run_id"))
	if errors.Is(err, service.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	if err != nil {
		log.Printf("ERROR: failed to get run transcript: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run transcript"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":     run.RunID,
		"status":     run.Status,
		"stage":      run.Stage,
		"messages":   run.Messages,
		"updated_at": run.UpdatedAt,
	})
}

// RunDecision returns the decision and evidence for a decided run.
// GET /v1/runs/:run_id/decision
func (h *Handler) RunDecision(c echo.Context) error {
	run, err := h.svc.RunDecision(c.Param("run_id"))
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	case errors.Is(err, service.ErrDecisionNotReady):
		return c.JSON(http.StatusConflict, map[string]string{"error": "decision not ready"})
	case err != nil:
		log.Printf("ERROR: failed to get run decision: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run decision"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":    run.RunID,
		"status":    run.Status,
		"decision":  run.Decision,
		"retrieval": run.Retrieval,
	})
}
