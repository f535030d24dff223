package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/xiaot623/loancourt/internal/domain"
)

// CreateCase creates a new case, optionally with an initial applicant
// payload. A case with a payload starts ready; without one it stays draft
// until the applicant is attached.
func (s *Service) CreateCase(ctx context.Context, applicant json.RawMessage) (*domain.Case, error) {
	now := s.now().UTC()
	c := &domain.Case{
		CaseID:    "case_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		Status:    domain.CaseStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(applicant) > 0 {
		if !json.Valid(applicant) {
			return nil, fmt.Errorf("invalid applicant payload")
		}
		c.Applicant = applicant
		c.Status = domain.CaseStatusReady
	}

	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	s.audit(ctx, c.CaseID, domain.AuditCreatedCase, nil)
	return c, nil
}

// GetCase returns a case with its document metadata.
func (s *Service) GetCase(ctx context.Context, caseID string) (*domain.Case, []domain.Document, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, nil, ErrCaseNotFound
	}

	docs, err := s.store.ListDocuments(ctx, caseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return c, docs, nil
}

// ListCases lists cases filtered by free-text query and status.
func (s *Service) ListCases(ctx context.Context, query string, status domain.CaseStatus, limit, offset int) ([]domain.Case, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListCases(ctx, query, status, limit, offset)
}

// UpdateApplicant merges a partial applicant payload into the case. Fields
// present in the patch overwrite the stored ones; everything else is kept.
// A case with an applicant payload becomes ready.
func (s *Service) UpdateApplicant(ctx context.Context, caseID string, patch json.RawMessage) (*domain.Case, error) {
	if len(patch) == 0 || !json.Valid(patch) {
		return nil, fmt.Errorf("invalid applicant payload")
	}

	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if c.Status == domain.CaseStatusRunning {
		return nil, ErrRunActive
	}

	merged, err := mergeApplicant(c.Applicant, patch)
	if err != nil {
		return nil, err
	}

	status := c.Status
	if status == domain.CaseStatusDraft {
		status = domain.CaseStatusReady
	}
	if err := s.store.UpdateApplicant(ctx, caseID, merged, status); err != nil {
		return nil, fmt.Errorf("failed to update applicant: %w", err)
	}
	s.audit(ctx, caseID, domain.AuditUpdatedApplicant, nil)

	c.Applicant = merged
	c.Status = status
	return c, nil
}

// mergeApplicant overlays the patch's top-level fields onto the base
// payload.
func mergeApplicant(base, patch json.RawMessage) (json.RawMessage, error) {
	if len(base) == 0 {
		return patch, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("applicant payload must be an object: %w", err)
	}

	merged := base
	for key, val := range fields {
		var err error
		merged, err = sjson.SetRawBytes(merged, key, val)
		if err != nil {
			return nil, fmt.Errorf("failed to merge applicant field %q: %w", key, err)
		}
	}
	return merged, nil
}

// AttachDocument records metadata for an uploaded supporting document.
func (s *Service) AttachDocument(ctx context.Context, caseID, filename, contentType string, size int64) (*domain.Document, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}

	doc := &domain.Document{
		DocumentID:  "doc_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		CaseID:      caseID,
		Filename:    filename,
		ContentType: contentType,
		Status:      "stored",
		Size:        size,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	s.audit(ctx, caseID, domain.AuditUploadedDocs, map[string]interface{}{"filename": filename})
	return doc, nil
}

// ListAuditEvents returns the case's audit trail in chronological order.
func (s *Service) ListAuditEvents(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return s.store.ListAuditEvents(ctx, caseID)
}

// audit records a case event. Audit failures are logged, never fatal.
func (s *Service) audit(ctx context.Context, caseID string, eventType domain.AuditEventType, metadata map[string]interface{}) {
	event := &domain.AuditEvent{
		EventID:   "evt_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		CaseID:    caseID,
		EventType: eventType,
		Timestamp: s.now().UTC(),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			event.Metadata = raw
		}
	}
	if err := s.store.CreateAuditEvent(ctx, event); err != nil {
		log.Printf("WARN: failed to record audit event %s for case %s: %v", eventType, caseID, err)
	}
}
