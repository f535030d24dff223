// Package store defines the storage interface and implementations for
// durable case data.
package store

import (
	"context"
	"encoding/json"

	"github.com/xiaot623/loancourt/internal/domain"
)

// Store defines the interface for case persistence.
type Store interface {
	// Case operations
	CreateCase(ctx context.Context, c *domain.Case) error
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	ListCases(ctx context.Context, query string, status domain.CaseStatus, limit, offset int) ([]domain.Case, int, error)
	UpdateApplicant(ctx context.Context, caseID string, applicant json.RawMessage, status domain.CaseStatus) error
	SetActiveRun(ctx context.Context, caseID, runID string, status domain.CaseStatus) error
	SetCaseOutcome(ctx context.Context, caseID string, status domain.CaseStatus, retrieval, debate, decision json.RawMessage) error

	// Document operations
	CreateDocument(ctx context.Context, doc *domain.Document) error
	ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error)

	// Audit operations
	CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error
	ListAuditEvents(ctx context.Context, caseID string) ([]domain.AuditEvent, error)

	// Dashboard
	CaseStats(ctx context.Context) (domain.DashboardStats, error)

	// Lifecycle
	Close() error
}
