package domain

import (
	"encoding/json"
	"time"
)

// Case represents one loan application under review.
type Case struct {
	CaseID    string          `json:"case_id"`
	Status    CaseStatus      `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Applicant json.RawMessage `json:"applicant,omitempty"`

	// Populated once a run reaches a terminal state; durable copies of
	// the run outputs, decoupled from the run record's own lifetime.
	Retrieval json.RawMessage `json:"retrieval,omitempty"`
	Debate    json.RawMessage `json:"debate,omitempty"`
	Decision  json.RawMessage `json:"decision,omitempty"`

	// ActiveRunID is the run currently attached to this case, if any.
	ActiveRunID string `json:"active_run_id,omitempty"`
}

// DebateSnapshot is the transcript copy stored on the case row.
type DebateSnapshot struct {
	RunID     string              `json:"run_id"`
	Stage     Stage               `json:"stage"`
	Messages  []TranscriptMessage `json:"messages"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Document represents uploaded supporting material for a case. Only
// metadata is tracked; content extraction is out of scope.
type Document struct {
	DocumentID  string    `json:"document_id"`
	CaseID      string    `json:"case_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Status      string    `json:"status"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEvent is an append-only record of something that happened to a case.
type AuditEvent struct {
	EventID   string          `json:"event_id"`
	CaseID    string          `json:"case_id"`
	EventType AuditEventType  `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
