// Package domain defines the core domain models for the decisioning service.
package domain

// CaseStatus represents the lifecycle status of a loan case.
type CaseStatus string

const (
	CaseStatusDraft   CaseStatus = "draft"
	CaseStatusReady   CaseStatus = "ready"
	CaseStatusRunning CaseStatus = "running"
	CaseStatusDecided CaseStatus = "decided"
	CaseStatusFailed  CaseStatus = "failed"
)

// RunStatus represents the status of a deliberation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDecided RunStatus = "decided"
	RunStatusFailed  RunStatus = "failed"
)

// IsTerminal reports whether the run has reached a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDecided || s == RunStatusFailed
}

// Stage represents a phase of the fixed debate schedule.
type Stage string

const (
	StageOpening  Stage = "opening"
	StageRebuttal Stage = "rebuttal"
	StageCounter  Stage = "counter"
	StageFinal    Stage = "final_argument"
	StageVerdict  Stage = "verdict"

	// StageDone is the client-facing stage of a finished run. It never
	// appears inside a debate state.
	StageDone Stage = "done"
)

// Speaker identifies a debate participant.
type Speaker string

const (
	SpeakerRisk      Speaker = "risk"
	SpeakerAdvocate  Speaker = "advocate"
	SpeakerModerator Speaker = "moderator"
	SpeakerJudge     Speaker = "judge"
)

// Verdict is the normalized decision keyword.
type Verdict string

const (
	VerdictApprove      Verdict = "approve"
	VerdictReject       Verdict = "reject"
	VerdictManualReview Verdict = "manual_review"
)

// Outcome is the normalized historical loan outcome of a neighbor.
type Outcome string

const (
	OutcomeRepaid  Outcome = "repaid"
	OutcomeDefault Outcome = "default"
)

// AuditEventType represents the type of a case audit event.
type AuditEventType string

const (
	AuditCreatedCase      AuditEventType = "created_case"
	AuditUpdatedApplicant AuditEventType = "updated_applicant"
	AuditUploadedDocs     AuditEventType = "uploaded_docs"
	AuditStartedRun       AuditEventType = "started_run"
	AuditRunDecided       AuditEventType = "run_decided"
	AuditRunFailed        AuditEventType = "run_failed"
)
