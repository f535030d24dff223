package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/loancourt/internal/debate"
	"github.com/xiaot623/loancourt/internal/domain"
	"github.com/xiaot623/loancourt/internal/normalize"
	"github.com/xiaot623/loancourt/internal/policy"
)

const debateTopic = "Should we approve this loan application?"

// Progress milestones reported to polling clients. Coarse on purpose: the
// pipeline has two long phases (retrieval, debate) and clients only need to
// see that the run is moving.
const (
	progressStarted   = 10
	progressRetrieved = 20
	progressDone      = 100
)

// StartRun validates the case, gates it through the prescreen policy, and
// launches the deliberation pipeline in the background. It returns as soon
// as the run record exists; clients poll for everything after that. topK
// overrides the configured neighbor count when positive.
func (s *Service) StartRun(ctx context.Context, caseID string, topK int) (*domain.RunRecord, error) {
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if len(c.Applicant) == 0 {
		return nil, ErrNoApplicant
	}
	if s.hasActiveRun(c) {
		return nil, ErrRunActive
	}

	if err := s.runPrescreen(ctx, caseID, c.Applicant); err != nil {
		return nil, err
	}

	runID := "run_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	s.runs.Create(runID, caseID, domain.StageOpening, progressStarted)

	if err := s.store.SetActiveRun(ctx, caseID, runID, domain.CaseStatusRunning); err != nil {
		return nil, fmt.Errorf("failed to attach run to case: %w", err)
	}
	s.audit(ctx, caseID, domain.AuditStartedRun, map[string]interface{}{"run_id": runID})

	// The pipeline outlives the request; it carries its own context.
	go s.executePipeline(context.Background(), runID, caseID, c.Applicant, topK)

	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// hasActiveRun reports whether the case has a run that has not terminated.
func (s *Service) hasActiveRun(c *domain.Case) bool {
	if c.Status == domain.CaseStatusRunning {
		return true
	}
	if c.ActiveRunID == "" {
		return false
	}
	run, err := s.runs.Get(c.ActiveRunID)
	if err != nil {
		// Run record evaporated (e.g. restart); the case is startable.
		return false
	}
	return !run.Status.IsTerminal()
}

// runPrescreen evaluates the prescreen policy. Block rejects the start;
// review is recorded and the run proceeds.
func (s *Service) runPrescreen(ctx context.Context, caseID string, applicant json.RawMessage) error {
	if s.prescreen == nil {
		return nil
	}

	var payload interface{}
	if err := json.Unmarshal(applicant, &payload); err != nil {
		return fmt.Errorf("invalid applicant payload: %w", err)
	}

	decision, err := s.prescreen.Evaluate(ctx, map[string]interface{}{"applicant": payload})
	if err != nil {
		return fmt.Errorf("prescreen evaluation failed: %w", err)
	}
	switch decision {
	case policy.DecisionBlock:
		return ErrPrescreenBlocked
	case policy.DecisionReview:
		log.Printf("WARN: prescreen flagged case %s for review, deliberation proceeds", caseID)
	}
	return nil
}

// executePipeline runs retrieval, the debate, and normalization for one run.
// Every failure path lands in failRun; the goroutine never panics the server
// over a bad generation.
func (s *Service) executePipeline(ctx context.Context, runID, caseID string, applicant json.RawMessage, topK int) {
	neighbors, stats, err := s.neighbors.Gather(ctx, applicant, topK)
	if err != nil {
		s.failRun(ctx, runID, caseID, fmt.Errorf("evidence retrieval failed: %w", err))
		return
	}
	if err := s.runs.SetStatus(runID, domain.RunStatusRunning, domain.StageOpening, progressRetrieved); err != nil {
		log.Printf("ERROR: failed to update run %s: %v", runID, err)
		return
	}

	state := &domain.DebateState{
		Applicant:     applicant,
		Neighbors:     neighbors,
		NeighborStats: stats,
		Topic:         debateTopic,
	}

	engine := debate.NewEngine(
		debate.NewRiskAgent(s.gen),
		debate.NewAdvocateAgent(s.gen),
		debate.NewJudge(s.gen, s.policies, s.cfg.PolicyTopK, s.cfg.PolicyMinSim),
		debate.NewModerator(),
		s.cfg.MaxTurns,
	)

	onTurn := func(msg domain.DebateMessage) {
		if err := s.runs.AppendMessage(runID, normalize.Message(msg, s.now())); err != nil {
			log.Printf("ERROR: failed to append turn to run %s: %v", runID, err)
		}
		if err := s.runs.SetStatus(runID, domain.RunStatusRunning, normalize.Stage(msg.Stage), progressRetrieved); err != nil {
			log.Printf("ERROR: failed to update run %s stage: %v", runID, err)
		}
	}

	state, err = engine.Run(ctx, state, onTurn)
	if err != nil {
		s.failRun(ctx, runID, caseID, fmt.Errorf("debate failed: %w", err))
		return
	}

	retrievalSummary := normalize.Retrieval(topK, neighbors, stats)
	decision := normalize.Decision(state.Messages, retrievalSummary.Neighbors)

	if err := s.runs.SetRetrieval(runID, retrievalSummary); err != nil {
		log.Printf("ERROR: failed to store retrieval for run %s: %v", runID, err)
	}
	if err := s.runs.SetDecision(runID, decision); err != nil {
		log.Printf("ERROR: failed to store decision for run %s: %v", runID, err)
	}

	if err := s.persistOutcome(ctx, runID, caseID, retrievalSummary, decision); err != nil {
		s.failRun(ctx, runID, caseID, err)
		return
	}

	if err := s.runs.SetStatus(runID, domain.RunStatusDecided, domain.StageDone, progressDone); err != nil {
		log.Printf("ERROR: failed to finalize run %s: %v", runID, err)
	}
	s.audit(ctx, caseID, domain.AuditRunDecided, map[string]interface{}{
		"run_id":  runID,
		"verdict": string(decision.Verdict),
	})
	log.Printf("run %s decided: %s (confidence %.2f)", runID, decision.Verdict, decision.Confidence)
}

// persistOutcome writes the durable copies of the run outputs onto the case
// row. The case keeps its own copies so the outcome survives run-store
// eviction and restarts.
func (s *Service) persistOutcome(ctx context.Context, runID, caseID string, retrievalSummary domain.RetrievalSummary, decision domain.Decision) error {
	run, err := s.runs.Get(runID)
	if err != nil {
		return fmt.Errorf("run vanished before persist: %w", err)
	}

	snapshot := domain.DebateSnapshot{
		RunID:     runID,
		Stage:     domain.StageDone,
		Messages:  run.Messages,
		StartedAt: run.StartedAt,
		UpdatedAt: s.now().UTC(),
	}

	retrievalJSON, err := json.Marshal(retrievalSummary)
	if err != nil {
		return fmt.Errorf("failed to encode retrieval: %w", err)
	}
	debateJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode debate snapshot: %w", err)
	}
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	if err := s.store.SetCaseOutcome(ctx, caseID, domain.CaseStatusDecided, retrievalJSON, debateJSON, decisionJSON); err != nil {
		return fmt.Errorf("failed to persist case outcome: %w", err)
	}
	return nil
}

// failRun marks the run and case failed and appends a synthetic moderator
// turn so the transcript records what happened.
func (s *Service) failRun(ctx context.Context, runID, caseID string, cause error) {
	log.Printf("ERROR: run %s failed: %v", runID, cause)

	msg := domain.TranscriptMessage{
		Role:      "MODERATOR",
		Content:   fmt.Sprintf("Run failed: %v", cause),
		Stage:     domain.StageDone,
		Timestamp: s.now().UTC(),
	}
	if err := s.runs.AppendMessage(runID, msg); err != nil {
		log.Printf("ERROR: failed to append failure turn to run %s: %v", runID, err)
	}
	if err := s.runs.SetStatus(runID, domain.RunStatusFailed, domain.StageDone, progressDone); err != nil {
		log.Printf("ERROR: failed to mark run %s failed: %v", runID, err)
	}
	if err := s.store.SetActiveRun(ctx, caseID, runID, domain.CaseStatusFailed); err != nil {
		log.Printf("ERROR: failed to mark case %s failed: %v", caseID, err)
	}
	s.audit(ctx, caseID, domain.AuditRunFailed, map[string]interface{}{
		"run_id": runID,
		"error":  cause.Error(),
	})
}
