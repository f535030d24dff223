// Package service implements the case and run lifecycle: case CRUD, the
// asynchronous deliberation pipeline, and the polling queries over run state.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/xiaot623/loancourt/internal/adapter/llm"
	"github.com/xiaot623/loancourt/internal/config"
	"github.com/xiaot623/loancourt/internal/debate"
	"github.com/xiaot623/loancourt/internal/domain"
	"github.com/xiaot623/loancourt/internal/policy"
	store "github.com/xiaot623/loancourt/internal/repository"
	"github.com/xiaot623/loancourt/internal/retrieval"
	"github.com/xiaot623/loancourt/internal/runstore"
)

// Sentinel errors mapped to HTTP status codes by the transport layer.
var (
	// ErrCaseNotFound means the case id is unknown.
	ErrCaseNotFound = errors.New("case not found")
	// ErrRunNotFound means the run id is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrNoApplicant means a run was requested for a case without an
	// applicant payload.
	ErrNoApplicant = errors.New("case has no applicant payload")
	// ErrRunActive means the case already has a non-terminal run.
	ErrRunActive = errors.New("case already has an active run")
	// ErrPrescreenBlocked means the prescreen policy rejected the applicant
	// payload before any deliberation started.
	ErrPrescreenBlocked = errors.New("applicant blocked by prescreen policy")
	// ErrDecisionNotReady means the run has not produced a decision yet.
	ErrDecisionNotReady = errors.New("decision not ready")
)

// NeighborSearcher gathers historical neighbor evidence for an applicant.
// Satisfied by retrieval.Aggregator.
type NeighborSearcher interface {
	Gather(ctx context.Context, applicant json.RawMessage, topK int) ([]domain.EvidenceItem, domain.NeighborStats, error)
}

// Service coordinates storage, retrieval, and the debate engine.
type Service struct {
	cfg       *config.Config
	store     store.Store
	runs      *runstore.Store
	neighbors NeighborSearcher
	policies  debate.PolicySearcher
	gen       llm.Generator
	prescreen *policy.Engine

	// now is swappable for tests.
	now func() time.Time
}

// New creates the service. policies and prescreen may be nil; the pipeline
// then runs without policy citations and without the prescreen gate.
func New(cfg *config.Config, st store.Store, runs *runstore.Store, neighbors NeighborSearcher, policies debate.PolicySearcher, gen llm.Generator, prescreen *policy.Engine) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		runs:      runs,
		neighbors: neighbors,
		policies:  policies,
		gen:       gen,
		prescreen: prescreen,
		now:       time.Now,
	}
}

// Ensure retrieval.Aggregator satisfies the searcher contract.
var _ NeighborSearcher = (*retrieval.Aggregator)(nil)
