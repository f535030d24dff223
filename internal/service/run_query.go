package service

import (
	"errors"

	"github.com/xiaot623/loancourt/internal/domain"
	"github.com/xiaot623/loancourt/internal/runstore"
)

// RunStatus returns the current lifecycle snapshot of a run.
func (s *Service) RunStatus(runID string) (*domain.RunRecord, error) {
	run, err := s.runs.Get(runID)
	if errors.Is(err, runstore.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// RunTranscript returns the transcript accumulated so far. Callable at any
// point in the run's life; mid-run it returns the partial transcript.
func (s *Service) RunTranscript(runID string) (*domain.RunRecord, error) {
	return s.RunStatus(runID)
}

// RunDecision returns the decision and evidence for a decided run. Until
// both are set the decision is not ready, even if the status already reads
// terminal.
func (s *Service) RunDecision(runID string) (*domain.RunRecord, error) {
	run, err := s.RunStatus(runID)
	if err != nil {
		return nil, err
	}
	if run.Decision == nil || run.Retrieval == nil {
		return nil, ErrDecisionNotReady
	}
	return run, nil
}
