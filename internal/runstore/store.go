// Package runstore tracks run records for polling clients.
//
// A record is created synchronously when a run starts and then mutated by
// exactly one background goroutine; status/transcript/decision queries may
// arrive at any point in between. All reads return deep-copied snapshots so
// a reader can never observe a half-applied update, and updated_at never
// moves backward.
package runstore

import (
	"errors"
	"sync"
	"time"

	"github.com/xiaot623/loancourt/internal/domain"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store is an in-memory run record store safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*domain.RunRecord

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty run store.
func New() *Store {
	return &Store{
		runs: make(map[string]*domain.RunRecord),
		now:  time.Now,
	}
}

// Create registers a new run record in the running state.
func (s *Store) Create(runID, caseID string, stage domain.Stage, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.runs[runID] = &domain.RunRecord{
		RunID:     runID,
		CaseID:    caseID,
		Status:    domain.RunStatusRunning,
		Stage:     stage,
		Progress:  progress,
		Messages:  []domain.TranscriptMessage{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates status, stage, and progress for a run.
func (s *Store) SetStatus(runID string, status domain.RunStatus, stage domain.Stage, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	run.Stage = stage
	run.Progress = progress
	s.touch(run)
	return nil
}

// AppendMessage appends one transcript message to a run.
func (s *Store) AppendMessage(runID string, msg domain.TranscriptMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Messages = append(run.Messages, msg)
	s.touch(run)
	return nil
}

// SetRetrieval records the final evidence summary for a run. Set once.
func (s *Store) SetRetrieval(runID string, retrieval domain.RetrievalSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Retrieval = &retrieval
	s.touch(run)
	return nil
}

// SetDecision records the final decision for a run. Set once.
func (s *Store) SetDecision(runID string, decision domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Decision = &decision
	s.touch(run)
	return nil
}

// Get returns a snapshot of the run record.
func (s *Store) Get(runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(run), nil
}

// touch bumps updated_at, keeping it monotonically non-decreasing even if
// the clock steps backward.
func (s *Store) touch(run *domain.RunRecord) {
	now := s.now().UTC()
	if now.After(run.UpdatedAt) {
		run.UpdatedAt = now
	}
}

// snapshot deep-copies a record so readers never share slices or pointers
// with the background writer.
func snapshot(run *domain.RunRecord) *domain.RunRecord {
	out := *run
	out.Messages = make([]domain.TranscriptMessage, len(run.Messages))
	copy(out.Messages, run.Messages)
	if run.Retrieval != nil {
		r := *run.Retrieval
		r.Neighbors = append([]domain.NeighborEvidence(nil), run.Retrieval.Neighbors...)
		out.Retrieval = &r
	}
	if run.Decision != nil {
		d := *run.Decision
		d.Justification = append([]string(nil), run.Decision.Justification...)
		d.EvidenceRefs = append([]string(nil), run.Decision.EvidenceRefs...)
		d.PolicyRefs = append([]string(nil), run.Decision.PolicyRefs...)
		out.Decision = &d
	}
	return &out
}
