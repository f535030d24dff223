package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/loancourt/internal/adapter/llm"
	"github.com/xiaot623/loancourt/internal/config"
	"github.com/xiaot623/loancourt/internal/debate"
	"github.com/xiaot623/loancourt/internal/domain"
	"github.com/xiaot623/loancourt/internal/policy"
	"github.com/xiaot623/loancourt/internal/runstore"
	"github.com/xiaot623/loancourt/tests/helpers"
)

// fakeNeighbors serves canned evidence without touching the network.
type fakeNeighbors struct {
	items []domain.EvidenceItem
	err   error
}

func (f *fakeNeighbors) Gather(ctx context.Context, applicant json.RawMessage, topK int) ([]domain.EvidenceItem, domain.NeighborStats, error) {
	if f.err != nil {
		return nil, domain.NeighborStats{}, f.err
	}
	stats := domain.NeighborStats{Count: len(f.items)}
	for _, n := range f.items {
		switch n.LoanPaidBack {
		case 1:
			stats.PaidBack++
		case 0:
			stats.Defaulted++
		default:
			continue
		}
		stats.KnownLabels++
	}
	if stats.KnownLabels > 0 {
		stats.DefaultRate = float64(stats.Defaulted) / float64(stats.KnownLabels)
	}
	return f.items, stats, nil
}

// failingGen fails on the nth generation call.
type failingGen struct {
	inner  llm.Generator
	calls  int
	failAt int
}

func (g *failingGen) Generate(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	g.calls++
	if g.calls == g.failAt {
		return "", errors.New("generation endpoint unavailable")
	}
	return g.inner.Generate(ctx, system, prompt, temperature)
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTopK:  8,
		MaxTurns:     12,
		PolicyTopK:   8,
		PolicyMinSim: 0.6,
	}
}

func newTestService(t *testing.T, neighbors NeighborSearcher, gen llm.Generator) *Service {
	t.Helper()
	prescreen, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	return New(testConfig(), helpers.NewTestSQLiteStore(t), runstore.New(), neighbors, nil, gen, prescreen)
}

func waitForTerminal(t *testing.T, svc *Service, runID string) *domain.RunRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.RunStatus(runID)
		require.NoError(t, err)
		if run.Status.IsTerminal() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach a terminal state", runID)
	return nil
}

const testApplicant = `{"loan_amount": 12000, "credit_score": 690, "loan_purpose": "car"}`

func TestCreateCaseWithApplicant(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())

	c, err := svc.CreateCase(context.Background(), json.RawMessage(testApplicant))
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusReady, c.Status)
	assert.NotEmpty(t, c.CaseID)

	events, err := svc.ListAuditEvents(context.Background(), c.CaseID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuditCreatedCase, events[0].EventType)
}

func TestCreateCaseDraftWithoutApplicant(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())

	c, err := svc.CreateCase(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusDraft, c.Status)
}

func TestUpdateApplicantMergesFields(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	updated, err := svc.UpdateApplicant(ctx, c.CaseID, json.RawMessage(`{"credit_score": 710, "employment_status": "employed"}`))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"loan_amount": 12000, "credit_score": 710, "loan_purpose": "car", "employment_status": "employed"}`,
		string(updated.Applicant))

	_, err = svc.UpdateApplicant(ctx, "case_missing", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestStartRunHappyPath(t *testing.T) {
	neighbors := &fakeNeighbors{items: []domain.EvidenceItem{
		{ApplicantID: "n1", Similarity: 0.92, LoanPaidBack: 1, Summary: "repaid", Raw: []byte(`{"credit_score":700,"annual_income":55000}`)},
		{ApplicantID: "n2", Similarity: 0.85, LoanPaidBack: 0, Summary: "defaulted", Raw: []byte(`{"credit_score":600,"annual_income":42000}`)},
	}}
	svc := newTestService(t, neighbors, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.Equal(t, domain.StageOpening, run.Stage)

	final := waitForTerminal(t, svc, run.RunID)
	assert.Equal(t, domain.RunStatusDecided, final.Status)
	assert.Equal(t, domain.StageDone, final.Stage)
	assert.Equal(t, 100, final.Progress)
	assert.Len(t, final.Messages, 5)

	// Decision endpoint is ready.
	decided, err := svc.RunDecision(run.RunID)
	require.NoError(t, err)
	require.NotNil(t, decided.Decision)
	assert.Equal(t, domain.VerdictManualReview, decided.Decision.Verdict)
	assert.Equal(t, 0.6, decided.Decision.Confidence)
	require.NotNil(t, decided.Retrieval)
	assert.Len(t, decided.Retrieval.Neighbors, 2)
	assert.Equal(t, []string{"n1", "n2"}, decided.Decision.EvidenceRefs)

	// The case row carries durable copies.
	kase, _, err := svc.GetCase(ctx, c.CaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusDecided, kase.Status)
	assert.NotEmpty(t, kase.Decision)
	assert.NotEmpty(t, kase.Retrieval)
	assert.NotEmpty(t, kase.Debate)

	var snapshot domain.DebateSnapshot
	require.NoError(t, json.Unmarshal(kase.Debate, &snapshot))
	assert.Equal(t, run.RunID, snapshot.RunID)
	assert.Len(t, snapshot.Messages, 5)
}

func TestStartRunEmptyNeighbors(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)

	final := waitForTerminal(t, svc, run.RunID)
	assert.Equal(t, domain.RunStatusDecided, final.Status)

	decided, err := svc.RunDecision(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 0, decided.Retrieval.Stats.TotalNeighbors)
	assert.Empty(t, decided.Retrieval.Neighbors)
	assert.Empty(t, decided.Decision.EvidenceRefs)
}

func TestStartRunValidation(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	_, err := svc.StartRun(ctx, "case_missing", 0)
	assert.ErrorIs(t, err, ErrCaseNotFound)

	draft, err := svc.CreateCase(ctx, nil)
	require.NoError(t, err)
	_, err = svc.StartRun(ctx, draft.CaseID, 0)
	assert.ErrorIs(t, err, ErrNoApplicant)
}

func TestStartRunPrescreenBlock(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(`{"loan_amount": 0, "credit_score": 700}`))
	require.NoError(t, err)

	_, err = svc.StartRun(ctx, c.CaseID, 0)
	assert.ErrorIs(t, err, ErrPrescreenBlocked)

	// A blocked start leaves the case startable after the payload is fixed.
	_, err = svc.UpdateApplicant(ctx, c.CaseID, json.RawMessage(`{"loan_amount": 9000}`))
	require.NoError(t, err)
	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)
	waitForTerminal(t, svc, run.RunID)
}

func TestStartRunConflictWhileRunning(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)

	// The case row flips to running synchronously, so an immediate second
	// start must conflict.
	_, err = svc.StartRun(ctx, c.CaseID, 0)
	assert.ErrorIs(t, err, ErrRunActive)

	waitForTerminal(t, svc, run.RunID)
}

func TestRunFailureMidDebate(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, &failingGen{inner: llm.NewMockClient(), failAt: 2})
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)

	final := waitForTerminal(t, svc, run.RunID)
	assert.Equal(t, domain.RunStatusFailed, final.Status)
	assert.Equal(t, 100, final.Progress)

	// The first turn survived; the failure is recorded as a synthetic
	// moderator turn.
	require.Len(t, final.Messages, 2)
	assert.Equal(t, "RISK", final.Messages[0].Role)
	assert.Equal(t, "MODERATOR", final.Messages[1].Role)
	assert.Contains(t, final.Messages[1].Content, "Run failed:")

	_, err = svc.RunDecision(run.RunID)
	assert.ErrorIs(t, err, ErrDecisionNotReady)

	kase, _, err := svc.GetCase(ctx, c.CaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusFailed, kase.Status)

	events, err := svc.ListAuditEvents(ctx, c.CaseID)
	require.NoError(t, err)
	var types []domain.AuditEventType
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, domain.AuditRunFailed)
}

func TestRunFailureOnRetrieval(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{err: errors.New("encoder down")}, llm.NewMockClient())
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)

	final := waitForTerminal(t, svc, run.RunID)
	assert.Equal(t, domain.RunStatusFailed, final.Status)
	require.Len(t, final.Messages, 1)
	assert.Contains(t, final.Messages[0].Content, "evidence retrieval failed")
}

func TestRunQueriesUnknownRun(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())

	_, err := svc.RunStatus("run_missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = svc.RunTranscript("run_missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = svc.RunDecision("run_missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDashboardStatsAfterRuns(t *testing.T) {
	svc := newTestService(t, &fakeNeighbors{}, llm.NewMockClient())
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, nil)
	require.NoError(t, err)

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)
	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)
	waitForTerminal(t, svc, run.RunID)

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCases)
	assert.Equal(t, 1, stats.DraftCases)
	assert.Equal(t, 1, stats.ManualReviews)
}

// The PolicySearcher wiring is exercised end to end: the judge's citations
// survive normalization into decision policy refs.
func TestRunWithPolicyCitations(t *testing.T) {
	gen := &citingGen{inner: llm.NewMockClient()}
	prescreen, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	searcher := &stubPolicies{passages: []debate.PolicyPassage{
		{ID: "pol_3", Similarity: 0.9, Content: "Grade F loans require review."},
	}}
	svc := New(testConfig(), helpers.NewTestSQLiteStore(t), runstore.New(), &fakeNeighbors{}, searcher, gen, prescreen)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, json.RawMessage(testApplicant))
	require.NoError(t, err)
	run, err := svc.StartRun(ctx, c.CaseID, 0)
	require.NoError(t, err)
	waitForTerminal(t, svc, run.RunID)

	decided, err := svc.RunDecision(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pol_3"}, decided.Decision.PolicyRefs)
}

type stubPolicies struct {
	passages []debate.PolicyPassage
}

func (s *stubPolicies) SearchPolicies(ctx context.Context, query string, topK int) ([]debate.PolicyPassage, error) {
	return s.passages, nil
}

// citingGen makes the judge echo a policy citation so policy refs are
// parseable from the verdict.
type citingGen struct {
	inner llm.Generator
}

func (g *citingGen) Generate(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	out, err := g.inner.Generate(ctx, system, prompt, temperature)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(system), "judge") {
		out += "\n- Cited POLICY[id=pol_3, sim=0.90] in deliberation."
	}
	return out, nil
}
