package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/loancourt/internal/domain"
)

func TestSimilarityBounds(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{-3, 0},
		{0.42, 0.42},
		{1.0, 1.0},
		{55, 0.55},
		{100, 1.0},
		{150, 1.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Similarity(tc.in), "Similarity(%v)", tc.in)
	}
}

func TestOutcomeSentinels(t *testing.T) {
	assert.Equal(t, domain.OutcomeRepaid, Outcome(1))
	assert.Equal(t, domain.OutcomeDefault, Outcome(0))
	// Unknown labels map to default, the conservative reading.
	assert.Equal(t, domain.OutcomeDefault, Outcome(-1))
}

func TestStageRename(t *testing.T) {
	assert.Equal(t, domain.Stage("final"), Stage(domain.StageFinal))
	assert.Equal(t, domain.StageOpening, Stage(domain.StageOpening))
	assert.Equal(t, domain.StageVerdict, Stage(domain.StageVerdict))
}

func TestRoleMapping(t *testing.T) {
	assert.Equal(t, "RISK", Role(domain.SpeakerRisk))
	assert.Equal(t, "ADVOCATE", Role(domain.SpeakerAdvocate))
	assert.Equal(t, "JUDGE", Role(domain.SpeakerJudge))
	assert.Equal(t, "MODERATOR", Role(domain.SpeakerModerator))
	assert.Equal(t, "MODERATOR", Role("somebody_else"))
}

func TestVerdictRequiresMarker(t *testing.T) {
	assert.Equal(t, domain.VerdictManualReview, Verdict("I approve of this applicant"))
	assert.Equal(t, domain.VerdictApprove, Verdict("Final decision: APPROVE"))
	assert.Equal(t, domain.VerdictApprove, Verdict("final_decision: approve"))
	assert.Equal(t, domain.VerdictReject, Verdict("Final decision: REJECT due to delinquencies"))
	assert.Equal(t, domain.VerdictManualReview, Verdict("Final decision: REVIEW"))
	assert.Equal(t, domain.VerdictManualReview, Verdict(""))
}

func TestConfidenceParsing(t *testing.T) {
	assert.Equal(t, 0.82, Confidence("confidence: 82"))
	assert.Equal(t, 0.82, Confidence("Confidence = 82%"))
	assert.Equal(t, 0.6, Confidence("no number here"))
	assert.Equal(t, 1.0, Confidence("confidence: 999"))
	assert.Equal(t, 0.05, Confidence("confidence: 5"))
}

func TestDecisionFromTranscript(t *testing.T) {
	messages := []domain.DebateMessage{
		{Speaker: domain.SpeakerRisk, Content: "opening", Stage: domain.StageOpening},
		{Speaker: domain.SpeakerJudge, Stage: domain.StageVerdict, Content: "final decision: APPROVE\n" +
			"confidence: 75\n" +
			"- Neighbor default rate is low\n" +
			"- POLICY[id=pol_7, sim=0.81] permits this grade\n" +
			"* Income comfortably covers the installment\n" +
			"- fourth reason\n" +
			"- fifth reason dropped\n"},
	}
	neighbors := []domain.NeighborEvidence{
		{NeighborID: "a"}, {NeighborID: "b"}, {NeighborID: "c"}, {NeighborID: "d"},
	}

	d := Decision(messages, neighbors)
	assert.Equal(t, domain.VerdictApprove, d.Verdict)
	assert.Equal(t, 0.75, d.Confidence)
	assert.Len(t, d.Justification, 4)
	assert.Equal(t, []string{"a", "b", "c"}, d.EvidenceRefs)
	assert.Equal(t, []string{"pol_7"}, d.PolicyRefs)
}

func TestDecisionWithoutJudgeTurn(t *testing.T) {
	d := Decision([]domain.DebateMessage{
		{Speaker: domain.SpeakerRisk, Content: "opening", Stage: domain.StageOpening},
	}, nil)
	assert.Equal(t, domain.VerdictManualReview, d.Verdict)
	assert.Equal(t, 0.6, d.Confidence)
	require.Len(t, d.Justification, 1)
	assert.Equal(t, "Decision produced by judge based on neighbors + applicant features.", d.Justification[0])
	assert.Empty(t, d.EvidenceRefs)
	assert.Empty(t, d.PolicyRefs)
}

func TestNeighborsNormalization(t *testing.T) {
	items := []domain.EvidenceItem{
		{ApplicantID: "", Similarity: 88, LoanPaidBack: 1},
		{ApplicantID: "x9", Similarity: 0.4, LoanPaidBack: -1, Highlights: []string{"credit_score matches (700)"}},
	}

	out := Neighbors(items)
	require.Len(t, out, 2)

	assert.Equal(t, "neighbor_1", out[0].NeighborID)
	assert.Equal(t, 0.88, out[0].Similarity)
	assert.Equal(t, domain.OutcomeRepaid, out[0].Outcome)
	assert.NotNil(t, out[0].Highlights)
	assert.Empty(t, out[0].Highlights)

	assert.Equal(t, "x9", out[1].NeighborID)
	assert.Equal(t, domain.OutcomeDefault, out[1].Outcome)
	assert.Len(t, out[1].Highlights, 1)
}

func TestStatsFromPayloads(t *testing.T) {
	items := []domain.EvidenceItem{
		{Raw: []byte(`{"credit_score": 700, "annual_income": 50000}`), LoanPaidBack: 1},
		{Raw: []byte(`{"credit_score": 600, "annual_income": 90000}`), LoanPaidBack: 0},
		{Raw: []byte(`{"credit_score": 650, "annual_income": 70000}`), LoanPaidBack: -1},
	}
	stats := domain.NeighborStats{Count: 3, KnownLabels: 2, PaidBack: 1, Defaulted: 1, DefaultRate: 0.5}

	out := Stats(items, stats)
	assert.Equal(t, 0.5, out.DefaultRate)
	assert.Equal(t, 650.0, out.AverageCreditScore)
	assert.Equal(t, 70000.0, out.MedianIncome)
	assert.Equal(t, 2, out.TotalNeighbors)
}

func TestStatsEmptyNeighbors(t *testing.T) {
	out := Stats(nil, domain.NeighborStats{})
	assert.Equal(t, domain.RetrievalStats{}, out)
}

func TestTranscriptStageAndTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := Transcript([]domain.DebateMessage{
		{Speaker: domain.SpeakerAdvocate, Content: "closing", Stage: domain.StageFinal},
	}, at)
	require.Len(t, out, 1)
	assert.Equal(t, "ADVOCATE", out[0].Role)
	assert.Equal(t, domain.Stage("final"), out[0].Stage)
	assert.Equal(t, at, out[0].Timestamp)
}
