// Package normalize maps raw debate output into the stable client shapes:
// role-tagged transcript, bounded 0..1 neighbor similarities, and a
// structured decision parsed from the judge's free text.
//
// The verdict/confidence parsing is heuristic by nature — the generation
// endpoint does not guarantee an output format — so every branch here
// resolves to a conservative default instead of failing the run.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/xiaot623/loancourt/internal/domain"
)

// Similarity bounds a raw similarity score into [0,1]. Scores in (1,100]
// are treated as percentages; anything non-positive clamps to 0 and
// anything above 100 clamps to 1.
func Similarity(v float64) float64 {
	switch {
	case v <= 0:
		return 0
	case v <= 1:
		return v
	case v <= 100:
		return v / 100
	}
	return 1
}

// Outcome maps the loan_paid_back sentinel to a display outcome. Only the
// explicit "paid" sentinel maps to repaid; unknown labels (-1 or missing)
// map to default. That bias is inherited from the source system and kept
// deliberately — see DESIGN.md.
func Outcome(loanPaidBack int) domain.Outcome {
	if loanPaidBack == 1 {
		return domain.OutcomeRepaid
	}
	return domain.OutcomeDefault
}

// Stage maps an internal stage token to its client-facing name.
func Stage(stage domain.Stage) domain.Stage {
	if stage == domain.StageFinal {
		return "final"
	}
	return stage
}

// Role maps a debate speaker to the transcript role tag. Unknown speakers
// fall back to MODERATOR.
func Role(speaker domain.Speaker) string {
	switch speaker {
	case domain.SpeakerRisk:
		return "RISK"
	case domain.SpeakerAdvocate:
		return "ADVOCATE"
	case domain.SpeakerJudge:
		return "JUDGE"
	}
	return "MODERATOR"
}

// Message maps one debate message to a transcript entry.
func Message(m domain.DebateMessage, at time.Time) domain.TranscriptMessage {
	return domain.TranscriptMessage{
		Role:      Role(m.Speaker),
		Content:   m.Content,
		Stage:     Stage(m.Stage),
		Timestamp: at.UTC(),
	}
}

// Transcript maps the full debate transcript.
func Transcript(messages []domain.DebateMessage, at time.Time) []domain.TranscriptMessage {
	out := make([]domain.TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, Message(m, at))
	}
	return out
}

// Neighbors maps evidence items to their client shape with bounded
// similarity and normalized outcome.
func Neighbors(items []domain.EvidenceItem) []domain.NeighborEvidence {
	out := make([]domain.NeighborEvidence, 0, len(items))
	for i, n := range items {
		id := n.ApplicantID
		if id == "" {
			id = "neighbor_" + strconv.Itoa(i+1)
		}
		highlights := n.Highlights
		if highlights == nil {
			highlights = []string{}
		}
		out = append(out, domain.NeighborEvidence{
			NeighborID:     id,
			Similarity:     Similarity(n.Similarity),
			Outcome:        Outcome(n.LoanPaidBack),
			Highlights:     highlights,
			PayloadPreview: n.Raw,
		})
	}
	return out
}

// Stats computes the display stats over the neighbor set. Average credit
// score and median income come from neighbor payloads when present and are
// zero otherwise.
func Stats(items []domain.EvidenceItem, stats domain.NeighborStats) domain.RetrievalStats {
	total := stats.KnownLabels
	if total == 0 {
		total = len(items)
	}

	var creditScores, incomes []float64
	for _, n := range items {
		if v := gjson.GetBytes(n.Raw, "credit_score"); v.Exists() {
			creditScores = append(creditScores, v.Float())
		}
		if v := gjson.GetBytes(n.Raw, "annual_income"); v.Exists() {
			incomes = append(incomes, v.Float())
		}
	}

	avgCS := 0.0
	if len(creditScores) > 0 {
		sum := 0.0
		for _, v := range creditScores {
			sum += v
		}
		avgCS = sum / float64(len(creditScores))
	}

	return domain.RetrievalStats{
		DefaultRate:        stats.DefaultRate,
		AverageCreditScore: avgCS,
		MedianIncome:       median(incomes),
		TotalNeighbors:     total,
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

var (
	confidenceRe = regexp.MustCompile(`(?i)confidence\W+(\d{1,3})`)
	policyRefRe  = regexp.MustCompile(`POLICY\[id=([^,\]]+)`)
)

const (
	defaultConfidence = 0.6
	maxJustifications = 4
	maxEvidenceRefs   = 3
	maxPolicyRefs     = 5
)

// Verdict extracts the decision keyword from the judge's text. A verdict is
// only accepted next to an explicit "final decision" marker; everything
// else resolves to manual review.
func Verdict(judgeText string) domain.Verdict {
	t := strings.ToLower(judgeText)
	hasMarker := strings.Contains(t, "final decision") || strings.Contains(t, "final_decision")
	if !hasMarker {
		return domain.VerdictManualReview
	}
	if strings.Contains(t, "approve") {
		return domain.VerdictApprove
	}
	if strings.Contains(t, "reject") {
		return domain.VerdictReject
	}
	return domain.VerdictManualReview
}

// Confidence extracts a "confidence: NN" percentage from the judge's text,
// clamped to [0,1], defaulting to 0.6 when absent.
func Confidence(judgeText string) float64 {
	m := confidenceRe.FindStringSubmatch(judgeText)
	if m == nil {
		return defaultConfidence
	}
	val, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultConfidence
	}
	conf := float64(val) / 100
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// justifications extracts up to 4 bullet lines from the judge's text.
func justifications(judgeText string) []string {
	var out []string
	for _, line := range strings.Split(judgeText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "*") || strings.HasPrefix(line, "-") {
			out = append(out, strings.TrimSpace(strings.TrimLeft(line, "*- ")))
		}
		if len(out) >= maxJustifications {
			break
		}
	}
	if len(out) == 0 {
		out = []string{"Decision produced by judge based on neighbors + applicant features."}
	}
	return out
}

// policyRefs extracts the distinct POLICY[id=...] citations from the text.
func policyRefs(judgeText string) []string {
	refs := []string{}
	seen := map[string]bool{}
	for _, m := range policyRefRe.FindAllStringSubmatch(judgeText, -1) {
		id := strings.TrimSpace(m[1])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, id)
		if len(refs) >= maxPolicyRefs {
			break
		}
	}
	return refs
}

// Decision builds the structured decision from the debate transcript,
// scanning backward for the last judge turn.
func Decision(messages []domain.DebateMessage, neighbors []domain.NeighborEvidence) domain.Decision {
	var judgeText string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Speaker == domain.SpeakerJudge {
			judgeText = messages[i].Content
			break
		}
	}

	evidenceRefs := []string{}
	for i, n := range neighbors {
		if i >= maxEvidenceRefs {
			break
		}
		evidenceRefs = append(evidenceRefs, n.NeighborID)
	}

	return domain.Decision{
		Verdict:       Verdict(judgeText),
		Justification: justifications(judgeText),
		EvidenceRefs:  evidenceRefs,
		Confidence:    Confidence(judgeText),
		PolicyRefs:    policyRefs(judgeText),
	}
}

// Retrieval assembles the full retrieval summary for a decided run.
func Retrieval(topK int, items []domain.EvidenceItem, stats domain.NeighborStats) domain.RetrievalSummary {
	return domain.RetrievalSummary{
		TopK:      topK,
		Neighbors: Neighbors(items),
		Stats:     Stats(items, stats),
	}
}
