package debate

import (
	"fmt"
	"strings"

	"github.com/xiaot623/loancourt/internal/domain"
)

const (
	maxRenderedNeighbors = 10
	maxSummaryChars      = 140
)

// formatNeighbors renders the highest-ranked neighbors as numbered evidence
// lines for a prompt. Similarity is rounded to 3 decimals and summaries are
// truncated so a single neighbor cannot dominate the context window.
func formatNeighbors(neighbors []domain.EvidenceItem) string {
	if len(neighbors) == 0 {
		return "(no neighbors found)"
	}

	var lines []string
	for i, n := range neighbors {
		if i >= maxRenderedNeighbors {
			break
		}
		summary := n.Summary
		if len(summary) > maxSummaryChars {
			summary = summary[:maxSummaryChars]
		}
		lines = append(lines, fmt.Sprintf("%d) id=%s score=%.3f loan_paid_back=%d summary=%s",
			i+1, n.ApplicantID, n.Similarity, n.LoanPaidBack, summary))
	}
	return strings.Join(lines, "\n")
}

// formatHistory renders the debate transcript for a prompt.
func formatHistory(messages []domain.DebateMessage) string {
	var lines []string
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			strings.ToUpper(string(m.Stage)), strings.ToUpper(string(m.Speaker)), m.Content))
	}
	return strings.Join(lines, "\n")
}

// formatStats renders neighbor stats as key=value pairs.
func formatStats(stats domain.NeighborStats) string {
	if stats.KnownLabels == 0 {
		return fmt.Sprintf("n=%d known_labels=0", stats.Count)
	}
	return fmt.Sprintf("n=%d known_labels=%d paid_back=%d defaulted=%d default_rate=%.3f",
		stats.Count, stats.KnownLabels, stats.PaidBack, stats.Defaulted, stats.DefaultRate)
}
