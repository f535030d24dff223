package domain

import "encoding/json"

// DebateMessage is one turn inside the debate state. Speakers append to the
// transcript in strict order; the moderator never appends.
type DebateMessage struct {
	Speaker   Speaker `json:"speaker"`
	Content   string  `json:"content"`
	Stage     Stage   `json:"stage"`
	Validated bool    `json:"validated"`
}

// EvidenceItem is one retrieved historical neighbor as seen by the debate.
// LoanPaidBack uses the source sentinel encoding: 1 repaid, 0 defaulted,
// -1 unknown.
type EvidenceItem struct {
	ApplicantID  string          `json:"applicant_id"`
	Similarity   float64         `json:"similarity"`
	LoanPaidBack int             `json:"loan_paid_back"`
	Summary      string          `json:"summary"`
	Highlights   []string        `json:"highlights"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// NeighborStats aggregates neighbor outcomes for the participants.
type NeighborStats struct {
	Count       int     `json:"n"`
	KnownLabels int     `json:"known_labels"`
	PaidBack    int     `json:"paid_back"`
	Defaulted   int     `json:"defaulted"`
	DefaultRate float64 `json:"default_rate"`
}

// DebateState is the mutable state threaded through every debate turn.
// Neighbors and stats are immutable once set; Messages is append-only.
type DebateState struct {
	Applicant     json.RawMessage `json:"applicant_payload"`
	Neighbors     []EvidenceItem  `json:"neighbors"`
	NeighborStats NeighborStats   `json:"neighbor_stats"`

	Topic    string          `json:"debate_topic"`
	Messages []DebateMessage `json:"messages"`
	Stage    Stage           `json:"stage"`
	Speaker  Speaker         `json:"speaker"`

	// VerdictRaw is the judge's free-form output, set at the terminal stage.
	VerdictRaw string `json:"judge_verdict,omitempty"`
}

// LastBySpeaker returns the content of the most recent message by the given
// speaker, or "" if none exists.
func (s *DebateState) LastBySpeaker(sp Speaker) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Speaker == sp {
			return s.Messages[i].Content
		}
	}
	return ""
}
