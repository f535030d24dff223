package domain

import (
	"encoding/json"
	"time"
)

// RunRecord tracks one deliberation run for polling clients. It is created
// synchronously when a run starts and mutated only by the background
// pipeline goroutine; readers always get snapshots.
type RunRecord struct {
	RunID     string              `json:"run_id"`
	CaseID    string              `json:"case_id"`
	Status    RunStatus           `json:"status"`
	Stage     Stage               `json:"stage"`
	Progress  int                 `json:"progress"`
	Messages  []TranscriptMessage `json:"messages"`
	Retrieval *RetrievalSummary   `json:"retrieval,omitempty"`
	Decision  *Decision           `json:"decision,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// TranscriptMessage is one client-facing transcript entry.
type TranscriptMessage struct {
	Role      string    `json:"role"` // RISK | ADVOCATE | MODERATOR | JUDGE
	Content   string    `json:"content"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// NeighborEvidence is one normalized historical neighbor shown to clients.
type NeighborEvidence struct {
	NeighborID     string          `json:"neighbor_id"`
	Similarity     float64         `json:"similarity"` // always in [0,1]
	Outcome        Outcome         `json:"outcome"`
	Highlights     []string        `json:"highlights"`
	PayloadPreview json.RawMessage `json:"payload_preview,omitempty"`
}

// RetrievalStats summarizes the neighbor evidence for display.
type RetrievalStats struct {
	DefaultRate        float64 `json:"default_rate"`
	AverageCreditScore float64 `json:"average_credit_score"`
	MedianIncome       float64 `json:"median_income"`
	TotalNeighbors     int     `json:"total_neighbors"`
}

// RetrievalSummary is the evidence block attached to a decided run.
type RetrievalSummary struct {
	TopK      int                `json:"top_k"`
	Neighbors []NeighborEvidence `json:"neighbors"`
	Stats     RetrievalStats     `json:"stats"`
}

// Decision is the structured outcome parsed from the judge's verdict text.
type Decision struct {
	Verdict       Verdict  `json:"verdict"`
	Justification []string `json:"justification"`
	EvidenceRefs  []string `json:"evidence_refs"`
	Confidence    float64  `json:"confidence"` // in [0,1]
	PolicyRefs    []string `json:"policy_refs"`
}
