// Package retrieval aggregates similarity evidence for a debate: the
// applicant's nearest historical neighbors and the relevant policy clauses.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/xiaot623/loancourt/internal/adapter/encoder"
	"github.com/xiaot623/loancourt/internal/adapter/vectordb"
	"github.com/xiaot623/loancourt/internal/domain"
)

// highlightKeys are the applicant fields compared against neighbor payloads
// when computing match highlights.
var highlightKeys = []string{
	"credit_score", "debt_to_income_ratio", "loan_amount", "loan_term",
	"grade_subgrade", "employment_status", "education_level", "loan_purpose",
	"delinquency_history", "num_of_delinquencies",
}

const maxHighlights = 6

// Aggregator gathers neighbor evidence for an applicant: encode the record,
// query the vector index, summarize outcomes. Neighbors are fetched once
// per run and never refreshed mid-debate.
type Aggregator struct {
	encoder    *encoder.Client
	index      *vectordb.Client
	collection string
}

// NewAggregator creates an evidence aggregator.
func NewAggregator(enc *encoder.Client, index *vectordb.Client, collection string) *Aggregator {
	return &Aggregator{encoder: enc, index: index, collection: collection}
}

// Gather returns the ranked neighbors and their outcome stats for the
// applicant record.
func (a *Aggregator) Gather(ctx context.Context, applicant json.RawMessage, topK int) ([]domain.EvidenceItem, domain.NeighborStats, error) {
	vector, err := a.encoder.EncodeApplicant(ctx, applicant)
	if err != nil {
		return nil, domain.NeighborStats{}, fmt.Errorf("failed to encode applicant: %w", err)
	}

	points, err := a.index.Query(ctx, a.collection, vector, topK)
	if err != nil {
		return nil, domain.NeighborStats{}, fmt.Errorf("neighbor search failed: %w", err)
	}

	neighbors := make([]domain.EvidenceItem, 0, len(points))
	for _, p := range points {
		neighbors = append(neighbors, pointToEvidence(p, applicant))
	}
	return neighbors, SummarizeStats(neighbors), nil
}

// pointToEvidence maps a raw search hit into a debate evidence item.
func pointToEvidence(p vectordb.Point, applicant json.RawMessage) domain.EvidenceItem {
	payload := p.Payload

	id := gjson.GetBytes(payload, "applicant_id").String()
	if id == "" {
		id = gjson.GetBytes(payload, "id").String()
	}
	if id == "" {
		id = p.ID
	}

	paidBack := -1
	if v := gjson.GetBytes(payload, "loan_paid_back"); v.Exists() {
		paidBack = int(v.Int())
	}

	return domain.EvidenceItem{
		ApplicantID:  id,
		Similarity:   p.Score,
		LoanPaidBack: paidBack,
		Summary:      gjson.GetBytes(payload, "summary").String(),
		Highlights:   Highlights(applicant, payload),
		Raw:          payload,
	}
}

// SummarizeStats aggregates known outcomes across the neighbor set. With no
// labeled neighbors only the counts are populated.
func SummarizeStats(neighbors []domain.EvidenceItem) domain.NeighborStats {
	stats := domain.NeighborStats{Count: len(neighbors)}
	for _, n := range neighbors {
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
	return stats
}

// Highlights lists the fields where the neighbor matches the applicant
// exactly, capped so prompts stay bounded.
func Highlights(applicant, payload json.RawMessage) []string {
	var hits []string
	for _, key := range highlightKeys {
		av := gjson.GetBytes(applicant, key)
		nv := gjson.GetBytes(payload, key)
		if !av.Exists() || !nv.Exists() {
			continue
		}
		if av.String() == nv.String() {
			hits = append(hits, fmt.Sprintf("%s matches (%s)", key, av.String()))
		}
		if len(hits) >= maxHighlights {
			break
		}
	}
	return hits
}
