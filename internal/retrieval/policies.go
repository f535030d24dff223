package retrieval

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/xiaot623/loancourt/internal/adapter/encoder"
	"github.com/xiaot623/loancourt/internal/adapter/vectordb"
	"github.com/xiaot623/loancourt/internal/debate"
)

// PolicyIndex retrieves policy clauses by semantic similarity to a query.
type PolicyIndex struct {
	encoder    *encoder.Client
	index      *vectordb.Client
	collection string
}

// NewPolicyIndex creates a policy passage searcher.
func NewPolicyIndex(enc *encoder.Client, index *vectordb.Client, collection string) *PolicyIndex {
	return &PolicyIndex{encoder: enc, index: index, collection: collection}
}

// Ensure PolicyIndex satisfies the judge's searcher contract.
var _ debate.PolicySearcher = (*PolicyIndex)(nil)

// SearchPolicies embeds the query text and returns the ranked clauses.
func (p *PolicyIndex) SearchPolicies(ctx context.Context, query string, topK int) ([]debate.PolicyPassage, error) {
	vector, err := p.encoder.EncodeText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed policy query: %w", err)
	}

	points, err := p.index.Query(ctx, p.collection, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("policy search failed: %w", err)
	}

	passages := make([]debate.PolicyPassage, 0, len(points))
	for _, pt := range points {
		content := gjson.GetBytes(pt.Payload, "content").String()
		if content == "" {
			content = gjson.GetBytes(pt.Payload, "text").String()
		}
		id := gjson.GetBytes(pt.Payload, "chunk_id").String()
		if id == "" {
			id = pt.ID
		}
		passages = append(passages, debate.PolicyPassage{
			ID:         id,
			Similarity: pt.Score,
			Content:    content,
		})
	}
	return passages, nil
}
