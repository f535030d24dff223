package llm

import (
	"context"
	"strings"
)

// MockClient is a canned implementation of Generator for local development
// and tests. Output shape follows the role implied by the system prompt so
// downstream parsing has something realistic to chew on.
type MockClient struct{}

// NewMockClient creates a new mock generation client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements Generator interface.
var _ Generator = (*MockClient)(nil)

// Generate returns a canned response based on the system prompt.
func (m *MockClient) Generate(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	lower := strings.ToLower(system)
	switch {
	case strings.Contains(lower, "judge"):
		return strings.Join([]string{
			"final_decision: REVIEW",
			"confidence: 60",
			"- [MOCK] Neighbor evidence is mixed; no strong signal either way.",
			"- [MOCK] Debate arguments did not resolve the uncertainty.",
			"- [MOCK] Routing to manual review as the conservative choice.",
		}, "\n"), nil
	case strings.Contains(lower, "riskagent"):
		return "[MOCK] Decision recommendation: REVIEW. Neighbor outcomes suggest elevated default risk.", nil
	case strings.Contains(lower, "advocateagent"):
		return "[MOCK] Decision recommendation: APPROVE. The cited neighbors are weakly similar and outcomes are mixed.", nil
	}
	return "[MOCK] " + truncate(prompt, 100), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
