package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientRoleOutputs(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	judge, err := m.Generate(ctx, "You are an impartial credit decision judge.", "p", 0)
	require.NoError(t, err)
	assert.Contains(t, judge, "final_decision:")
	assert.Contains(t, judge, "confidence:")

	risk, err := m.Generate(ctx, "You are RiskAgent in a credit-risk debate.", "p", 0.2)
	require.NoError(t, err)
	assert.Contains(t, risk, "[MOCK]")

	advocate, err := m.Generate(ctx, "You are AdvocateAgent in a credit-risk debate.", "p", 0.3)
	require.NoError(t, err)
	assert.Contains(t, advocate, "APPROVE")
}

func TestMockClientFallbackTruncates(t *testing.T) {
	m := NewMockClient()
	out, err := m.Generate(context.Background(), "unrecognized", strings.Repeat("x", 500), 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), len("[MOCK] ")+103)
}

func TestMockClientHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockClient()
	_, err := m.Generate(ctx, "judge", "p", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGeneratorMockMode(t *testing.T) {
	t.Setenv(EnvMode, ModeMock)
	gen := NewGenerator("http://localhost", "", "model", 0)
	_, ok := gen.(*MockClient)
	assert.True(t, ok)
}
