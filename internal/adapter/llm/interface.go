// Package llm provides an abstraction for the text-generation endpoint.
package llm

import "context"

// Generator defines the interface for generation calls. Each debate turn
// makes exactly one call; failures are surfaced to the caller untouched.
type Generator interface {
	// Generate sends a system instruction plus a templated user prompt and
	// returns the completion text.
	Generate(ctx context.Context, system, prompt string, temperature float64) (string, error)
}

// Ensure Client implements Generator interface.
var _ Generator = (*Client)(nil)
