package debate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xiaot623/loancourt/internal/adapter/llm"
	"github.com/xiaot623/loancourt/internal/domain"
)

// Participant produces the next debate turn. Every implementation except
// the moderator appends exactly one message to the state's transcript.
type Participant interface {
	Act(ctx context.Context, state *domain.DebateState) error
}

// PolicyPassage is one policy clause retrieved for the judge.
type PolicyPassage struct {
	ID         string
	Similarity float64
	Content    string
}

// PolicySearcher retrieves ranked policy passages for a free-text query.
type PolicySearcher interface {
	SearchPolicies(ctx context.Context, query string, topK int) ([]PolicyPassage, error)
}

// RiskAgent argues against approval from the retrieved evidence.
type RiskAgent struct {
	gen llm.Generator
}

// NewRiskAgent creates the risk participant.
func NewRiskAgent(gen llm.Generator) *RiskAgent {
	return &RiskAgent{gen: gen}
}

// Act appends the risk agent's argument for the current stage.
func (a *RiskAgent) Act(ctx context.Context, state *domain.DebateState) error {
	prompt := fmt.Sprintf(riskPrompt,
		string(state.Applicant),
		formatStats(state.NeighborStats),
		formatNeighbors(state.Neighbors),
		formatHistory(state.Messages),
		state.Stage,
	)
	out, err := a.gen.Generate(ctx, riskSystem, prompt, 0.2)
	if err != nil {
		return fmt.Errorf("risk agent generation failed: %w", err)
	}

	state.Messages = append(state.Messages, domain.DebateMessage{
		Speaker:   domain.SpeakerRisk,
		Content:   out,
		Stage:     state.Stage,
		Validated: true,
	})
	return nil
}

// AdvocateAgent argues for approval, countering the risk agent.
type AdvocateAgent struct {
	gen llm.Generator
}

// NewAdvocateAgent creates the advocate participant.
func NewAdvocateAgent(gen llm.Generator) *AdvocateAgent {
	return &AdvocateAgent{gen: gen}
}

// Act appends the advocate's argument, quoting the opposing side's most
// recent statement when rebutting.
func (a *AdvocateAgent) Act(ctx context.Context, state *domain.DebateState) error {
	opponent := state.LastBySpeaker(domain.SpeakerRisk)

	prompt := fmt.Sprintf(advocatePrompt,
		string(state.Applicant),
		formatStats(state.NeighborStats),
		formatNeighbors(state.Neighbors),
		opponent,
		formatHistory(state.Messages),
		state.Stage,
	)
	out, err := a.gen.Generate(ctx, advocateSystem, prompt, 0.3)
	if err != nil {
		return fmt.Errorf("advocate agent generation failed: %w", err)
	}

	state.Messages = append(state.Messages, domain.DebateMessage{
		Speaker:   domain.SpeakerAdvocate,
		Content:   out,
		Stage:     state.Stage,
		Validated: true,
	})
	return nil
}

// Moderator routes the debate. Routing is deterministic and never depends
// on generated text; the optional narrator exists for transcript color
// only and its output is discarded for scheduling purposes.
type Moderator struct {
	narrator llm.Generator // optional, may be nil
}

// NewModerator creates the moderator.
func NewModerator() *Moderator {
	return &Moderator{}
}

// Route computes the next stage and speaker for the state.
func (m *Moderator) Route(state *domain.DebateState) Route {
	return Next(state.Stage, state.Speaker)
}

// Judge weighs the full debate plus policy evidence and issues the verdict.
type Judge struct {
	gen      llm.Generator
	policies PolicySearcher
	topK     int
	minSim   float64
}

// NewJudge creates the judge participant. policies may be nil, in which
// case the verdict is issued without policy citations.
func NewJudge(gen llm.Generator, policies PolicySearcher, topK int, minSim float64) *Judge {
	return &Judge{gen: gen, policies: policies, topK: topK, minSim: minSim}
}

// Act retrieves policy evidence, generates the verdict, and appends the
// terminal judge turn.
func (j *Judge) Act(ctx context.Context, state *domain.DebateState) error {
	policyEvidence := j.gatherPolicyEvidence(ctx, state)

	prompt := fmt.Sprintf(judgePrompt,
		string(state.Applicant),
		formatStats(state.NeighborStats),
		formatNeighbors(state.Neighbors),
		formatHistory(state.Messages),
		policyEvidence,
	)
	out, err := j.gen.Generate(ctx, judgeSystem, prompt, 0.0)
	if err != nil {
		return fmt.Errorf("judge generation failed: %w", err)
	}

	state.Messages = append(state.Messages, domain.DebateMessage{
		Speaker:   domain.SpeakerJudge,
		Content:   out,
		Stage:     domain.StageVerdict,
		Validated: true,
	})
	state.VerdictRaw = out
	state.Stage = domain.StageVerdict
	state.Speaker = domain.SpeakerJudge
	return nil
}

// gatherPolicyEvidence queries the policy index and renders citable
// clauses. Policy evidence is optional context for the judge, so a search
// failure degrades to "no evidence" instead of failing the run.
func (j *Judge) gatherPolicyEvidence(ctx context.Context, state *domain.DebateState) string {
	if j.policies == nil {
		return "(no policy evidence available)"
	}

	query := j.buildPolicyQuery(state)
	passages, err := j.policies.SearchPolicies(ctx, query, j.topK)
	if err != nil {
		log.Printf("WARN: policy search failed, judging without policy evidence: %v", err)
		return "(no policy evidence available)"
	}

	var lines []string
	for _, p := range passages {
		if p.Similarity < j.minSim {
			continue
		}
		lines = append(lines, fmt.Sprintf("POLICY[id=%s, sim=%.2f]: %s", p.ID, p.Similarity, p.Content))
		if len(lines) >= j.topK {
			break
		}
	}
	if len(lines) == 0 {
		return "(no policy evidence available)"
	}
	return strings.Join(lines, "\n")
}

// buildPolicyQuery synthesizes the search query from the applicant, the
// neighbor stats, and the debate so far.
func (j *Judge) buildPolicyQuery(state *domain.DebateState) string {
	var b strings.Builder
	b.WriteString("loan application decision. applicant: ")
	b.Write(state.Applicant)
	b.WriteString(" neighbor stats: ")
	b.WriteString(formatStats(state.NeighborStats))
	b.WriteString(" debate: ")
	b.WriteString(formatHistory(state.Messages))
	return b.String()
}
