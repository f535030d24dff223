package debate

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/loancourt/internal/domain"
)

// ErrTurnBudget is returned when the debate does not terminate within the
// configured turn budget. This indicates a scheduling bug, not a transient
// condition, and fails the run rather than truncating it silently.
var ErrTurnBudget = errors.New("debate exceeded turn budget")

// TurnFunc is invoked after each appended turn, before the next speaker
// starts. It lets the run lifecycle publish partial transcripts while the
// debate is still going.
type TurnFunc func(msg domain.DebateMessage)

// Engine drives the debate from an initial state to the verdict. Turns are
// strictly sequential: at most one generation call is in flight, and each
// turn's prompt includes everything appended before it.
type Engine struct {
	risk      Participant
	advocate  Participant
	judge     Participant
	moderator *Moderator
	maxTurns  int
}

// NewEngine creates a debate engine.
func NewEngine(risk, advocate, judge Participant, moderator *Moderator, maxTurns int) *Engine {
	return &Engine{
		risk:      risk,
		advocate:  advocate,
		judge:     judge,
		moderator: moderator,
		maxTurns:  maxTurns,
	}
}

// Run executes the scheduled debate to completion and returns the final
// state. onTurn may be nil.
func (e *Engine) Run(ctx context.Context, state *domain.DebateState, onTurn TurnFunc) (*domain.DebateState, error) {
	if state.Stage == "" {
		state.Stage = domain.StageOpening
	}
	if state.Speaker == "" {
		state.Speaker = domain.SpeakerRisk
	}

	turns := 0
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if turns >= e.maxTurns {
			return state, fmt.Errorf("%w: %d turns at stage %s", ErrTurnBudget, turns, state.Stage)
		}

		participant, err := e.bySpeaker(state.Speaker)
		if err != nil {
			return state, err
		}

		if err := participant.Act(ctx, state); err != nil {
			return state, err
		}
		turns++

		if onTurn != nil && len(state.Messages) > 0 {
			onTurn(state.Messages[len(state.Messages)-1])
		}

		// The judge's turn is terminal by construction.
		if state.Speaker == domain.SpeakerJudge && state.VerdictRaw != "" {
			return state, nil
		}

		route := e.moderator.Route(state)
		if route.Terminate && state.VerdictRaw != "" {
			return state, nil
		}
		state.Stage = route.Stage
		state.Speaker = route.Speaker
	}
}

func (e *Engine) bySpeaker(speaker domain.Speaker) (Participant, error) {
	switch speaker {
	case domain.SpeakerRisk:
		return e.risk, nil
	case domain.SpeakerAdvocate:
		return e.advocate, nil
	case domain.SpeakerJudge:
		return e.judge, nil
	}
	return nil, fmt.Errorf("no participant for speaker %q", speaker)
}
