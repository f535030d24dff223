// Package debate implements the multi-party deliberation over a loan case:
// a fixed-schedule exchange between a risk agent, an advocate agent, a
// routing moderator, and a judge that issues the final verdict.
package debate

import "github.com/xiaot623/loancourt/internal/domain"

// Route is the moderator's scheduling decision after a turn.
type Route struct {
	Stage     domain.Stage
	Speaker   domain.Speaker
	Terminate bool
}

// Next computes the next stage and speaker from the fixed debate schedule.
// It is a pure function of (stage, speaker); generation output never feeds
// into it. Any state outside the schedule table routes straight to the
// judge so a malformed state ends the debate instead of hanging it.
func Next(stage domain.Stage, speaker domain.Speaker) Route {
	if stage == domain.StageVerdict || speaker == domain.SpeakerJudge {
		return Route{Stage: domain.StageVerdict, Speaker: domain.SpeakerJudge, Terminate: true}
	}

	switch {
	case stage == domain.StageOpening && speaker == domain.SpeakerRisk:
		return Route{Stage: domain.StageRebuttal, Speaker: domain.SpeakerAdvocate}
	case stage == domain.StageRebuttal && speaker == domain.SpeakerAdvocate:
		return Route{Stage: domain.StageCounter, Speaker: domain.SpeakerRisk}
	case stage == domain.StageCounter && speaker == domain.SpeakerRisk:
		return Route{Stage: domain.StageFinal, Speaker: domain.SpeakerAdvocate}
	case stage == domain.StageFinal && speaker == domain.SpeakerAdvocate:
		return Route{Stage: domain.StageVerdict, Speaker: domain.SpeakerJudge}
	}

	// Fallback: unknown state, hand it to the judge.
	return Route{Stage: domain.StageVerdict, Speaker: domain.SpeakerJudge}
}
