package flow

import (
	"sort"

	"quizflow/model"
)

// ResolveNext picks the question to present for the session's current
// state, appending its eligibility verdicts to the state's decision log
// and skipped list. It returns nil when the flow is complete (and marks
// the state completed), never an error: misconfiguration resolves
// through fail-open defaults so a respondent is never stranded.
func (e *Engine) ResolveNext(quiz model.Quiz, state *model.SessionState) *model.Question {
	if state.Completed {
		return nil
	}

	starting := len(state.Answers) == 0
	candidates := candidateList(quiz, *state, starting)

	if q := e.scan(quiz, state, candidates); q != nil {
		return q
	}

	if starting {
		// Nothing qualified on the very first resolution: fall back to
		// the first visible question rather than dead-ending the funnel.
		if len(candidates) > 0 {
			first := candidates[0]
			state.Skipped = removeID(state.Skipped, first.ID)
			state.DecisionLog = append(state.DecisionLog, model.DecisionLogEntry{
				QuestionID: first.ID,
				Verdict:    "fallback",
			})
			e.log.WithField("quiz_id", quiz.ID).Debug("flow: no eligible first question, falling back to first visible")
			return &first
		}
	}

	state.Completed = true
	return nil
}

// resolveAfter routes the step that follows a just-submitted answer:
// explicit option overrides win over condition evaluation, then the
// regular eligibility scan runs over the questions not yet visited.
func (e *Engine) resolveAfter(quiz model.Quiz, state *model.SessionState, answered model.Question, answer model.Answer) *model.Question {
	for _, opt := range selectedOptions(answered, answer) {
		target := opt.NextQuestionID
		if target == "" {
			target = opt.NextBlockID
		}
		if target == "" {
			continue
		}
		if q := questionByID(quiz, target); q != nil {
			if q.Hidden || (q.Visibility != "" && q.Visibility != model.VisibilityVisible) {
				state.Injected = appendID(state.Injected, q.ID)
			}
			state.DecisionLog = append(state.DecisionLog, model.DecisionLogEntry{
				QuestionID: q.ID,
				Verdict:    "jump",
			})
			return q
		}
		// Dangling jump target: ignore the override and scan normally.
		e.log.WithField("quiz_id", quiz.ID).WithField("target", target).Debug("flow: jump target not found")
	}

	return e.ResolveNext(quiz, state)
}

// scan walks the candidates in position order and returns the first one
// whose condition list passes. Candidates rejected on the way are
// recorded as skipped.
func (e *Engine) scan(quiz model.Quiz, state *model.SessionState, candidates []model.Question) *model.Question {
	for i := range candidates {
		q := candidates[i]
		conds := conditionsFor(quiz, q.ID)
		if e.Evaluate(conds, *state) {
			state.DecisionLog = append(state.DecisionLog, model.DecisionLogEntry{
				QuestionID: q.ID,
				Verdict:    "eligible",
				Conditions: len(conds),
			})
			return &q
		}
		state.Skipped = appendID(state.Skipped, q.ID)
		state.DecisionLog = append(state.DecisionLog, model.DecisionLogEntry{
			QuestionID: q.ID,
			Verdict:    "rejected",
			Conditions: len(conds),
		})
	}
	return nil
}

// candidateList is the visibility-filtered, position-ordered question
// list. Hidden and conditionally injected questions never enter the
// default scan (they are reachable only through explicit jumps), and
// after the first step visited questions are excluded so no question is
// shown twice.
func candidateList(quiz model.Quiz, state model.SessionState, starting bool) []model.Question {
	out := make([]model.Question, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if q.Hidden {
			continue
		}
		if q.Visibility != "" && q.Visibility != model.VisibilityVisible {
			continue
		}
		if !starting && contains(state.Visited, q.ID) {
			continue
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
