package flow

import (
	"fmt"
	"sort"

	"quizflow/model"
)

// Evaluate runs one question's full condition list as a single flat
// sequence ordered by order_index. Inactive conditions are treated as
// absent and an empty list is unconditionally eligible.
//
// The walk short-circuits on the first AND condition that fails or OR
// condition that passes. If it runs to the end, the result defaults on
// the *first* condition's operator: AND means everything passed, OR
// means nothing did. Conditions are deliberately not partitioned by
// group_id before combining; existing quiz definitions depend on this
// flat-sequence behavior, so it must not be "fixed" into AND-of-ORs.
func (e *Engine) Evaluate(conds []model.Condition, state model.SessionState) bool {
	active := make([]model.Condition, 0, len(conds))
	for _, c := range conds {
		if c.Active {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return true
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].OrderIndex < active[j].OrderIndex
	})

	for _, c := range active {
		pass := evalCondition(c, state)
		switch {
		case c.Operator == model.OpOr && pass:
			return true
		case c.Operator != model.OpOr && !pass:
			return false
		}
	}

	// No short-circuit: AND chains passed everything, OR chains passed
	// nothing. An operator left blank counts as AND.
	return active[0].Operator != model.OpOr
}

func evalCondition(c model.Condition, state model.SessionState) bool {
	switch c.Type {
	case model.CondIsIdentified:
		return state.ContactID != ""
	case model.CondIsAnonymous:
		return state.ContactID == ""
	case model.CondQuestionAnswered:
		_, ok := state.Answers[c.QuestionRef]
		return ok
	case model.CondQuestionSkipped:
		for _, id := range state.Skipped {
			if id == c.QuestionRef {
				return true
			}
		}
		return false
	case model.CondTraitGT:
		return state.Vectors.Traits[c.Name] > c.Threshold
	case model.CondTraitLT:
		return state.Vectors.Traits[c.Name] < c.Threshold
	case model.CondIntentGT:
		return state.Vectors.Intents[c.Name] > c.Threshold
	case model.CondIntentLT:
		return state.Vectors.Intents[c.Name] < c.Threshold
	case model.CondIntentRange:
		v := state.Vectors.Intents[c.Name]
		return v >= c.Min && v <= c.Max
	case model.CondAnswerEquals:
		ans, ok := state.Answers[c.QuestionRef]
		if !ok {
			return false
		}
		for _, id := range ans.OptionIDs {
			if id == c.OptionID {
				return true
			}
		}
		return fmt.Sprint(ans.Value) == c.OptionID && ans.Value != nil
	default:
		// Unknown condition types pass. A malformed rule must never
		// strand a respondent mid-funnel.
		return true
	}
}

// conditionsFor collects the conditions attached to one question.
func conditionsFor(quiz model.Quiz, questionID string) []model.Condition {
	var out []model.Condition
	for _, c := range quiz.Conditions {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	return out
}
