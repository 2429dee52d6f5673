package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quizflow/model"
)

func cond(typ model.ConditionType, op model.LogicalOperator, order int) model.Condition {
	return model.Condition{
		Type:       typ,
		Operator:   op,
		OrderIndex: order,
		Active:     true,
	}
}

func TestEvaluate_EmptyListIsEligible(t *testing.T) {
	e := New(nil)

	assert.True(t, e.Evaluate(nil, model.SessionState{}))
	assert.True(t, e.Evaluate([]model.Condition{}, model.SessionState{
		ContactID: "c1",
		Vectors:   model.Vectors{Traits: map[string]float64{"urgency": 99}},
	}))
}

func TestEvaluate_InactiveConditionsAreAbsent(t *testing.T) {
	e := New(nil)

	failing := cond(model.CondIsIdentified, model.OpAnd, 0)
	failing.Active = false

	// The only condition would fail, but it is inactive.
	assert.True(t, e.Evaluate([]model.Condition{failing}, model.SessionState{}))
}

func TestEvaluate_UnknownTypePassesOpen(t *testing.T) {
	e := New(nil)

	foo := cond("foo_bar", model.OpAnd, 0)
	assert.True(t, e.Evaluate([]model.Condition{foo}, model.SessionState{}))
}

func TestEvaluate_IdentityPredicates(t *testing.T) {
	e := New(nil)
	anon := model.SessionState{}
	known := model.SessionState{ContactID: "contact-1"}

	assert.False(t, e.Evaluate([]model.Condition{cond(model.CondIsIdentified, model.OpAnd, 0)}, anon))
	assert.True(t, e.Evaluate([]model.Condition{cond(model.CondIsIdentified, model.OpAnd, 0)}, known))
	assert.True(t, e.Evaluate([]model.Condition{cond(model.CondIsAnonymous, model.OpAnd, 0)}, anon))
	assert.False(t, e.Evaluate([]model.Condition{cond(model.CondIsAnonymous, model.OpAnd, 0)}, known))
}

func TestEvaluate_AnswerLookups(t *testing.T) {
	e := New(nil)
	state := model.SessionState{
		Answers: map[string]model.Answer{
			"q1": {OptionIDs: []string{"o1", "o2"}},
			"q4": {Value: "o9"},
		},
		Skipped: []string{"q2"},
	}

	answered := cond(model.CondQuestionAnswered, model.OpAnd, 0)
	answered.QuestionRef = "q1"
	assert.True(t, e.Evaluate([]model.Condition{answered}, state))

	answered.QuestionRef = "q3"
	assert.False(t, e.Evaluate([]model.Condition{answered}, state))

	skipped := cond(model.CondQuestionSkipped, model.OpAnd, 0)
	skipped.QuestionRef = "q2"
	assert.True(t, e.Evaluate([]model.Condition{skipped}, state))

	skipped.QuestionRef = "q1"
	assert.False(t, e.Evaluate([]model.Condition{skipped}, state))

	t.Run("answer_equals includes multi-select", func(t *testing.T) {
		eq := cond(model.CondAnswerEquals, model.OpAnd, 0)
		eq.QuestionRef = "q1"
		eq.OptionID = "o2"
		assert.True(t, e.Evaluate([]model.Condition{eq}, state))

		eq.OptionID = "o3"
		assert.False(t, e.Evaluate([]model.Condition{eq}, state))
	})

	t.Run("answer_equals matches raw value", func(t *testing.T) {
		eq := cond(model.CondAnswerEquals, model.OpAnd, 0)
		eq.QuestionRef = "q4"
		eq.OptionID = "o9"
		assert.True(t, e.Evaluate([]model.Condition{eq}, state))
	})

	t.Run("answer_equals on unanswered question", func(t *testing.T) {
		eq := cond(model.CondAnswerEquals, model.OpAnd, 0)
		eq.QuestionRef = "q7"
		eq.OptionID = "o1"
		assert.False(t, e.Evaluate([]model.Condition{eq}, state))
	})
}

func TestEvaluate_VectorThresholds(t *testing.T) {
	e := New(nil)
	state := model.SessionState{
		Vectors: model.Vectors{
			Traits:  map[string]float64{"urgency": 3},
			Intents: map[string]float64{"buy_now": 5},
		},
	}

	gt := cond(model.CondTraitGT, model.OpAnd, 0)
	gt.Name = "urgency"
	gt.Threshold = 5
	assert.False(t, e.Evaluate([]model.Condition{gt}, state))

	gt.Threshold = 2
	assert.True(t, e.Evaluate([]model.Condition{gt}, state))

	lt := cond(model.CondTraitLT, model.OpAnd, 0)
	lt.Name = "urgency"
	lt.Threshold = 5
	assert.True(t, e.Evaluate([]model.Condition{lt}, state))

	t.Run("absent vector defaults to zero", func(t *testing.T) {
		gt := cond(model.CondIntentGT, model.OpAnd, 0)
		gt.Name = "unknown_intent"
		gt.Threshold = -1
		assert.True(t, e.Evaluate([]model.Condition{gt}, state))

		gt.Threshold = 0
		assert.False(t, e.Evaluate([]model.Condition{gt}, state))
	})

	t.Run("intent_range bounds are inclusive", func(t *testing.T) {
		rng := cond(model.CondIntentRange, model.OpAnd, 0)
		rng.Name = "buy_now"
		rng.Min, rng.Max = 5, 10
		assert.True(t, e.Evaluate([]model.Condition{rng}, state))

		rng.Min, rng.Max = 0, 5
		assert.True(t, e.Evaluate([]model.Condition{rng}, state))

		rng.Min, rng.Max = 6, 10
		assert.False(t, e.Evaluate([]model.Condition{rng}, state))
	})
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	e := New(nil)
	known := model.SessionState{ContactID: "contact-1"}

	t.Run("AND failure ends the walk", func(t *testing.T) {
		conds := []model.Condition{
			cond(model.CondIsAnonymous, model.OpAnd, 0), // false
			cond("would_pass_open", model.OpAnd, 1),
		}
		assert.False(t, e.Evaluate(conds, known))
	})

	t.Run("OR success ends the walk", func(t *testing.T) {
		conds := []model.Condition{
			cond(model.CondIsIdentified, model.OpOr, 0), // true
			cond(model.CondIsAnonymous, model.OpAnd, 1), // would fail
		}
		assert.True(t, e.Evaluate(conds, known))
	})

	t.Run("all AND passing", func(t *testing.T) {
		conds := []model.Condition{
			cond(model.CondIsIdentified, model.OpAnd, 0),
			cond(model.CondQuestionAnswered, model.OpOr, 1), // false, OR: no short-circuit
		}
		// Walk completes; first operator is AND so the default is true.
		assert.True(t, e.Evaluate(conds, known))
	})

	t.Run("all OR failing", func(t *testing.T) {
		conds := []model.Condition{
			cond(model.CondIsAnonymous, model.OpOr, 0),
			cond(model.CondQuestionAnswered, model.OpOr, 1),
		}
		assert.False(t, e.Evaluate(conds, known))
	})

	t.Run("default follows the first condition's operator", func(t *testing.T) {
		// The OR head fails without short-circuiting, the AND tail
		// passes without short-circuiting; the flat walk then defaults
		// on the head's operator and the group fails.
		conds := []model.Condition{
			cond(model.CondIsAnonymous, model.OpOr, 0),   // false
			cond(model.CondIsIdentified, model.OpAnd, 1), // true
		}
		assert.False(t, e.Evaluate(conds, known))
	})

	t.Run("order_index drives the walk order", func(t *testing.T) {
		conds := []model.Condition{
			cond(model.CondIsAnonymous, model.OpAnd, 5), // false, but walked second
			cond(model.CondIsIdentified, model.OpOr, 1), // true, walked first
		}
		assert.True(t, e.Evaluate(conds, known))
	})
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := New(nil)
	state := model.SessionState{
		ContactID: "contact-1",
		Vectors:   model.Vectors{Intents: map[string]float64{"buy_now": 4}},
	}

	rng := cond(model.CondIntentRange, model.OpAnd, 0)
	rng.Name = "buy_now"
	rng.Min, rng.Max = 1, 5
	conds := []model.Condition{rng, cond(model.CondIsIdentified, model.OpAnd, 1)}

	first := e.Evaluate(conds, state)
	second := e.Evaluate(conds, state)
	assert.Equal(t, first, second)
	assert.True(t, first)
}
