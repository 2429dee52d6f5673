package flow

import (
	"github.com/expr-lang/expr"

	"quizflow/model"
)

// Accumulate folds one answer's score contributions into the running
// vectors and returns the updated copy. Static contributions come from
// each selected option's intent/traits vectors; dynamic ones from the
// question's weight rules evaluated against the raw answer. Addition is
// commutative across options, so option order never matters. Missing
// vectors are empty contributions, never an error — but the fold itself
// is not idempotent: the caller must apply each answer exactly once.
func (e *Engine) Accumulate(v model.Vectors, q model.Question, ans model.Answer) model.Vectors {
	out := cloneVectors(v)

	for _, opt := range selectedOptions(q, ans) {
		addDeltas(out.Intents, opt.IntentVector)
		addDeltas(out.Traits, opt.TraitsVector)
	}

	for _, rule := range q.WeightRules {
		match, err := e.evalWeightRule(rule, ans)
		if err != nil {
			// A broken rule contributes nothing; it must not block the
			// answer from being recorded.
			e.log.WithField("question_id", q.ID).WithField("rule", rule.Expression).
				Debugf("flow: weight rule skipped: %v", err)
			continue
		}
		if match {
			addDeltas(out.Intents, rule.Intents)
			addDeltas(out.Traits, rule.Traits)
		}
	}

	return out
}

// evalWeightRule runs a rule expression against the raw answer. The
// environment exposes the free-text/numeric value as `answer` and the
// selected option ids as `selected`.
func (e *Engine) evalWeightRule(rule model.WeightRule, ans model.Answer) (bool, error) {
	env := map[string]any{
		"answer":   ans.Value,
		"selected": ans.OptionIDs,
	}

	program, err := expr.Compile(rule.Expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	match, ok := output.(bool)
	return match && ok, nil
}

func addDeltas(totals map[string]float64, deltas map[string]float64) {
	for name, delta := range deltas {
		totals[name] += delta
	}
}

func cloneVectors(v model.Vectors) model.Vectors {
	out := model.Vectors{
		Traits:  make(map[string]float64, len(v.Traits)),
		Intents: make(map[string]float64, len(v.Intents)),
	}
	for k, x := range v.Traits {
		out.Traits[k] = x
	}
	for k, x := range v.Intents {
		out.Intents[k] = x
	}
	return out
}
