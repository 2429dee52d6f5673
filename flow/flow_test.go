package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizflow/model"
)

func TestStart_InitialState(t *testing.T) {
	e := New(nil)
	res := e.Start(threeQuestionQuiz(), "contact-1")

	require.NotNil(t, res.FirstQuestion)
	assert.Equal(t, "q1", res.FirstQuestion.ID)
	assert.Equal(t, "contact-1", res.State.ContactID)
	assert.Empty(t, res.State.Answers)
	assert.Empty(t, res.State.Visited)
	assert.NotNil(t, res.State.Vectors.Traits)
	assert.NotNil(t, res.State.Vectors.Intents)
	assert.False(t, res.State.Completed)
}

func TestSubmit_WalksUnconditionedQuiz(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()

	res := e.Start(quiz, "")
	require.Equal(t, "q1", res.FirstQuestion.ID)

	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)
	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q2", out.NextQuestion.ID)
	assert.False(t, out.Complete)

	out, err = e.Submit(quiz, out.State, "q2", model.Answer{OptionIDs: []string{"q2o1"}})
	require.NoError(t, err)
	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q3", out.NextQuestion.ID)

	out, err = e.Submit(quiz, out.State, "q3", model.Answer{Value: "done"})
	require.NoError(t, err)
	assert.Nil(t, out.NextQuestion)
	assert.True(t, out.Complete)
	assert.True(t, out.State.Completed)
	assert.Equal(t, []string{"q1", "q2", "q3"}, out.State.Visited)
}

func TestSubmit_EndQuizOptionTerminates(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Questions[0].Options[1].EndQuiz = true

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o2"}})
	require.NoError(t, err)

	assert.True(t, out.Complete)
	assert.Nil(t, out.NextQuestion)

	require.NotEmpty(t, out.State.DecisionLog)
	assert.Equal(t, "end_quiz", out.State.DecisionLog[len(out.State.DecisionLog)-1].Verdict)
}

func TestSubmit_ExplicitJumpBypassesConditions(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Questions[0].Options[0].NextQuestionID = "q3"

	// q3 carries an impossible condition, but explicit routing wins.
	quiz.Conditions = []model.Condition{{
		QuestionID: "q3",
		Type:       model.CondTraitGT,
		Name:       "urgency",
		Threshold:  1000,
		Operator:   model.OpAnd,
		Active:     true,
	}}

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)

	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q3", out.NextQuestion.ID)
}

func TestSubmit_JumpToHiddenQuestionIsInjected(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Questions = append(quiz.Questions, model.Question{
		ID: "q9", Position: 9, Hidden: true,
	})
	quiz.Questions[0].Options[0].NextBlockID = "q9"

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)

	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q9", out.NextQuestion.ID)
	assert.Contains(t, out.State.Injected, "q9")
}

func TestSubmit_DanglingJumpFallsBackToScan(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Questions[0].Options[0].NextQuestionID = "no-such-question"

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)

	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q2", out.NextQuestion.ID)
}

func TestSubmit_AccumulatesVectorsAcrossAnswers(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Questions[0].Options[0].IntentVector = map[string]float64{"buy_now": 2}
	quiz.Questions[1].Options[0].IntentVector = map[string]float64{"buy_now": 1}

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.State.Vectors.Intents["buy_now"])

	out, err = e.Submit(quiz, out.State, "q2", model.Answer{OptionIDs: []string{"q2o1"}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, out.State.Vectors.Intents["buy_now"])
}

func TestSubmit_UnknownQuestionIsConfigurationError(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()

	res := e.Start(quiz, "")
	_, err := e.Submit(quiz, res.State, "question-from-another-quiz", model.Answer{})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "quiz-1", cfgErr.QuizID)
	assert.Equal(t, "question-from-another-quiz", cfgErr.QuestionID)
}

func TestSubmit_CompletedStateIsNoOp(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()

	state := model.SessionState{Completed: true, Answers: map[string]model.Answer{}}
	out, err := e.Submit(quiz, state, "q1", model.Answer{Value: "late"})
	require.NoError(t, err)

	assert.True(t, out.Complete)
	assert.Nil(t, out.NextQuestion)
	assert.NotContains(t, out.State.Answers, "q1")
}

func TestSubmit_InputStateNotMutated(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()

	res := e.Start(quiz, "")
	before := len(res.State.Answers)

	_, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)

	assert.Len(t, res.State.Answers, before, "caller's snapshot must stay untouched")
	assert.Empty(t, res.State.Visited)
}

func TestSubmit_UnknownConditionTypeKeepsQuestionEligible(t *testing.T) {
	e := New(nil)
	quiz := threeQuestionQuiz()
	quiz.Conditions = []model.Condition{{
		QuestionID: "q2",
		Type:       "foo_bar",
		Operator:   model.OpAnd,
		Active:     true,
	}}

	res := e.Start(quiz, "")
	out, err := e.Submit(quiz, res.State, "q1", model.Answer{OptionIDs: []string{"q1o1"}})
	require.NoError(t, err)

	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, "q2", out.NextQuestion.ID)
}
