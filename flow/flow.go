// Package flow implements the adaptive quiz flow engine: condition
// evaluation, vector accumulation and next-question resolution.
//
// The engine is stateless per invocation. It receives a full session
// snapshot, computes the next snapshot plus the next question to present,
// and hands both back to the caller; persistence belongs to the caller.
package flow

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"quizflow/model"
)

// ConfigurationError signals a corrupted or cross-quiz session state,
// e.g. an answered question id that does not exist in the quiz. It is
// the only hard failure the engine produces; every configuration gap
// inside the quiz definition itself resolves through fail-open defaults.
type ConfigurationError struct {
	QuizID     string
	QuestionID string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("quiz %s: question %s not in question set", e.QuizID, e.QuestionID)
}

// Engine evaluates quiz flows. Safe for concurrent use: it holds no
// session state, only the injected logger.
type Engine struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Engine{log: log}
}

// StartResult is the outcome of opening a new session.
type StartResult struct {
	FirstQuestion *model.Question
	State         model.SessionState
}

// SubmitResult is the outcome of folding in one answer.
type SubmitResult struct {
	State        model.SessionState
	NextQuestion *model.Question
	Complete     bool
}

// Start opens a fresh session state and resolves the first question.
// An empty or fully ineligible quiz still yields a usable result: the
// first visible question is the fallback, and a quiz with no visible
// questions at all completes immediately.
func (e *Engine) Start(quiz model.Quiz, contactID string) StartResult {
	state := model.SessionState{
		ContactID: contactID,
		Answers:   map[string]model.Answer{},
		Vectors: model.Vectors{
			Traits:  map[string]float64{},
			Intents: map[string]float64{},
		},
		Visited: []string{},
		Skipped: []string{},
	}

	first := e.ResolveNext(quiz, &state)
	return StartResult{FirstQuestion: first, State: state}
}

// Submit records one answer, accumulates its score contributions and
// resolves the next question. The input state is not mutated; the
// returned snapshot supersedes it.
func (e *Engine) Submit(quiz model.Quiz, state model.SessionState, questionID string, answer model.Answer) (SubmitResult, error) {
	next := cloneState(state)

	if next.Completed {
		return SubmitResult{State: next, Complete: true}, nil
	}

	question := questionByID(quiz, questionID)
	if question == nil {
		return SubmitResult{}, &ConfigurationError{QuizID: quiz.ID, QuestionID: questionID}
	}

	next.Answers[questionID] = answer
	next.Visited = appendID(next.Visited, questionID)
	next.Skipped = removeID(next.Skipped, questionID)
	next.Vectors = e.Accumulate(next.Vectors, *question, answer)

	// An end_quiz option terminates the flow regardless of what remains.
	for _, opt := range selectedOptions(*question, answer) {
		if opt.EndQuiz {
			next.Completed = true
			next.DecisionLog = append(next.DecisionLog, model.DecisionLogEntry{
				QuestionID: questionID,
				Verdict:    "end_quiz",
			})
			return SubmitResult{State: next, Complete: true}, nil
		}
	}

	nq := e.resolveAfter(quiz, &next, *question, answer)
	return SubmitResult{State: next, NextQuestion: nq, Complete: next.Completed}, nil
}

func questionByID(quiz model.Quiz, id string) *model.Question {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == id {
			return &quiz.Questions[i]
		}
	}
	return nil
}

func selectedOptions(q model.Question, ans model.Answer) []model.Option {
	var out []model.Option
	for _, id := range ans.OptionIDs {
		for i := range q.Options {
			if q.Options[i].ID == id {
				out = append(out, q.Options[i])
				break
			}
		}
	}
	return out
}

func appendID(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	for i, x := range ids {
		if x == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func cloneState(s model.SessionState) model.SessionState {
	out := s
	out.Answers = make(map[string]model.Answer, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Vectors = cloneVectors(s.Vectors)
	out.Visited = append([]string(nil), s.Visited...)
	out.Skipped = append([]string(nil), s.Skipped...)
	out.Injected = append([]string(nil), s.Injected...)
	out.DecisionLog = append([]model.DecisionLogEntry(nil), s.DecisionLog...)
	return out
}
