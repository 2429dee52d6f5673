package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"quizflow/app"
	"quizflow/flow"
	"quizflow/httpx"
	"quizflow/log"
	"quizflow/model"
)

// publicQuestion is the respondent-facing view of a question: no
// conditions, no score vectors, no weight rules.
type publicQuestion struct {
	ID       string             `json:"id"`
	Position int                `json:"position"`
	Type     model.QuestionType `json:"type"`
	Label    string             `json:"label"`
	Required bool               `json:"required"`
	Options  []publicOption     `json:"options,omitempty"`
}

type publicOption struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Label    string `json:"label"`
	Value    string `json:"value,omitempty"`
}

func publicView(q model.Question) publicQuestion {
	view := publicQuestion{
		ID:       q.ID,
		Position: q.Position,
		Type:     q.Type,
		Label:    q.Label,
		Required: q.Required,
	}
	for _, o := range q.Options {
		view.Options = append(view.Options, publicOption{
			ID:       o.ID,
			Position: o.Position,
			Label:    o.Label,
			Value:    o.Value,
		})
	}
	return view
}

func PublicGetQuizById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")

		quiz, err := loadQuiz(r.Context(), app.DB, quizId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_quiz", quizId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_quiz", err)
			return
		}

		questions := []publicQuestion{}
		for _, q := range quiz.Questions {
			if q.Hidden || (q.Visibility != "" && q.Visibility != model.VisibilityVisible) {
				continue
			}
			questions = append(questions, publicView(q))
		}

		render.JSON(w, r, map[string]any{
			"id":          quiz.ID,
			"title":       quiz.Title,
			"description": quiz.Description,
			"questions":   questions,
		})
	}
}

type startSessionRequest struct {
	ContactID string `json:"contact_id"`
}

func PublicStartSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")

		req := startSessionRequest{}
		if r.ContentLength > 0 {
			if err := render.DecodeJSON(r.Body, &req); err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
				return
			}
		}

		quiz, err := loadQuiz(r.Context(), app.DB, quizId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_quiz", quizId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_quiz", err)
			return
		}

		res := app.Flow.Start(quiz, req.ContactID)

		now := time.Now()
		session := model.Session{
			ID:        uuid.NewString(),
			QuizID:    quiz.ID,
			ContactID: req.ContactID,
			Status:    model.StatusStarted,
			State:     res.State,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if res.FirstQuestion != nil {
			session.CurrentQuestionID = res.FirstQuestion.ID
		} else {
			session.Status = model.StatusCompleted
		}

		if err := insertSession(r.Context(), app.DB, session); err != nil {
			httpx.LogInternalError(w, "db.insert_session", err)
			return
		}

		body := map[string]any{
			"session_id": session.ID,
			"complete":   res.FirstQuestion == nil,
		}
		if res.FirstQuestion != nil {
			body["question"] = publicView(*res.FirstQuestion)
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, body)
	}
}

type submitAnswerRequest struct {
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids,omitempty"`
	Value      any      `json:"value,omitempty"`
}

func PublicSubmitAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")
		sessionId := chi.URLParam(r, "sessionID")

		req := submitAnswerRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.QuestionID == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.missing_question_id")
			return
		}

		quiz, err := loadQuiz(r.Context(), app.DB, quizId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_quiz", quizId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_quiz", err)
			return
		}

		session, err := loadSession(r.Context(), app.DB, sessionId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_session", sessionId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_session", err)
			return
		}
		if session.QuizID != quiz.ID {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "session.quiz_mismatch")
			return
		}

		answer := model.Answer{OptionIDs: req.OptionIDs, Value: req.Value}
		out, err := app.Flow.Submit(quiz, session.State, req.QuestionID, answer)
		if err != nil {
			var cfgErr *flow.ConfigurationError
			if errors.As(err, &cfgErr) {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.WarnLevel, "flow.submit", "%s", cfgErr)
				return
			}
			httpx.LogInternalError(w, "flow.submit", err)
			return
		}

		session.State = out.State
		session.Status = model.StatusInProgress
		session.CurrentQuestionID = ""
		if out.Complete {
			session.Status = model.StatusCompleted
		} else if out.NextQuestion != nil {
			session.CurrentQuestionID = out.NextQuestion.ID
		}

		if err := updateSession(r.Context(), app.DB, session); err != nil {
			httpx.LogInternalError(w, "db.update_session", err)
			return
		}

		body := map[string]any{
			"session_id": session.ID,
			"complete":   out.Complete,
		}
		if out.NextQuestion != nil {
			body["question"] = publicView(*out.NextQuestion)
		}
		render.JSON(w, r, body)
	}
}
