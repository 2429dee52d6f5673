package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"quizflow/app"
	"quizflow/httpx"
	"quizflow/log"
	"quizflow/model"
)

func CreateQuiz(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz := model.Quiz{}
		err := render.DecodeJSON(r.Body, &quiz)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		quiz.ID = uuid.NewString()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO quiz (id, version, title, description)
			VALUES (?, 1, ?, ?)`,
			quiz.ID,
			quiz.Title,
			quiz.Description,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_quiz", err)
			return
		}

		if err = insertDefinition(r.Context(), tx, quiz); err != nil {
			httpx.LogInternalError(w, "db.insert_quiz.definition", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_quiz.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": quiz.ID,
		})
	}
}

// insertDefinition writes a quiz's questions, options and conditions,
// minting ids for rows that come in without one.
func insertDefinition(ctx context.Context, tx *sql.Tx, quiz model.Quiz) error {
	qstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (id, quiz_id, position, type, label, required, hidden, visibility, weight_rules)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer qstmt.Close()

	ostmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_option (id, question_id, position, label, value,
			next_question_id, next_block_id, end_quiz, intent_vector, traits_vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ostmt.Close()

	cstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_condition (id, quiz_id, question_id, type, question_ref, option_id,
			name, threshold, min, max, operator, group_id, order_index, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cstmt.Close()

	for _, q := range quiz.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Visibility == "" {
			q.Visibility = model.VisibilityVisible
		}

		var rules []byte
		if q.WeightRules != nil {
			if rules, err = json.Marshal(q.WeightRules); err != nil {
				return err
			}
		}

		_, err = qstmt.ExecContext(ctx, q.ID, quiz.ID, q.Position, q.Type, q.Label,
			q.Required, q.Hidden, q.Visibility, string(rules))
		if err != nil {
			return err
		}

		for _, o := range q.Options {
			if o.ID == "" {
				o.ID = uuid.NewString()
			}

			var intents, traits []byte
			if o.IntentVector != nil {
				if intents, err = json.Marshal(o.IntentVector); err != nil {
					return err
				}
			}
			if o.TraitsVector != nil {
				if traits, err = json.Marshal(o.TraitsVector); err != nil {
					return err
				}
			}

			_, err = ostmt.ExecContext(ctx, o.ID, q.ID, o.Position, o.Label, o.Value,
				o.NextQuestionID, o.NextBlockID, o.EndQuiz, string(intents), string(traits))
			if err != nil {
				return err
			}
		}
	}

	for _, c := range quiz.Conditions {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Operator == "" {
			c.Operator = model.OpAnd
		}

		_, err = cstmt.ExecContext(ctx, c.ID, quiz.ID, c.QuestionID, c.Type, c.QuestionRef, c.OptionID,
			c.Name, c.Threshold, c.Min, c.Max, c.Operator, c.GroupID, c.OrderIndex, c.Active)
		if err != nil {
			return err
		}
	}

	return nil
}

func deleteDefinition(ctx context.Context, tx *sql.Tx, quizID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM question_condition
		WHERE quiz_id = ?`,
		quizID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM question_option
		WHERE question_id IN (SELECT id FROM question WHERE quiz_id = ?)`,
		quizID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM question
		WHERE quiz_id = ?`,
		quizID,
	)
	return err
}

func ListQuizzes(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT q.id, q.version, q.title, q.description
			FROM quiz q`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_quizzes", err)
			return
		}
		defer rows.Close()

		quizzes := []model.Quiz{}
		for rows.Next() {
			q := model.Quiz{}
			err = rows.Scan(&q.ID, &q.Version, &q.Title, &q.Description)
			if err != nil {
				httpx.LogInternalError(w, "db.get_quizzes.scan", err)
				return
			}

			quizzes = append(quizzes, q)
		}

		render.JSON(w, r, map[string]any{
			"quizzes": quizzes,
		})
	}
}

func GetQuizById(app app.App) http.HandlerFunc {
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

		render.JSON(w, r, quiz)
	}
}

func UpdateQuiz(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")

		quiz := model.Quiz{}
		err := render.DecodeJSON(r.Body, &quiz)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		quiz.ID = quizId

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// replace the whole definition
		if err = deleteDefinition(r.Context(), tx, quizId); err != nil {
			httpx.LogInternalError(w, "db.update_quiz.delete_definition", err)
			return
		}
		if err = insertDefinition(r.Context(), tx, quiz); err != nil {
			httpx.LogInternalError(w, "db.update_quiz.definition", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			UPDATE quiz
			SET
				title = ?,
				description = ?,
				version = version+1
			WHERE	id = ?
				AND version = ?`,
			quiz.Title,
			quiz.Description,
			quizId,
			quiz.Version,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_quiz", err)
			return
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_quiz.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_quiz.verify.conflict")
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_quiz.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuiz(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM quiz_session
			WHERE quiz_id = ?`,
			quizId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_quiz.sessions", err)
			return
		}

		if err = deleteDefinition(r.Context(), tx, quizId); err != nil {
			httpx.LogInternalError(w, "db.delete_quiz.definition", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM quiz WHERE id = ?`,
			quizId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_quiz", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_quiz.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_quiz", quizId)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_quiz.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetQuizSessions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizId := chi.URLParam(r, "id")

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, quiz_id, contact_id, status, current_question_id, state, created_at, updated_at
			FROM quiz_session
			WHERE quiz_id = ?
			ORDER BY created_at`,
			quizId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_sessions", err)
			return
		}
		defer rows.Close()

		sessions := []model.Session{}
		for rows.Next() {
			s := model.Session{}
			var state string
			err = rows.Scan(&s.ID, &s.QuizID, &s.ContactID, &s.Status, &s.CurrentQuestionID, &state, &s.CreatedAt, &s.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_sessions.scan", err)
				return
			}
			err = json.Unmarshal([]byte(state), &s.State)
			if err != nil {
				httpx.LogInternalError(w, "db.get_sessions.parse_state", err)
				return
			}

			sessions = append(sessions, s)
		}

		render.JSON(w, r, map[string]any{
			"sessions": sessions,
		})
	}
}
