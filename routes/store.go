package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"quizflow/model"
)

// loadQuiz assembles a full quiz definition (questions, options,
// conditions) from its tables. Returns sql.ErrNoRows when the quiz does
// not exist.
func loadQuiz(ctx context.Context, db *sql.DB, quizID string) (model.Quiz, error) {
	quiz := model.Quiz{}
	err := db.QueryRowContext(ctx, `
		SELECT id, version, title, description
		FROM quiz
		WHERE id = ?`,
		quizID,
	).Scan(&quiz.ID, &quiz.Version, &quiz.Title, &quiz.Description)
	if err != nil {
		return quiz, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, position, type, label, required, hidden, visibility, weight_rules
		FROM question
		WHERE quiz_id = ?
		ORDER BY position`,
		quizID,
	)
	if err != nil {
		return quiz, err
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		q := model.Question{QuizID: quizID}
		var rules string
		err = rows.Scan(&q.ID, &q.Position, &q.Type, &q.Label, &q.Required, &q.Hidden, &q.Visibility, &rules)
		if err != nil {
			return quiz, err
		}
		if rules != "" {
			if err = json.Unmarshal([]byte(rules), &q.WeightRules); err != nil {
				return quiz, err
			}
		}
		index[q.ID] = len(quiz.Questions)
		quiz.Questions = append(quiz.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return quiz, err
	}

	optRows, err := db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.position, o.label, o.value,
			o.next_question_id, o.next_block_id, o.end_quiz,
			o.intent_vector, o.traits_vector
		FROM question_option o
		INNER JOIN question q ON (o.question_id = q.id)
		WHERE q.quiz_id = ?
		ORDER BY o.question_id, o.position`,
		quizID,
	)
	if err != nil {
		return quiz, err
	}
	defer optRows.Close()

	for optRows.Next() {
		o := model.Option{}
		var questionID, intents, traits string
		err = optRows.Scan(&o.ID, &questionID, &o.Position, &o.Label, &o.Value,
			&o.NextQuestionID, &o.NextBlockID, &o.EndQuiz, &intents, &traits)
		if err != nil {
			return quiz, err
		}
		if o.IntentVector, err = parseVector(intents); err != nil {
			return quiz, err
		}
		if o.TraitsVector, err = parseVector(traits); err != nil {
			return quiz, err
		}
		if i, ok := index[questionID]; ok {
			quiz.Questions[i].Options = append(quiz.Questions[i].Options, o)
		}
	}
	if err = optRows.Err(); err != nil {
		return quiz, err
	}

	condRows, err := db.QueryContext(ctx, `
		SELECT id, question_id, type, question_ref, option_id,
			name, threshold, min, max, operator, group_id, order_index, is_active
		FROM question_condition
		WHERE quiz_id = ?
		ORDER BY order_index`,
		quizID,
	)
	if err != nil {
		return quiz, err
	}
	defer condRows.Close()

	for condRows.Next() {
		c := model.Condition{}
		err = condRows.Scan(&c.ID, &c.QuestionID, &c.Type, &c.QuestionRef, &c.OptionID,
			&c.Name, &c.Threshold, &c.Min, &c.Max, &c.Operator, &c.GroupID, &c.OrderIndex, &c.Active)
		if err != nil {
			return quiz, err
		}
		quiz.Conditions = append(quiz.Conditions, c)
	}
	return quiz, condRows.Err()
}

func parseVector(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	var v map[string]float64
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func loadSession(ctx context.Context, db *sql.DB, sessionID string) (model.Session, error) {
	s := model.Session{}
	var state string
	err := db.QueryRowContext(ctx, `
		SELECT id, quiz_id, contact_id, status, current_question_id, state, created_at, updated_at
		FROM quiz_session
		WHERE id = ?`,
		sessionID,
	).Scan(&s.ID, &s.QuizID, &s.ContactID, &s.Status, &s.CurrentQuestionID, &state, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal([]byte(state), &s.State)
	return s, err
}

func insertSession(ctx context.Context, db *sql.DB, s model.Session) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO quiz_session (id, quiz_id, contact_id, status, current_question_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.QuizID, s.ContactID, s.Status, s.CurrentQuestionID, string(state), s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// updateSession is the single per-answer upsert: the whole snapshot is
// written back in one round trip.
func updateSession(ctx context.Context, db *sql.DB, s model.Session) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE quiz_session
		SET status = ?,
			current_question_id = ?,
			state = ?,
			updated_at = ?
		WHERE id = ?`,
		s.Status, s.CurrentQuestionID, string(state), time.Now(), s.ID,
	)
	return err
}
