package model

import "time"

// QuestionType enumerates the kinds of prompts a quiz can contain.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	FreeText     QuestionType = "free_text"
	Scale        QuestionType = "scale"
)

// Visibility controls whether a question takes part in the default
// candidate scan or is only reachable through an explicit jump.
type Visibility string

const (
	VisibilityVisible     Visibility = "visible"
	VisibilityConditional Visibility = "conditional"
)

type Quiz struct {
	ID          string      `json:"id,omitempty"`
	Version     int         `json:"version,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Questions   []Question  `json:"questions"`
	Conditions  []Condition `json:"conditions,omitempty"`
}

type Question struct {
	ID          string       `json:"id,omitempty"`
	QuizID      string       `json:"quiz_id,omitempty"`
	Position    int          `json:"position"`
	Type        QuestionType `json:"type"`
	Label       string       `json:"label"`
	Required    bool         `json:"required"`
	Hidden      bool         `json:"hidden,omitempty"`
	Visibility  Visibility   `json:"visibility,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	WeightRules []WeightRule `json:"weight_rules,omitempty"`
}

type Option struct {
	ID             string             `json:"id,omitempty"`
	Position       int                `json:"position"`
	Label          string             `json:"label"`
	Value          string             `json:"value,omitempty"`
	NextQuestionID string             `json:"next_question_id,omitempty"`
	NextBlockID    string             `json:"next_block_id,omitempty"`
	EndQuiz        bool               `json:"end_quiz,omitempty"`
	IntentVector   map[string]float64 `json:"intent_vector,omitempty"`
	TraitsVector   map[string]float64 `json:"traits_vector,omitempty"`
}

// WeightRule is a runtime-computed score contribution: when Expression
// evaluates to true against the raw answer, the intent/trait deltas are
// folded into the session's accumulated vectors.
type WeightRule struct {
	Expression string             `json:"expression"`
	Intents    map[string]float64 `json:"intents,omitempty"`
	Traits     map[string]float64 `json:"traits,omitempty"`
}

// ConditionType enumerates the branching predicates.
type ConditionType string

const (
	CondIsIdentified     ConditionType = "is_identified"
	CondIsAnonymous      ConditionType = "is_anonymous"
	CondQuestionAnswered ConditionType = "question_answered"
	CondQuestionSkipped  ConditionType = "question_skipped"
	CondTraitGT          ConditionType = "trait_gt"
	CondTraitLT          ConditionType = "trait_lt"
	CondIntentGT         ConditionType = "intent_gt"
	CondIntentLT         ConditionType = "intent_lt"
	CondIntentRange      ConditionType = "intent_range"
	CondAnswerEquals     ConditionType = "answer_equals"
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// Condition is one branching rule attached to a question. The payload
// fields are type-specific: QuestionRef for answered/skipped lookups,
// OptionID for answer_equals, Name/Threshold/Min/Max for vector
// comparisons. Inactive conditions are never evaluated.
type Condition struct {
	ID          string          `json:"id,omitempty"`
	QuestionID  string          `json:"question_id"`
	Type        ConditionType   `json:"type"`
	QuestionRef string          `json:"question_ref,omitempty"`
	OptionID    string          `json:"option_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Threshold   float64         `json:"threshold,omitempty"`
	Min         float64         `json:"min,omitempty"`
	Max         float64         `json:"max,omitempty"`
	Operator    LogicalOperator `json:"logical_operator"`
	GroupID     string          `json:"group_id,omitempty"`
	OrderIndex  int             `json:"order_index"`
	Active      bool            `json:"is_active"`
}

// Vectors holds the two running score maps accumulated across answers.
type Vectors struct {
	Traits  map[string]float64 `json:"traits"`
	Intents map[string]float64 `json:"intents"`
}

// Answer is one recorded response: selected option ids for choice
// questions, a raw value for free-text and scale questions.
type Answer struct {
	OptionIDs []string `json:"option_ids,omitempty"`
	Value     any      `json:"value,omitempty"`
}

// DecisionLogEntry is one line of the audit trail: the verdict reached
// for a candidate question during resolution.
type DecisionLogEntry struct {
	QuestionID string `json:"question_id"`
	Verdict    string `json:"verdict"` // eligible|rejected|jump|fallback|end_quiz
	Conditions int    `json:"conditions"`
}

type SessionStatus string

const (
	StatusStarted    SessionStatus = "started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// SessionState is the engine-facing snapshot of one respondent's run.
// It goes into the engine by value and a new snapshot comes back out;
// the session row owns persistence.
type SessionState struct {
	ContactID   string             `json:"contact_id,omitempty"` // empty = anonymous
	Answers     map[string]Answer  `json:"answers"`
	Vectors     Vectors            `json:"accumulated_vectors"`
	Visited     []string           `json:"visited_question_ids"`
	Skipped     []string           `json:"skipped_question_ids"`
	Injected    []string           `json:"injected_question_ids,omitempty"`
	DecisionLog []DecisionLogEntry `json:"decision_log,omitempty"`
	Completed   bool               `json:"completed"`
}

type Session struct {
	ID                string        `json:"id"`
	QuizID            string        `json:"quiz_id"`
	ContactID         string        `json:"contact_id,omitempty"`
	Status            SessionStatus `json:"status"`
	CurrentQuestionID string        `json:"current_question_id,omitempty"`
	State             SessionState  `json:"state"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
