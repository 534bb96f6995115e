package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// QuizQuestion-specific validation errors
var (
	ErrQuestionIDEmpty       = errors.New("question ID cannot be empty")
	ErrQuestionJobIDEmpty    = errors.New("question job ID cannot be empty")
	ErrQuestionTextEmpty     = errors.New("question text cannot be empty")
	ErrQuestionAnswerEmpty   = errors.New("question answer cannot be empty")
	ErrQuestionAnswerInvalid = errors.New("question answer must be valid JSON")
)

// QuizQuestion represents one generated quiz question for a job. The answer
// configuration is stored as a JSONB structure, allowing different question
// types (multiple choice, true/false, short answer) to carry their own shape.
type QuizQuestion struct {
	ID           uuid.UUID       `json:"id"`
	JobID        uuid.UUID       `json:"job_id"`
	Question     string          `json:"question"`
	QuestionType string          `json:"question_type"`
	Answer       json.RawMessage `json:"answer"`
	Context      *string         `json:"context,omitempty"`
	MaxScore     int             `json:"max_score"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewQuizQuestion creates a validated QuizQuestion belonging to the given job.
func NewQuizQuestion(jobID uuid.UUID, question, questionType string, answer json.RawMessage) (*QuizQuestion, error) {
	q := &QuizQuestion{
		ID:           uuid.New(),
		JobID:        jobID,
		Question:     question,
		QuestionType: questionType,
		Answer:       answer,
		MaxScore:     10,
		CreatedAt:    time.Now().UTC(),
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	return q, nil
}

// Validate checks if the QuizQuestion has valid data.
func (q *QuizQuestion) Validate() error {
	if q.ID == uuid.Nil {
		return ErrQuestionIDEmpty
	}

	if q.JobID == uuid.Nil {
		return ErrQuestionJobIDEmpty
	}

	if q.Question == "" {
		return ErrQuestionTextEmpty
	}

	if len(q.Answer) == 0 {
		return ErrQuestionAnswerEmpty
	}

	var js json.RawMessage
	if err := json.Unmarshal(q.Answer, &js); err != nil {
		return ErrQuestionAnswerInvalid
	}

	return nil
}
