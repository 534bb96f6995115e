package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/lectern-api/internal/domain"
)

// Common request/response structures

// ProcessVideoRequest defines the payload for submitting a video URL.
type ProcessVideoRequest struct {
	URL             string   `json:"url" validate:"required,url"`
	QuestionTypes   []string `json:"question_types,omitempty" validate:"omitempty,dive,oneof=multiple_choice true_false short_answer"`
	DifficultyLevel string   `json:"difficulty_level,omitempty" validate:"omitempty,oneof=easy medium hard"`
	NumQuestions    int      `json:"num_questions,omitempty" validate:"omitempty,gte=1,lte=20"`
	GenerateSummary *bool    `json:"generate_summary,omitempty"`
}

// ProcessContentRequest defines the payload for submitting a document,
// web page, or collection manifest.
type ProcessContentRequest struct {
	Source          string   `json:"source" validate:"required,min=1"`
	SourceKind      string   `json:"source_kind,omitempty" validate:"omitempty,oneof=pdf docx web collection"`
	QuestionTypes   []string `json:"question_types,omitempty" validate:"omitempty,dive,oneof=multiple_choice true_false short_answer"`
	DifficultyLevel string   `json:"difficulty_level,omitempty" validate:"omitempty,oneof=easy medium hard"`
	NumQuestions    int      `json:"num_questions,omitempty" validate:"omitempty,gte=1,lte=20"`
	GenerateSummary *bool    `json:"generate_summary,omitempty"`
}

// processingParams converts request generation options into domain
// parameters. Summary generation defaults to on.
func processingParams(questionTypes []string, difficulty string, numQuestions int, generateSummary *bool) domain.ProcessingParams {
	params := domain.ProcessingParams{
		QuestionTypes:   questionTypes,
		DifficultyLevel: difficulty,
		NumQuestions:    numQuestions,
		GenerateSummary: true,
	}
	if generateSummary != nil {
		params.GenerateSummary = *generateSummary
	}
	return params
}

// JobResponse is the job representation returned by submit, status, and
// list endpoints. Result fields are omitted until the job produces them.
type JobResponse struct {
	ID              string                  `json:"id"`
	UserID          *string                 `json:"user_id,omitempty"`
	SourceKind      string                  `json:"source_kind"`
	Source          string                  `json:"source"`
	Status          string                  `json:"status"`
	Progress        float64                 `json:"progress"`
	Params          domain.ProcessingParams `json:"params"`
	Title           *string                 `json:"title,omitempty"`
	DurationSeconds *int                    `json:"duration_seconds,omitempty"`
	ErrorMessage    *string                 `json:"error_message,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}

// JobResultsResponse is the full payload for a completed job.
type JobResultsResponse struct {
	JobResponse
	Transcript *string                `json:"transcript,omitempty"`
	Summary    *string                `json:"summary,omitempty"`
	Questions  []QuizQuestionResponse `json:"questions"`
}

// QuizQuestionResponse is one generated quiz question.
type QuizQuestionResponse struct {
	ID           string          `json:"id"`
	JobID        string          `json:"job_id"`
	Question     string          `json:"question"`
	QuestionType string          `json:"question_type"`
	Answer       json.RawMessage `json:"answer"`
	Context      *string         `json:"context,omitempty"`
	MaxScore     int             `json:"max_score"`
}

// QuizResponse wraps the questions generated for a completed job.
type QuizResponse struct {
	JobID     string                 `json:"job_id"`
	Questions []QuizQuestionResponse `json:"questions"`
}

// JobListResponse is a page of jobs.
type JobListResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// SummaryResponse carries just the summary of a completed job.
type SummaryResponse struct {
	JobID   string  `json:"job_id"`
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// TranscriptResponse carries just the transcript of a completed job.
type TranscriptResponse struct {
	JobID      string  `json:"job_id"`
	Title      *string `json:"title,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

func jobToResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		ID:              job.ID.String(),
		SourceKind:      string(job.SourceKind),
		Source:          job.Source,
		Status:          string(job.Status),
		Progress:        job.Progress,
		Params:          job.Params,
		Title:           job.Title,
		DurationSeconds: job.DurationSeconds,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		CompletedAt:     job.CompletedAt,
	}
	if job.UserID != nil {
		id := job.UserID.String()
		resp.UserID = &id
	}
	return resp
}

func questionToResponse(q *domain.QuizQuestion) QuizQuestionResponse {
	return QuizQuestionResponse{
		ID:           q.ID.String(),
		JobID:        q.JobID.String(),
		Question:     q.Question,
		QuestionType: q.QuestionType,
		Answer:       q.Answer,
		Context:      q.Context,
		MaxScore:     q.MaxScore,
	}
}

func questionsToResponse(questions []*domain.QuizQuestion) []QuizQuestionResponse {
	out := make([]QuizQuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionToResponse(q))
	}
	return out
}
