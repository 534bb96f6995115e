package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
)

// AnalysisResult holds the structured output of content analysis. It is the
// input for question generation.
type AnalysisResult struct {
	// Summary is a condensed prose summary of the content.
	Summary string

	// Insights are the key points extracted from the content, each a
	// self-contained statement a quiz question can be built from.
	Insights []string
}

// Analyzer defines the interface for transforming extracted text into a
// summary and structured insights. This interface serves as a boundary
// between the pipeline core and external AI/LLM services.
type Analyzer interface {
	// Analyze produces a summary and structured insights from the transcript.
	// Returns an error from errors.go if analysis fails (including
	// ErrContentTooLong when the transcript exceeds the model budget).
	Analyze(ctx context.Context, transcript string, params domain.ProcessingParams) (*AnalysisResult, error)
}

// QuestionGenerator defines the interface for generating quiz questions
// from analyzed content.
type QuestionGenerator interface {
	// GenerateQuestions creates quiz questions for the given job based on
	// the analysis result and the job's processing parameters. Returns
	// ErrEmptyResult if the model produces no usable questions.
	GenerateQuestions(ctx context.Context, jobID uuid.UUID, analysis *AnalysisResult, params domain.ProcessingParams) ([]*domain.QuizQuestion, error)
}
