package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/generation"
	"github.com/phrazzld/lectern-api/internal/store"
)

// QuestionStage generates quiz questions from the analysis results and
// persists them.
type QuestionStage struct {
	generator generation.QuestionGenerator
	questions store.QuestionStore
	progress  *Reporter
	logger    *slog.Logger
}

// NewQuestionStage creates the question generation stage.
func NewQuestionStage(generator generation.QuestionGenerator, questions store.QuestionStore, progress *Reporter, logger *slog.Logger) *QuestionStage {
	return &QuestionStage{
		generator: generator,
		questions: questions,
		progress:  progress,
		logger:    logger.With(slog.String("component", "question_generation")),
	}
}

// Name implements Stage.
func (s *QuestionStage) Name() string {
	return "question generation"
}

// Execute implements Stage.
func (s *QuestionStage) Execute(ctx context.Context, jobID uuid.UUID, pctx Context) (Context, error) {
	if err := s.progress.Report(ctx, jobID, 85, "Generating quiz questions"); err != nil {
		return pctx, err
	}

	analysis := &generation.AnalysisResult{
		Summary:  pctx.Summary,
		Insights: pctx.Insights,
	}
	generated, err := s.generator.GenerateQuestions(ctx, jobID, analysis, pctx.Params)
	if err != nil {
		return pctx, err
	}

	if err := s.questions.CreateBatch(ctx, generated); err != nil {
		return pctx, err
	}

	s.logger.InfoContext(ctx, "quiz questions generated",
		slog.String("job_id", jobID.String()),
		slog.Int("count", len(generated)))

	if err := s.progress.Report(ctx, jobID, 95, "Quiz generation completed"); err != nil {
		return pctx, err
	}

	pctx.Questions = generated
	return pctx, nil
}
