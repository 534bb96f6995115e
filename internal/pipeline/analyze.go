package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/generation"
	"github.com/phrazzld/lectern-api/internal/store"
)

// AnalysisStage runs the transcript through the analyzer, producing the
// summary and key insights the question stage consumes.
type AnalysisStage struct {
	analyzer generation.Analyzer
	jobs     store.JobStore
	progress *Reporter
	logger   *slog.Logger
}

// NewAnalysisStage creates the analysis stage.
func NewAnalysisStage(analyzer generation.Analyzer, jobs store.JobStore, progress *Reporter, logger *slog.Logger) *AnalysisStage {
	return &AnalysisStage{
		analyzer: analyzer,
		jobs:     jobs,
		progress: progress,
		logger:   logger.With(slog.String("component", "analysis")),
	}
}

// Name implements Stage.
func (s *AnalysisStage) Name() string {
	return "content analysis"
}

// Execute implements Stage.
func (s *AnalysisStage) Execute(ctx context.Context, jobID uuid.UUID, pctx Context) (Context, error) {
	if err := s.progress.Report(ctx, jobID, 60, "Analyzing transcript"); err != nil {
		return pctx, err
	}

	result, err := s.analyzer.Analyze(ctx, pctx.Transcript, pctx.Params)
	if err != nil {
		return pctx, err
	}

	if pctx.Params.GenerateSummary && result.Summary != "" {
		if err := s.jobs.SetSummary(ctx, jobID, result.Summary); err != nil {
			return pctx, err
		}
	}
	if err := s.progress.Report(ctx, jobID, 75, "Analysis completed"); err != nil {
		return pctx, err
	}

	pctx.Summary = result.Summary
	pctx.Insights = result.Insights
	return pctx, nil
}
