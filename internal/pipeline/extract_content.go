package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/parser"
	"github.com/phrazzld/lectern-api/internal/store"
)

// ContentExtractionStage extracts text from a non-video source (PDF,
// DOCX, web page, or collection) through the parser registry and
// records it as the job's transcript.
type ContentExtractionStage struct {
	parsers  *parser.Registry
	maxChars int
	jobs     store.JobStore
	progress *Reporter
	logger   *slog.Logger
}

// NewContentExtractionStage creates the content extraction stage.
// maxChars bounds the amount of text handed to later stages.
func NewContentExtractionStage(
	parsers *parser.Registry,
	maxChars int,
	jobs store.JobStore,
	progress *Reporter,
	logger *slog.Logger,
) *ContentExtractionStage {
	return &ContentExtractionStage{
		parsers:  parsers,
		maxChars: maxChars,
		jobs:     jobs,
		progress: progress,
		logger:   logger.With(slog.String("component", "content_extraction")),
	}
}

// Name implements Stage.
func (s *ContentExtractionStage) Name() string {
	return "content extraction"
}

// Execute implements Stage.
func (s *ContentExtractionStage) Execute(ctx context.Context, jobID uuid.UUID, pctx Context) (Context, error) {
	if err := s.progress.Report(ctx, jobID, 10, "Parsing content source"); err != nil {
		return pctx, err
	}

	p, err := s.parsers.ForKind(pctx.SourceKind)
	if err != nil {
		return pctx, err
	}

	result, err := p.Parse(ctx, pctx.Source)
	if err != nil {
		return pctx, err
	}

	content := result.Content
	if s.maxChars > 0 && len(content) > s.maxChars {
		s.logger.InfoContext(ctx, "truncating extracted content",
			slog.String("job_id", jobID.String()),
			slog.Int("length", len(content)),
			slog.Int("max_chars", s.maxChars))
		content = content[:s.maxChars] + "... [Content truncated]"
	}

	if err := s.jobs.SetSourceMetadata(ctx, jobID, result.Title, 0); err != nil {
		return pctx, err
	}
	if err := s.jobs.SetTranscript(ctx, jobID, content); err != nil {
		return pctx, err
	}
	if err := s.progress.Report(ctx, jobID, 50, "Content extraction completed"); err != nil {
		return pctx, err
	}

	pctx.Title = result.Title
	pctx.Transcript = content
	return pctx, nil
}
