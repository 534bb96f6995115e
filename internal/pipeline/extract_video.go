package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/platform/ytdlp"
	"github.com/phrazzld/lectern-api/internal/store"
)

// MediaDownloader acquires video metadata and audio tracks.
type MediaDownloader interface {
	FetchMetadata(ctx context.Context, videoURL string) (*ytdlp.VideoInfo, error)
	DownloadAudio(ctx context.Context, videoURL, destDir string) (string, error)
}

// Transcriber converts a downloaded audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// VideoExtractionStage downloads a video's audio track, transcribes it,
// and records the video's metadata and transcript on the job.
type VideoExtractionStage struct {
	downloader  MediaDownloader
	transcriber Transcriber
	jobs        store.JobStore
	progress    *Reporter
	logger      *slog.Logger
}

// NewVideoExtractionStage creates the video extraction stage.
func NewVideoExtractionStage(
	downloader MediaDownloader,
	transcriber Transcriber,
	jobs store.JobStore,
	progress *Reporter,
	logger *slog.Logger,
) *VideoExtractionStage {
	return &VideoExtractionStage{
		downloader:  downloader,
		transcriber: transcriber,
		jobs:        jobs,
		progress:    progress,
		logger:      logger.With(slog.String("component", "video_extraction")),
	}
}

// Name implements Stage.
func (s *VideoExtractionStage) Name() string {
	return "video extraction"
}

// Execute implements Stage.
func (s *VideoExtractionStage) Execute(ctx context.Context, jobID uuid.UUID, pctx Context) (Context, error) {
	if err := s.progress.Report(ctx, jobID, 10, "Extracting video metadata"); err != nil {
		return pctx, err
	}

	info, err := s.downloader.FetchMetadata(ctx, pctx.Source)
	if err != nil {
		return pctx, err
	}
	if err := s.jobs.SetSourceMetadata(ctx, jobID, info.Title, info.DurationSeconds); err != nil {
		return pctx, err
	}

	tempDir, err := os.MkdirTemp("", "lectern_video_")
	if err != nil {
		return pctx, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			s.logger.WarnContext(ctx, "failed to remove temp dir",
				slog.String("path", tempDir),
				slog.String("error", removeErr.Error()))
		}
	}()

	audioPath, err := s.downloader.DownloadAudio(ctx, pctx.Source, tempDir)
	if err != nil {
		return pctx, err
	}
	if err := s.progress.Report(ctx, jobID, 30, "Generating transcript"); err != nil {
		return pctx, err
	}
	if err := s.progress.Report(ctx, jobID, 40, "Transcription in progress"); err != nil {
		return pctx, err
	}

	transcript, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return pctx, err
	}
	if err := s.jobs.SetTranscript(ctx, jobID, transcript); err != nil {
		return pctx, err
	}
	if err := s.progress.Report(ctx, jobID, 50, "Video extraction completed"); err != nil {
		return pctx, err
	}

	pctx.Title = info.Title
	pctx.DurationSeconds = info.DurationSeconds
	pctx.Transcript = transcript
	return pctx, nil
}
