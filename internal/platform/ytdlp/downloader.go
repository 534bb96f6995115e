// Package ytdlp shells out to the yt-dlp binary to inspect and download
// video audio tracks.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/lectern-api/internal/config"
)

const (
	metadataTimeout = 2 * time.Minute
	downloadTimeout = 15 * time.Minute
)

var (
	// ErrVideoTooLong indicates the video exceeds the configured duration limit.
	ErrVideoTooLong = errors.New("video exceeds maximum allowed duration")

	// ErrDownloadFailed indicates yt-dlp could not fetch the video.
	ErrDownloadFailed = errors.New("video download failed")

	// ErrMetadataFailed indicates yt-dlp could not read the video's metadata.
	ErrMetadataFailed = errors.New("video metadata extraction failed")
)

// VideoInfo is the subset of video metadata the pipeline records.
type VideoInfo struct {
	Title           string
	DurationSeconds int
	Uploader        string
	VideoID         string
}

// Downloader wraps the yt-dlp binary.
type Downloader struct {
	binaryPath  string
	maxDuration time.Duration
	logger      *slog.Logger
}

// NewDownloader creates a Downloader from the media config.
func NewDownloader(logger *slog.Logger, cfg config.MediaConfig) *Downloader {
	binary := cfg.YtDlpPath
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{
		binaryPath:  binary,
		maxDuration: time.Duration(cfg.MaxVideoLengthMinutes) * time.Minute,
		logger:      logger.With(slog.String("component", "ytdlp")),
	}
}

// FetchMetadata reads the video's metadata without downloading it and
// rejects videos longer than the configured limit.
func (d *Downloader) FetchMetadata(ctx context.Context, videoURL string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	// -J dumps the full metadata as a single JSON document.
	cmd := exec.CommandContext(ctx, d.binaryPath, "-J", "--no-warnings", videoURL)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrMetadataFailed, err, firstLine(stderr.String()))
	}

	var payload struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		Uploader string  `json:"uploader"`
		ID       string  `json:"id"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata JSON: %v", ErrMetadataFailed, err)
	}

	duration := time.Duration(payload.Duration) * time.Second
	if d.maxDuration > 0 && duration > d.maxDuration {
		return nil, fmt.Errorf("%w: %.1f minutes (max %.0f)",
			ErrVideoTooLong, duration.Minutes(), d.maxDuration.Minutes())
	}

	info := &VideoInfo{
		Title:           payload.Title,
		DurationSeconds: int(payload.Duration),
		Uploader:        payload.Uploader,
		VideoID:         payload.ID,
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}

	d.logger.InfoContext(ctx, "fetched video metadata",
		slog.String("video_id", info.VideoID),
		slog.String("title", info.Title),
		slog.Int("duration_seconds", info.DurationSeconds))

	return info, nil
}

// DownloadAudio fetches the video's best audio track into destDir and
// returns the path of the downloaded file.
func (d *Downloader) DownloadAudio(ctx context.Context, videoURL, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	outputTemplate := filepath.Join(destDir, "audio.%(ext)s")
	cmd := exec.CommandContext(ctx, d.binaryPath,
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192",
		"-o", outputTemplate,
		"--no-warnings",
		"--quiet",
		videoURL)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v: %s", ErrDownloadFailed, err, firstLine(stderr.String()))
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "audio.*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w: audio file not found after download", ErrDownloadFailed)
	}

	d.logger.InfoContext(ctx, "downloaded audio track",
		slog.String("path", matches[0]),
		slog.Duration("elapsed", time.Since(start)))

	return matches[0], nil
}

// firstLine trims yt-dlp's stderr to its first line for error messages.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
