package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/api/shared"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/parser"
	"github.com/phrazzld/lectern-api/internal/service"
)

// maxUploadBytes bounds the size of uploaded documents.
const maxUploadBytes = 20 << 20

var errUploadTooLarge = errors.New("uploaded file exceeds size limit")

// ContentHandler handles document, web, and collection submissions.
type ContentHandler struct {
	jobs      service.JobService
	uploadDir string
	validator *validator.Validate
	logger    *slog.Logger
}

// NewContentHandler creates a new ContentHandler. uploadDir is where
// uploaded documents are stored before processing.
func NewContentHandler(jobs service.JobService, uploadDir string, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		jobs:      jobs,
		uploadDir: uploadDir,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "content_handler")),
	}
}

// ProcessContent handles POST /api/content/process requests. The source
// kind is inferred from the source when not given explicitly.
func (h *ContentHandler) ProcessContent(w http.ResponseWriter, r *http.Request) {
	var req ProcessContentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	kind := domain.SourceKind(req.SourceKind)
	if req.SourceKind == "" {
		inferred, err := parser.KindForSource(req.Source)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unable to determine source type")
			return
		}
		kind = inferred
	}

	params := processingParams(req.QuestionTypes, req.DifficultyLevel, req.NumQuestions, req.GenerateSummary)
	job, created, err := h.jobs.Submit(r.Context(), optionalUserID(r), kind, req.Source, params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	shared.RespondWithJSON(w, r, status, jobToResponse(job))
}

// UploadContent handles POST /api/content/upload requests. The uploaded
// document is stored under the upload directory and submitted as a job
// whose source is the stored path.
func (h *ContentHandler) UploadContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	kind, err := kindForUpload(header.Filename)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unsupported file type")
		return
	}

	storedPath, err := h.storeUpload(file, header.Filename)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "File exceeds the 20 MB upload limit")
			return
		}
		h.logger.Error("failed to store upload",
			slog.String("filename", header.Filename),
			slog.Any("error", err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	params := processingParams(
		r.MultipartForm.Value["question_types"],
		r.FormValue("difficulty_level"),
		formInt(r, "num_questions"),
		nil,
	)
	job, created, err := h.jobs.Submit(r.Context(), optionalUserID(r), kind, storedPath, params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	shared.RespondWithJSON(w, r, status, jobToResponse(job))
}

// storeUpload writes the uploaded file under the upload directory with a
// unique name, preserving the original extension. Files larger than
// maxUploadBytes are rejected with errUploadTooLarge.
func (h *ContentHandler) storeUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	// Read one byte past the limit so an oversized file is detected
	// instead of silently truncated.
	written, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if written > maxUploadBytes {
		_ = os.Remove(path)
		return "", errUploadTooLarge
	}
	return path, nil
}

func kindForUpload(filename string) (domain.SourceKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.SourceKindPDF, nil
	case ".docx":
		return domain.SourceKindDocx, nil
	case ".txt", ".lst":
		return domain.SourceKindCollection, nil
	default:
		return "", errors.New("unsupported file extension")
	}
}

func formInt(r *http.Request, field string) int {
	raw := r.FormValue(field)
	if raw == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0
	}
	return n
}
