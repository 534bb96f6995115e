package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/lectern-api/internal/api/shared"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/service"
)

// JobHandler handles job submission and lifecycle HTTP requests.
type JobHandler struct {
	jobs      service.JobService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs service.JobService, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobs:      jobs,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "job_handler")),
	}
}

// ProcessVideo handles POST /api/videos/process requests. Submission is
// idempotent by URL: resubmitting a known source returns the existing
// job with 200 instead of 202.
func (h *JobHandler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req ProcessVideoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	params := processingParams(req.QuestionTypes, req.DifficultyLevel, req.NumQuestions, req.GenerateSummary)
	job, created, err := h.jobs.Submit(r.Context(), optionalUserID(r), domain.SourceKindVideo, req.URL, params)
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

// Status handles GET /api/videos/{id}/status requests.
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// Results handles GET /api/videos/{id}/results requests. The job must
// have completed; otherwise a 409 conflict is returned.
func (h *JobHandler) Results(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, questions, err := h.jobs.Results(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := JobResultsResponse{
		JobResponse: jobToResponse(job),
		Transcript:  job.Transcript,
		Summary:     job.Summary,
		Questions:   questionsToResponse(questions),
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Summary handles GET /api/videos/{id}/summary requests.
func (h *JobHandler) Summary(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobs.GetCompleted(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SummaryResponse{
		JobID:   job.ID.String(),
		Title:   job.Title,
		Summary: job.Summary,
	})
}

// Transcript handles GET /api/videos/{id}/transcript requests.
func (h *JobHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobs.GetCompleted(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TranscriptResponse{
		JobID:      job.ID.String(),
		Title:      job.Title,
		Transcript: job.Transcript,
	})
}

// Quiz handles GET /api/quiz?job_id= requests.
func (h *JobHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	rawID := r.URL.Query().Get("job_id")
	jobID, err := parseUUIDParam(rawID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job_id")
		return
	}

	questions, err := h.jobs.Quiz(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, QuizResponse{
		JobID:     jobID.String(),
		Questions: questionsToResponse(questions),
	})
}

// Retry handles POST /api/videos/{id}/retry requests. Only failed jobs
// can be reopened; the stored parameters are reused.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobs.Retry(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("job retry accepted", slog.String("job_id", jobID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// Cancel handles POST /api/videos/{id}/cancel requests.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.jobs.Cancel(r.Context(), jobID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("job cancellation requested", slog.String("job_id", jobID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"id":     jobID.String(),
		"status": string(domain.JobStatusCancelled),
	})
}

// Delete handles DELETE /api/videos/{id} requests. Jobs still being
// processed must be cancelled first.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	jobID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.jobs.Delete(r.Context(), jobID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/videos requests. Authenticated requests see only
// their own jobs; anonymous requests see all jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	jobs, total, err := h.jobs.List(r.Context(), optionalUserID(r), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := JobListResponse{
		Jobs:   make([]JobResponse, 0, len(jobs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
