package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/generation"
	"google.golang.org/genai"
)

// maxTranscriptChars bounds how much text a single analysis call accepts.
// Longer transcripts fail with generation.ErrContentTooLong rather than
// silently truncating the learner's material.
const maxTranscriptChars = 400_000

// GeminiGenerator implements generation.Analyzer and
// generation.QuestionGenerator using Google's Gemini API.
type GeminiGenerator struct {
	logger           *slog.Logger
	config           config.LLMConfig
	analysisTemplate *template.Template
	questionTemplate *template.Template
	client           *genai.Client
	model            string
}

// NewGenerator creates a new GeminiGenerator with the provided dependencies.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	analysisTemplate, err := template.New("analysis").Parse(analysisPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse analysis template: %v",
			generation.ErrInvalidConfig, err)
	}

	questionTemplate, err := template.New("questions").Parse(questionPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse question template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:           logger,
		config:           cfg,
		analysisTemplate: analysisTemplate,
		questionTemplate: questionTemplate,
		client:           client,
		model:            cfg.ModelName,
	}, nil
}

// Ensure GeminiGenerator implements both generation interfaces
var (
	_ generation.Analyzer          = (*GeminiGenerator)(nil)
	_ generation.QuestionGenerator = (*GeminiGenerator)(nil)
)

// Analyze implements generation.Analyzer.
func (g *GeminiGenerator) Analyze(ctx context.Context, transcript string, params domain.ProcessingParams) (*generation.AnalysisResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", generation.ErrEmptyResult)
	}

	if len(transcript) > maxTranscriptChars {
		return nil, fmt.Errorf("%w: %d characters (max %d)",
			generation.ErrContentTooLong, len(transcript), maxTranscriptChars)
	}

	prompt, err := executeTemplate(g.analysisTemplate, analysisPromptData{
		Transcript:      transcript,
		GenerateSummary: params.GenerateSummary,
	})
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "requesting content analysis",
		"transcript_length", len(transcript),
		"model", g.model)

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseAnalysisResponse(raw)
}

// GenerateQuestions implements generation.QuestionGenerator.
func (g *GeminiGenerator) GenerateQuestions(ctx context.Context, jobID uuid.UUID, analysis *generation.AnalysisResult, params domain.ProcessingParams) ([]*domain.QuizQuestion, error) {
	if analysis == nil || len(analysis.Insights) == 0 {
		return nil, fmt.Errorf("%w: no insights to generate questions from", generation.ErrEmptyResult)
	}

	prompt, err := executeTemplate(g.questionTemplate, questionPromptData{
		Insights:        analysis.Insights,
		Summary:         analysis.Summary,
		NumQuestions:    params.NumQuestions,
		DifficultyLevel: params.DifficultyLevel,
		QuestionTypes:   params.QuestionTypes,
	})
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "requesting question generation",
		"job_id", jobID,
		"num_questions", params.NumQuestions,
		"model", g.model)

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseQuestionsResponse(jobID, raw)
}

// callWithRetry makes a call to the Gemini API with exponential backoff
// retry logic. Transient errors are retried up to config.MaxRetries times
// with jitter; permanent errors (content blocked, context cancelled) are
// returned immediately.
func (g *GeminiGenerator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if isPermanentError(err) {
			return "", err
		}

		if attempt < maxRetries {
			// Exponential backoff with jitter, capped at one minute.
			delay := time.Duration(float64(baseDelaySeconds)*math.Pow(2, float64(attempt))) * time.Second
			if delay > time.Minute {
				delay = time.Minute
			}
			delay += time.Duration(rng.Int63n(int64(time.Second)))

			g.logger.WarnContext(ctx, "Gemini call failed, retrying",
				"error", err,
				"next_attempt_in", delay)

			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return "", fmt.Errorf("%w: all %d attempts failed: %v",
		generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// generateOnce performs a single GenerateContent call and classifies the result.
func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", generation.ErrEmptyResult
	}

	return text, nil
}

// isPermanentError reports whether retrying cannot help.
func isPermanentError(err error) bool {
	return errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// executeTemplate renders a prompt template to a string.
func executeTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// parseAnalysisResponse decodes and validates an analysis response body.
func parseAnalysisResponse(raw string) (*generation.AnalysisResult, error) {
	var schema analysisSchema
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	if strings.TrimSpace(schema.Summary) == "" && len(schema.KeyPoints) == 0 {
		return nil, fmt.Errorf("%w: analysis produced neither summary nor key points",
			generation.ErrEmptyResult)
	}

	insights := make([]string, 0, len(schema.KeyPoints))
	for _, p := range schema.KeyPoints {
		if strings.TrimSpace(p) != "" {
			insights = append(insights, strings.TrimSpace(p))
		}
	}

	return &generation.AnalysisResult{
		Summary:  strings.TrimSpace(schema.Summary),
		Insights: insights,
	}, nil
}

// parseQuestionsResponse decodes a question generation response body into
// validated domain questions for the given job.
func parseQuestionsResponse(jobID uuid.UUID, raw string) ([]*domain.QuizQuestion, error) {
	var schema questionsSchema
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	if len(schema.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in response", generation.ErrEmptyResult)
	}

	questions := make([]*domain.QuizQuestion, 0, len(schema.Questions))
	for _, qs := range schema.Questions {
		if strings.TrimSpace(qs.Question) == "" {
			continue
		}

		answer, err := json.Marshal(map[string]any{
			"options":        qs.Options,
			"correct_answer": qs.CorrectAnswer,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}

		questionType := qs.Type
		if questionType == "" {
			questionType = "multiple_choice"
		}

		question, err := domain.NewQuizQuestion(jobID, qs.Question, questionType, answer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		if explanation := strings.TrimSpace(qs.Explanation); explanation != "" {
			question.Context = &explanation
		}

		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: all questions were empty", generation.ErrEmptyResult)
	}

	return questions, nil
}

// stripJSONFences removes markdown code fences some models wrap around JSON.
func stripJSONFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
