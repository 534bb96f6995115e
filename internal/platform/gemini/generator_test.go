package gemini

import (
	"context"
	"strings"
	"testing"
	"text/template"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeInputValidation(t *testing.T) {
	g := &GeminiGenerator{}

	t.Run("rejects an oversized transcript", func(t *testing.T) {
		transcript := strings.Repeat("a", maxTranscriptChars+1)

		_, err := g.Analyze(context.Background(), transcript, domain.ProcessingParams{})
		require.ErrorIs(t, err, generation.ErrContentTooLong)
		assert.Contains(t, err.Error(), "content too long")
	})

	t.Run("rejects an empty transcript", func(t *testing.T) {
		_, err := g.Analyze(context.Background(), "   ", domain.ProcessingParams{})
		assert.ErrorIs(t, err, generation.ErrEmptyResult)
	})
}

func TestParseAnalysisResponse(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"summary": "Goroutines are lightweight threads.",
			"key_points": ["Goroutines are multiplexed onto OS threads", " Channels synchronize goroutines "]}`

		result, err := parseAnalysisResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "Goroutines are lightweight threads.", result.Summary)
		require.Len(t, result.Insights, 2)
		assert.Equal(t, "Channels synchronize goroutines", result.Insights[1])
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		raw := "```json\n{\"summary\": \"s\", \"key_points\": [\"a\"]}\n```"

		result, err := parseAnalysisResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "s", result.Summary)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseAnalysisResponse(`{"summary": `)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("empty analysis", func(t *testing.T) {
		_, err := parseAnalysisResponse(`{"summary": "", "key_points": []}`)
		assert.ErrorIs(t, err, generation.ErrEmptyResult)
	})
}

func TestParseQuestionsResponse(t *testing.T) {
	jobID := uuid.New()

	t.Run("valid response", func(t *testing.T) {
		raw := `{"questions": [
			{"question": "What multiplexes goroutines?", "type": "multiple_choice",
			 "options": ["The scheduler", "The GC", "The linker", "The loader"],
			 "correct_answer": 0, "explanation": "The runtime scheduler."},
			{"question": "Channels are typed.", "type": "true_false",
			 "options": ["True", "False"], "correct_answer": 0}
		]}`

		questions, err := parseQuestionsResponse(jobID, raw)
		require.NoError(t, err)
		require.Len(t, questions, 2)

		assert.Equal(t, jobID, questions[0].JobID)
		assert.Equal(t, "multiple_choice", questions[0].QuestionType)
		require.NotNil(t, questions[0].Context)
		assert.Equal(t, "The runtime scheduler.", *questions[0].Context)
		assert.Nil(t, questions[1].Context)
	})

	t.Run("skips empty question text", func(t *testing.T) {
		raw := `{"questions": [
			{"question": "", "type": "multiple_choice", "correct_answer": 0},
			{"question": "Real question?", "type": "short_answer", "correct_answer": "yes"}
		]}`

		questions, err := parseQuestionsResponse(jobID, raw)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, "Real question?", questions[0].Question)
	})

	t.Run("no questions", func(t *testing.T) {
		_, err := parseQuestionsResponse(jobID, `{"questions": []}`)
		assert.ErrorIs(t, err, generation.ErrEmptyResult)
	})

	t.Run("defaults missing type", func(t *testing.T) {
		raw := `{"questions": [{"question": "Q?", "correct_answer": 1}]}`

		questions, err := parseQuestionsResponse(jobID, raw)
		require.NoError(t, err)
		assert.Equal(t, "multiple_choice", questions[0].QuestionType)
	})
}

func TestPromptTemplates(t *testing.T) {
	t.Run("analysis template renders", func(t *testing.T) {
		tmpl := template.Must(template.New("analysis").Parse(analysisPromptTemplate))
		prompt, err := executeTemplate(tmpl, analysisPromptData{
			Transcript:      "some transcript text",
			GenerateSummary: true,
		})
		require.NoError(t, err)
		assert.Contains(t, prompt, "some transcript text")
		assert.Contains(t, prompt, "key_points")
	})

	t.Run("question template renders", func(t *testing.T) {
		tmpl := template.Must(template.New("questions").Parse(questionPromptTemplate))
		prompt, err := executeTemplate(tmpl, questionPromptData{
			Insights:        []string{"point one", "point two"},
			Summary:         "a summary",
			NumQuestions:    3,
			DifficultyLevel: "hard",
			QuestionTypes:   []string{"multiple_choice", "true_false"},
		})
		require.NoError(t, err)
		assert.Contains(t, prompt, "exactly 3")
		assert.Contains(t, prompt, "hard difficulty")
		assert.Contains(t, prompt, "- point one")
		assert.Contains(t, prompt, "multiple_choice, true_false")
	})
}

func TestStripJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripJSONFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences(`{"a":1}`))
}
