package domain

// Default processing parameters applied at job creation.
const (
	DefaultNumQuestions    = 5
	DefaultDifficultyLevel = "medium"
)

// ProcessingParams holds the caller-supplied options for one job. They are
// stored on the job row so a retry re-runs the pipeline with the original
// parameters.
type ProcessingParams struct {
	QuestionTypes   []string `json:"question_types,omitempty"`
	DifficultyLevel string   `json:"difficulty_level,omitempty"`
	NumQuestions    int      `json:"num_questions,omitempty"`
	GenerateSummary bool     `json:"generate_summary"`
}

// withDefaults fills unset fields with their defaults.
func (p ProcessingParams) withDefaults() ProcessingParams {
	if p.NumQuestions <= 0 {
		p.NumQuestions = DefaultNumQuestions
	}
	if p.DifficultyLevel == "" {
		p.DifficultyLevel = DefaultDifficultyLevel
	}
	if len(p.QuestionTypes) == 0 {
		p.QuestionTypes = []string{"multiple_choice"}
	}
	return p
}
