// Package gemini implements the generation interfaces using Google's Gemini API.
package gemini

// analysisPromptData is the data passed to the analysis prompt template.
type analysisPromptData struct {
	Transcript      string
	GenerateSummary bool
}

// questionPromptData is the data passed to the question prompt template.
type questionPromptData struct {
	Insights        []string
	Summary         string
	NumQuestions    int
	DifficultyLevel string
	QuestionTypes   []string
}

// analysisSchema is the expected JSON structure of an analysis response.
type analysisSchema struct {
	// Summary is the condensed prose summary of the content.
	Summary string `json:"summary"`

	// KeyPoints are the structured insights extracted from the content.
	KeyPoints []string `json:"key_points"`
}

// questionsSchema is the expected JSON structure of a question generation response.
type questionsSchema struct {
	Questions []questionSchema `json:"questions"`
}

// questionSchema is a single quiz question in the API response.
type questionSchema struct {
	// Question is the question text shown to the learner.
	Question string `json:"question"`

	// Type is the question kind (multiple_choice, true_false, short_answer).
	Type string `json:"type"`

	// Options are the answer choices for multiple choice questions.
	Options []string `json:"options,omitempty"`

	// CorrectAnswer is the expected answer (option index or free text).
	CorrectAnswer any `json:"correct_answer"`

	// Explanation gives the learner context for the correct answer.
	Explanation string `json:"explanation,omitempty"`
}
