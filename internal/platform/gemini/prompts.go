package gemini

// analysisPromptTemplate asks the model for a summary and quizzable key
// points in a strict JSON shape.
const analysisPromptTemplate = `You are an educational content analyst. Read the following transcript
and produce a JSON object with two fields:
- "summary": a clear prose summary of the material{{if not .GenerateSummary}} (one short paragraph){{end}}
- "key_points": an array of 5-15 self-contained factual statements that capture the material's core ideas,
  each specific enough that a quiz question could be written from it alone

Respond with JSON only, no markdown fences.

Transcript:
{{.Transcript}}`

// questionPromptTemplate asks the model for quiz questions over previously
// extracted key points.
const questionPromptTemplate = `You are a quiz author. Based on the key points below, write exactly {{.NumQuestions}}
quiz questions at {{.DifficultyLevel}} difficulty. Allowed question types: {{range $i, $t := .QuestionTypes}}{{if $i}}, {{end}}{{$t}}{{end}}.

Respond with a JSON object of the form:
{"questions": [{"question": "...", "type": "multiple_choice", "options": ["...","...","...","..."],
"correct_answer": 0, "explanation": "..."}]}

For true_false questions use options ["True","False"]. For short_answer questions omit options
and put the expected answer text in "correct_answer". Respond with JSON only, no markdown fences.

Summary:
{{.Summary}}

Key points:
{{range .Insights}}- {{.}}
{{end}}`
