package prompts

import "strings"

// ============================================================================
// Explanation pipeline
// ============================================================================

// ExplanationTemplate asks the model to explain a student's query like a teacher.
const ExplanationTemplate = `You are a knowledgeable teacher.
- Explain the student's query in a clear and simple way, as if you are teaching in a classroom.
- Keep the explanation focused and not too long.
- Use everyday examples to make it relatable.
- Avoid giving a step-by-step essay, instead explain naturally like a real teacher would.

Student's query: {query}`

// SummaryTemplate turns an explanation into 4-5 bullet class notes.
const SummaryTemplate = `Your task is to generate a short summary of the given text
in the form of **bullet points (like class notes)**.

- Use 4-5 concise bullet points.
- Keep each point short (max 1-2 lines).
- Do not add new information that is not present in the original text.

Text: {text}`

// ============================================================================
// Notes from dubbed video subtitles
// ============================================================================

// NotesTemplate turns a subtitle transcript into 4-7 bullet notes.
const NotesTemplate = `You are a helpful teacher. Create compact class notes in bullet points from the following transcript text.

Rules:
- 4–7 concise bullets.
- Keep each bullet <= 2 lines.
- No new facts not present in text.
- Use plain language.

Transcript:
{text}

Notes:`

// Explanation renders ExplanationTemplate for query.
func Explanation(query string) string {
	return render(ExplanationTemplate, "{query}", query)
}

// Summary renders SummaryTemplate for an explanation.
func Summary(text string) string {
	return render(SummaryTemplate, "{text}", text)
}

// Notes renders NotesTemplate for a transcript.
func Notes(transcript string) string {
	return render(NotesTemplate, "{text}", transcript)
}

// render substitutes a single placeholder. The value is inserted verbatim,
// so braces or percent signs in user text are left alone.
func render(tmpl, placeholder, value string) string {
	return strings.Replace(tmpl, placeholder, value, 1)
}
