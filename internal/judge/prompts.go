package judge

import "strings"

// Instructions is the system prompt given to the judging model.
const Instructions = "You are a strict evaluator of interview answers. " +
	"Score the candidate answer versus the reference answer and transcript history. " +
	"Return ONLY a JSON object with keys: accuracy, faithfulness, tone, style, " +
	"feedback. Each score must be a float in [0,1]. Feedback must be a short, " +
	"actionable string."

// BuildUserMessage lays out the judge inputs as labelled sections.
func BuildUserMessage(history, question, reference, candidate string) string {
	var b strings.Builder
	writeSection(&b, "Transcript history", history)
	writeSection(&b, "Current question", question)
	writeSection(&b, "Reference answer", reference)
	writeSection(&b, "Candidate answer", candidate)
	b.WriteString("Judgment (strict JSON):")
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString(title)
	b.WriteString(":\n")
	if strings.TrimSpace(body) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(strings.TrimRight(body, "\n"))
	}
	b.WriteString("\n\n")
}
