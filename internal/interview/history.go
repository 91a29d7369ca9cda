package interview

import "strings"

// FormatHistory renders turns in order as "Q: ...\nA: ...\n" blocks.
func FormatHistory(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("Q: ")
		b.WriteString(t.Question)
		b.WriteString("\nA: ")
		b.WriteString(t.Answer)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatHistoryWithQuestion renders turns followed by the pending question.
func FormatHistoryWithQuestion(turns []Turn, question string) string {
	return FormatHistory(turns) + "Q: " + question + "\n"
}
