// Package interview turns raw interview transcripts into canonical turns and
// the history/question/answer examples used for optimization and evaluation.
package interview

// Turn is one question/answer pair within an interview.
type Turn struct {
	Question string `json:"q" yaml:"q"`
	Answer   string `json:"a" yaml:"a"`
}

// Interview is an ordered, chronological sequence of turns from one subject.
type Interview []Turn

// Example is a single (history, question, reference answer) triple derived
// from one turn of an interview.
type Example struct {
	History        string `json:"history"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	PersonaID      string `json:"persona_id,omitempty"`
	PersonaProfile string `json:"persona_profile,omitempty"`
}

// ValidationError reports malformed interview input.
type ValidationError struct {
	Context string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return e.Context + " " + e.Message
}
