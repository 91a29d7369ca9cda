// Package judge scores candidate persona answers with an LLM acting as a
// strict evaluator and parses its loosely formatted output.
package judge

// Aspect names scored by the judge.
const (
	AspectAccuracy     = "accuracy"
	AspectFaithfulness = "faithfulness"
	AspectTone         = "tone"
	AspectStyle        = "style"
)

// Aspects lists the scored aspects in a stable order.
var Aspects = []string{AspectAccuracy, AspectFaithfulness, AspectTone, AspectStyle}

// Fallback feedback strings for judgments that could not be read.
const (
	FeedbackNoJudgment  = "No judgment returned."
	FeedbackParseFailed = "Failed to parse judge output."
	FeedbackMissing     = "No feedback provided."
)

// Judgment is the structured four-aspect verdict for one candidate answer.
// All scores are within [0, 1].
type Judgment struct {
	Accuracy     float64 `json:"accuracy"`
	Faithfulness float64 `json:"faithfulness"`
	Tone         float64 `json:"tone"`
	Style        float64 `json:"style"`
	Feedback     string  `json:"feedback"`
}

// Score returns the value of the named aspect and whether the aspect exists.
func (j Judgment) Score(aspect string) (float64, bool) {
	switch aspect {
	case AspectAccuracy:
		return j.Accuracy, true
	case AspectFaithfulness:
		return j.Faithfulness, true
	case AspectTone:
		return j.Tone, true
	case AspectStyle:
		return j.Style, true
	default:
		return 0, false
	}
}

// AsMap returns the judgment keyed by aspect name plus "feedback".
func (j Judgment) AsMap() map[string]any {
	return map[string]any{
		AspectAccuracy:     j.Accuracy,
		AspectFaithfulness: j.Faithfulness,
		AspectTone:         j.Tone,
		AspectStyle:        j.Style,
		"feedback":         j.Feedback,
	}
}

func zeroJudgment(feedback string) Judgment {
	return Judgment{Feedback: feedback}
}
