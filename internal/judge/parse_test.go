package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Judgment
	}{
		{
			name:  "strict JSON",
			input: `{"accuracy":0.9,"faithfulness":0.8,"tone":0.7,"style":0.6,"feedback":"Good."}`,
			want:  Judgment{Accuracy: 0.9, Faithfulness: 0.8, Tone: 0.7, Style: 0.6, Feedback: "Good."},
		},
		{
			name:  "JSON embedded in prose",
			input: "Result: {\"accuracy\":0.9,\"faithfulness\":0.8,\n\"tone\":0.7,\"style\":0.6,\"feedback\":\"Good.\"} Thanks!",
			want:  Judgment{Accuracy: 0.9, Faithfulness: 0.8, Tone: 0.7, Style: 0.6, Feedback: "Good."},
		},
		{
			name:  "fenced JSON",
			input: "```json\n{\"accuracy\": 1, \"faithfulness\": 1, \"tone\": 0.5, \"style\": 0.5, \"feedback\": \"ok\"}\n```",
			want:  Judgment{Accuracy: 1, Faithfulness: 1, Tone: 0.5, Style: 0.5, Feedback: "ok"},
		},
		{
			name:  "key value lines",
			input: "accuracy: 0.5\nfaithfulness=.75\ntone : 1\nstyle: 0\nfeedback: Be more concise.",
			want:  Judgment{Accuracy: 0.5, Faithfulness: 0.75, Tone: 1, Style: 0, Feedback: "Be more concise."},
		},
		{
			name:  "key value without feedback",
			input: "accuracy: 0.4",
			want:  Judgment{Accuracy: 0.4, Feedback: FeedbackMissing},
		},
		{
			name:  "garbage",
			input: "garbage",
			want:  Judgment{Feedback: FeedbackParseFailed},
		},
		{
			name:  "empty text",
			input: "   ",
			want:  Judgment{Feedback: FeedbackNoJudgment},
		},
		{
			name:  "nil",
			input: nil,
			want:  Judgment{Feedback: FeedbackNoJudgment},
		},
		{
			name:  "out of range values clamp",
			input: `{"accuracy":1.5,"faithfulness":-0.2,"tone":"0.3","style":"high","feedback":"x"}`,
			want:  Judgment{Accuracy: 1, Faithfulness: 0, Tone: 0.3, Style: 0, Feedback: "x"},
		},
		{
			name:  "JSON array is not a mapping",
			input: `[0.9, 0.8]`,
			want:  Judgment{Feedback: FeedbackParseFailed},
		},
		{
			name:  "mapping input",
			input: map[string]any{"accuracy": 0.9, "tone": 2, "feedback": ""},
			want:  Judgment{Accuracy: 0.9, Tone: 1, Feedback: FeedbackMissing},
		},
		{
			name:  "float mapping input",
			input: map[string]float64{"style": 0.25},
			want:  Judgment{Style: 0.25, Feedback: FeedbackMissing},
		},
		{
			name:  "judgment passes through",
			input: Judgment{Accuracy: 0.1, Feedback: "kept"},
			want:  Judgment{Accuracy: 0.1, Feedback: "kept"},
		},
		{
			name:  "bytes",
			input: []byte(`{"accuracy":0.2}`),
			want:  Judgment{Accuracy: 0.2, Feedback: FeedbackMissing},
		},
		{
			name:  "booleans cast",
			input: `{"accuracy":true,"faithfulness":false,"feedback":"b"}`,
			want:  Judgment{Accuracy: 1, Faithfulness: 0, Feedback: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParseFeedbackRunsToEndOfText(t *testing.T) {
	j := ParseText("accuracy=0.6\nfeedback: Mention the city.\nAlso keep it short.  ")
	assert.Equal(t, 0.6, j.Accuracy)
	assert.Equal(t, "Mention the city.\nAlso keep it short.", j.Feedback)
}

func TestJudgmentScore(t *testing.T) {
	j := Judgment{Accuracy: 0.1, Faithfulness: 0.2, Tone: 0.3, Style: 0.4}
	for i, aspect := range Aspects {
		v, ok := j.Score(aspect)
		assert.True(t, ok)
		assert.InDelta(t, float64(i+1)/10, v, 1e-9)
	}
	_, ok := j.Score("humor")
	assert.False(t, ok)

	m := j.AsMap()
	assert.Equal(t, 0.3, m["tone"])
	assert.Contains(t, m, "feedback")
}
