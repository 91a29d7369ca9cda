package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/persona-gepa/internal/interview"
)

func TestGetStrategy(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		wantName string
		wantErr  bool
	}{
		{"interview strategy", "interview", "interview", false},
		{"empty defaults to interview", "", "interview", false},
		{"temporal strategy", "temporal", "temporal", false},
		{"unknown strategy", "random", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetStrategy(tt.strategy)
			if tt.wantErr {
				var unsupported *UnsupportedStrategyError
				require.ErrorAs(t, err, &unsupported)
				assert.Equal(t, tt.strategy, unsupported.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, s.Name())
		})
	}
}

func sampleInterviews() []interview.Interview {
	return []interview.Interview{
		{{Question: "a1", Answer: "x"}, {Question: "a2", Answer: "y"}},
		{{Question: "b1", Answer: "x"}, {Question: "b2", Answer: "y"}, {Question: "b3", Answer: "z"}},
		{{Question: "c1", Answer: "x"}},
		{{Question: "d1", Answer: "x"}, {Question: "d2", Answer: "y"}},
		{{Question: "e1", Answer: "x"}},
	}
}

func TestInterviewSplitKeepsInterviewsTogether(t *testing.T) {
	train, val, err := (&InterviewSplit{}).Split(sampleInterviews(), 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, 9, len(train)+len(val))
	require.NotEmpty(t, val)

	prefixes := func(examples []interview.Example) map[byte]bool {
		out := map[byte]bool{}
		for _, ex := range examples {
			out[ex.Question[0]] = true
		}
		return out
	}
	trainIDs, valIDs := prefixes(train), prefixes(val)
	assert.Len(t, valIDs, 1)
	for id := range valIDs {
		assert.False(t, trainIDs[id], "interview %c on both sides", id)
	}
}

func TestTemporalSplitHoldsOutLastTurns(t *testing.T) {
	train, val, err := (&TemporalSplit{}).Split(sampleInterviews(), 0.2, 0)
	require.NoError(t, err)

	var valQuestions []string
	for _, ex := range val {
		valQuestions = append(valQuestions, ex.Question)
	}
	assert.Equal(t, []string{"a2", "b3", "d2"}, valQuestions)
	assert.Len(t, train, 6)
	assert.Equal(t, "Q: b1\nA: x\nQ: b2\nA: y\n", val[1].History)
}

func TestSplitRejectsInvalidRatio(t *testing.T) {
	for _, s := range []SplitStrategy{&InterviewSplit{}, &TemporalSplit{}} {
		_, _, err := s.Split(sampleInterviews(), 1.0, 7)
		require.Error(t, err, s.Name())
		assert.Equal(t, "val_ratio must be in [0, 1).", err.Error())
	}
}
