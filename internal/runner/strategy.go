package runner

import (
	"github.com/giantswarm/persona-gepa/internal/interview"
)

// Split strategy names.
const (
	SplitInterview = "interview"
	SplitTemporal  = "temporal"
)

// SplitStrategy turns a single interview collection into train and
// validation examples.
type SplitStrategy interface {
	// Name returns the strategy identifier (e.g. "interview").
	Name() string

	// Split divides interviews using valRatio of the data for validation.
	Split(interviews []interview.Interview, valRatio float64, seed int64) (train, val []interview.Example, err error)
}

// InterviewSplit holds out whole interviews, so validation personas are
// never seen during optimization.
type InterviewSplit struct{}

func (s *InterviewSplit) Name() string {
	return SplitInterview
}

func (s *InterviewSplit) Split(interviews []interview.Interview, valRatio float64, seed int64) ([]interview.Example, []interview.Example, error) {
	train, val, err := interview.SplitInterviews(interviews, valRatio, seed)
	if err != nil {
		return nil, nil, err
	}
	return interview.BuildExamples(train, nil), interview.BuildExamples(val, nil), nil
}

// TemporalSplit holds out the last turns of every interview. The seed is
// ignored.
type TemporalSplit struct{}

func (s *TemporalSplit) Name() string {
	return SplitTemporal
}

func (s *TemporalSplit) Split(interviews []interview.Interview, valRatio float64, _ int64) ([]interview.Example, []interview.Example, error) {
	return interview.TemporalSplit(interviews, valRatio)
}

// GetStrategy returns a SplitStrategy for the given name.
func GetStrategy(name string) (SplitStrategy, error) {
	switch name {
	case SplitInterview, "":
		return &InterviewSplit{}, nil
	case SplitTemporal:
		return &TemporalSplit{}, nil
	default:
		return nil, &UnsupportedStrategyError{Name: name}
	}
}

// UnsupportedStrategyError is returned when an unknown strategy is requested.
type UnsupportedStrategyError struct {
	Name string
}

func (e *UnsupportedStrategyError) Error() string {
	return "unsupported split strategy: " + e.Name
}
