package runner

import (
	"errors"
	"fmt"

	"github.com/giantswarm/persona-gepa/internal/interview"
)

// SplitPredefined marks datasets read from separate train and validation files.
const SplitPredefined = "predefined"

// DataSource selects where training data comes from: either DataPath, split
// by Split, or an explicit TrainPath/ValPath pair.
type DataSource struct {
	DataPath  string
	TrainPath string
	ValPath   string
	Loader    string
	Split     string
	ValRatio  float64
	Seed      int64
}

// Dataset holds the examples for one optimization run.
type Dataset struct {
	Train []interview.Example
	Val   []interview.Example
	Split string
}

// LoadDataset loads and splits interviews as described by src.
func LoadDataset(src DataSource) (*Dataset, error) {
	switch {
	case src.DataPath != "" && src.TrainPath != "":
		return nil, errors.New("--data-path and --train-path are mutually exclusive")
	case src.DataPath == "" && src.TrainPath == "":
		return nil, errors.New("one of --data-path or --train-path is required")
	case src.TrainPath != "" && src.ValPath == "":
		return nil, errors.New("--val-path is required when using --train-path")
	}

	load, err := interview.GetLoader(src.Loader)
	if err != nil {
		return nil, err
	}

	if src.TrainPath != "" {
		train, err := load(src.TrainPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load training interviews: %w", err)
		}
		val, err := load(src.ValPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load validation interviews: %w", err)
		}
		return &Dataset{
			Train: interview.BuildExamples(train, nil),
			Val:   interview.BuildExamples(val, nil),
			Split: SplitPredefined,
		}, nil
	}

	strategy, err := GetStrategy(src.Split)
	if err != nil {
		return nil, err
	}
	interviews, err := load(src.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load interviews: %w", err)
	}
	train, val, err := strategy.Split(interviews, src.ValRatio, src.Seed)
	if err != nil {
		return nil, err
	}
	return &Dataset{Train: train, Val: val, Split: strategy.Name()}, nil
}
