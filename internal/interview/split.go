package interview

import (
	"math/rand/v2"
	"strconv"
)

// ErrInvalidValRatio is returned when a validation ratio is outside [0, 1).
var ErrInvalidValRatio = &ValidationError{Message: "val_ratio must be in [0, 1)."}

func checkValRatio(valRatio float64) error {
	if valRatio < 0 || valRatio >= 1 {
		return ErrInvalidValRatio
	}
	return nil
}

// BuildExamples converts every turn of every interview into an Example.
// Persona ids default to the interview index; when personaIDs is non-nil it
// supplies them instead and interviews beyond its length get an empty id.
func BuildExamples(interviews []Interview, personaIDs []string) []Example {
	var examples []Example
	for idx, iv := range interviews {
		personaID := strconv.Itoa(idx)
		if personaIDs != nil {
			personaID = ""
			if idx < len(personaIDs) {
				personaID = personaIDs[idx]
			}
		}
		for turnIdx := range iv {
			examples = append(examples, exampleAt(iv, turnIdx, personaID))
		}
	}
	return examples
}

// SplitInterviews assigns whole interviews to training or validation.
// A seeded permutation picks max(1, floor(n*valRatio)) validation interviews
// (none when there are no interviews); both sides keep the input order.
func SplitInterviews(interviews []Interview, valRatio float64, seed int64) (train, val []Interview, err error) {
	if err := checkValRatio(valRatio); err != nil {
		return nil, nil, err
	}

	n := len(interviews)
	if n == 0 {
		return nil, nil, nil
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	valCount := max(1, int(float64(n)*valRatio))
	inVal := make(map[int]bool, valCount)
	for _, idx := range indices[:valCount] {
		inVal[idx] = true
	}

	for idx, iv := range interviews {
		if inVal[idx] {
			val = append(val, iv)
		} else {
			train = append(train, iv)
		}
	}
	return train, val, nil
}

// TemporalSplit splits each interview at max(1, floor(n*(1-valRatio))) so
// earlier turns train and later turns validate. Interviews with more than one
// turn always contribute at least one validation example. History for each
// example only contains preceding turns of its own interview.
func TemporalSplit(interviews []Interview, valRatio float64) (train, val []Example, err error) {
	if err := checkValRatio(valRatio); err != nil {
		return nil, nil, err
	}

	for idx, iv := range interviews {
		total := len(iv)
		if total == 0 {
			continue
		}
		splitIdx := max(1, int(float64(total)*(1-valRatio)))
		if total > 1 && splitIdx >= total {
			splitIdx = total - 1
		}

		personaID := strconv.Itoa(idx)
		for turnIdx := range iv {
			ex := exampleAt(iv, turnIdx, personaID)
			if turnIdx < splitIdx {
				train = append(train, ex)
			} else {
				val = append(val, ex)
			}
		}
	}
	return train, val, nil
}

func exampleAt(iv Interview, turnIdx int, personaID string) Example {
	return Example{
		History:   FormatHistory(iv[:turnIdx]),
		Question:  iv[turnIdx].Question,
		Answer:    iv[turnIdx].Answer,
		PersonaID: personaID,
	}
}
