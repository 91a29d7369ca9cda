package optimizer

import (
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/giantswarm/persona-gepa/internal/interview"
)

// Field names shared by the dataset, the program and the metric.
const (
	fieldHistory        = "history"
	fieldQuestion       = "question"
	fieldPersonaProfile = "persona_profile"
	fieldAnswer         = "answer"
)

// dataset iterates interview examples as dspy-go examples. The context fields
// are repeated in Outputs so the metric sees them next to the reference.
type dataset struct {
	examples []interview.Example
	index    int
}

func newDataset(examples []interview.Example) *dataset {
	return &dataset{examples: examples}
}

func (d *dataset) Next() (core.Example, bool) {
	if d.index >= len(d.examples) {
		return core.Example{}, false
	}
	ex := d.examples[d.index]
	d.index++

	return core.Example{
		Inputs: map[string]interface{}{
			fieldHistory:        ex.History,
			fieldQuestion:       ex.Question,
			fieldPersonaProfile: ex.PersonaProfile,
		},
		Outputs: map[string]interface{}{
			fieldHistory:  ex.History,
			fieldQuestion: ex.Question,
			fieldAnswer:   ex.Answer,
		},
	}, true
}

func (d *dataset) Reset() {
	d.index = 0
}

// stringField returns the first non-empty string value for key.
func stringField(key string, maps ...map[string]interface{}) string {
	for _, m := range maps {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if s != "" {
			return s
		}
	}
	return ""
}
