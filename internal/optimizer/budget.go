package optimizer

import (
	"github.com/giantswarm/persona-gepa/internal/config"
)

// settings are the GEPA search parameters derived from a budget.
type settings struct {
	Generations int
	Population  int
	BatchSize   int
}

var tiers = map[string]settings{
	config.BudgetLight:  {Generations: 3, Population: 6},
	config.BudgetMedium: {Generations: 6, Population: 10},
	config.BudgetHeavy:  {Generations: 12, Population: 16},
}

const maxBatchSize = 8

// settingsFor maps a budget onto GEPA parameters. An explicit metric call
// limit is converted into a generation count for the light population size.
func settingsFor(b config.Budget, trainSize int) settings {
	batch := min(max(trainSize, 1), maxBatchSize)

	if b.MaxMetricCalls > 0 {
		s := tiers[config.BudgetLight]
		s.BatchSize = batch
		s.Generations = max(1, b.MaxMetricCalls/(s.Population*batch))
		return s
	}

	s, ok := tiers[b.Auto]
	if !ok {
		s = tiers[config.BudgetLight]
	}
	s.BatchSize = batch
	return s
}
