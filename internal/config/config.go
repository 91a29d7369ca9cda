// Package config holds the settings shared by the optimize, infer and serve
// commands. Values come from Default, optionally overlaid by a YAML file and
// finally by explicitly set command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/persona-gepa/internal/metric"
)

// Budget tiers understood by the optimizer.
const (
	BudgetLight  = "light"
	BudgetMedium = "medium"
	BudgetHeavy  = "heavy"
)

// Budgets lists the valid budget names.
var Budgets = []string{BudgetLight, BudgetMedium, BudgetHeavy}

// Role configures the model used for one role (persona, judge, reflection).
type Role struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Config is the full run configuration.
type Config struct {
	Persona    Role `yaml:"persona"`
	Judge      Role `yaml:"judge"`
	Reflection Role `yaml:"reflection"`

	NumThreads int `yaml:"num_threads"`

	CacheDir  string `yaml:"cache_dir"`
	OutputDir string `yaml:"output_dir"`
	LogDir    string `yaml:"log_dir"`

	// RedisURL selects a shared Redis response cache instead of CacheDir.
	RedisURL string `yaml:"redis_url"`

	Budget         string `yaml:"budget"`
	MaxMetricCalls int    `yaml:"max_metric_calls"`

	Weights metric.Weights `yaml:"score_weights"`

	APIBase string `yaml:"api_base"`
	APIKey  string `yaml:"-"`

	// RequestsPerSecond limits outgoing LLM requests; 0 disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        uint    `yaml:"max_retries"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Persona:    Role{Model: "openai/gpt-4o", Temperature: 0.2, MaxTokens: 512},
		Judge:      Role{Model: "openai/gpt-4o", Temperature: 0.0, MaxTokens: 512},
		Reflection: Role{Model: "openai/gpt-4o", Temperature: 0.2, MaxTokens: 512},
		NumThreads: 8,
		CacheDir:   ".cache/persona_gepa",
		OutputDir:  "artifacts/persona_gepa",
		LogDir:     "logs/persona_gepa",
		Budget:     BudgetLight,
		Weights:    metric.DefaultWeights(),
		MaxRetries: 3,
	}
}

// LoadFile reads a YAML file and overlays it on Default. Keys absent from the
// file keep their default value; a score_weights mapping replaces the default
// weights as a whole.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Weights = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Weights == nil {
		cfg.Weights = metric.DefaultWeights()
	}

	return cfg, nil
}

// ResolvedBudget returns the optimizer budget. An explicit metric call limit
// wins over the named tier; an empty tier means light.
func (c Config) ResolvedBudget() Budget {
	if c.MaxMetricCalls > 0 {
		return Budget{MaxMetricCalls: c.MaxMetricCalls}
	}
	if c.Budget != "" {
		return Budget{Auto: c.Budget}
	}
	return Budget{Auto: BudgetLight}
}

// NormalizedWeights returns the score weights scaled to sum to one.
func (c Config) NormalizedWeights() metric.Weights {
	return c.Weights.Normalize()
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.MaxMetricCalls < 0 {
		return fmt.Errorf("max_metric_calls must not be negative")
	}
	if c.MaxMetricCalls == 0 && c.Budget != "" && !isBudget(c.Budget) {
		return fmt.Errorf("unknown budget %q (valid: %s)", c.Budget, strings.Join(Budgets, ", "))
	}
	for _, r := range []struct {
		name string
		role Role
	}{{"persona", c.Persona}, {"judge", c.Judge}, {"reflection", c.Reflection}} {
		if strings.TrimSpace(r.role.Model) == "" {
			return fmt.Errorf("%s model is required", r.name)
		}
		if r.role.MaxTokens < 0 {
			return fmt.Errorf("%s max tokens must not be negative", r.name)
		}
	}
	for k, v := range c.Weights {
		if v < 0 {
			return fmt.Errorf("weight %q must not be negative", k)
		}
	}
	return nil
}

func isBudget(name string) bool {
	for _, b := range Budgets {
		if b == name {
			return true
		}
	}
	return false
}

// Budget is either a named tier (Auto) or an explicit metric call limit.
type Budget struct {
	Auto           string `json:"auto,omitempty"`
	MaxMetricCalls int    `json:"max_metric_calls,omitempty"`
}
