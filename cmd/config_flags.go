package cmd

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/metric"
)

// Environment variables consulted when the matching setting is not configured.
const (
	envAPIKey   = "OPENAI_API_KEY"
	envAPIBase  = "OPENAI_API_BASE"
	envRedisURL = "PERSONA_GEPA_REDIS_URL"
)

// configFlags binds command-line flags to a config.Config. Flags only
// override the defaults and the --config file when they were set explicitly.
type configFlags struct {
	path   string
	values config.Config
	apply  map[string]func(*config.Config)
}

func newConfigFlags() *configFlags {
	return &configFlags{
		values: config.Default(),
		apply:  make(map[string]func(*config.Config)),
	}
}

func (f *configFlags) addConfigFile(fs *pflag.FlagSet) {
	fs.StringVar(&f.path, "config", "", "YAML configuration file (flags take precedence)")
}

func (f *configFlags) addRole(fs *pflag.FlagSet, name string, sel func(*config.Config) *config.Role) {
	src := sel(&f.values)

	fs.StringVar(&src.Model, name+"-model", src.Model, fmt.Sprintf("Model for the %s role", name))
	fs.Float64Var(&src.Temperature, name+"-temperature", src.Temperature, fmt.Sprintf("Sampling temperature for the %s role", name))
	fs.IntVar(&src.MaxTokens, name+"-max-tokens", src.MaxTokens, fmt.Sprintf("Completion token limit for the %s role", name))

	f.apply[name+"-model"] = func(c *config.Config) { sel(c).Model = src.Model }
	f.apply[name+"-temperature"] = func(c *config.Config) { sel(c).Temperature = src.Temperature }
	f.apply[name+"-max-tokens"] = func(c *config.Config) { sel(c).MaxTokens = src.MaxTokens }
}

func (f *configFlags) addPersona(fs *pflag.FlagSet) {
	f.addRole(fs, "persona", func(c *config.Config) *config.Role { return &c.Persona })
}

func (f *configFlags) addJudge(fs *pflag.FlagSet) {
	f.addRole(fs, "judge", func(c *config.Config) *config.Role { return &c.Judge })
}

func (f *configFlags) addReflection(fs *pflag.FlagSet) {
	f.addRole(fs, "reflection", func(c *config.Config) *config.Role { return &c.Reflection })
}

// addAPI registers endpoint, credential, cache and client tuning flags.
func (f *configFlags) addAPI(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.APIBase, "api-base", "", "OpenAI-compatible API base URL (or set "+envAPIBase+")")
	fs.StringVar(&v.APIKey, "api-key", "", "API key (or set "+envAPIKey+")")
	fs.StringVar(&v.CacheDir, "cache-dir", v.CacheDir, "Directory for cached LLM responses (empty disables the cache)")
	fs.StringVar(&v.RedisURL, "redis-url", "", "Redis URL for a shared response cache (or set "+envRedisURL+")")
	fs.Float64Var(&v.RequestsPerSecond, "requests-per-second", v.RequestsPerSecond, "Limit outgoing LLM requests per second (0 disables)")
	fs.UintVar(&v.MaxRetries, "max-retries", v.MaxRetries, "Retries for failed LLM requests")

	f.apply["api-base"] = func(c *config.Config) { c.APIBase = v.APIBase }
	f.apply["api-key"] = func(c *config.Config) { c.APIKey = v.APIKey }
	f.apply["cache-dir"] = func(c *config.Config) { c.CacheDir = v.CacheDir }
	f.apply["redis-url"] = func(c *config.Config) { c.RedisURL = v.RedisURL }
	f.apply["requests-per-second"] = func(c *config.Config) { c.RequestsPerSecond = v.RequestsPerSecond }
	f.apply["max-retries"] = func(c *config.Config) { c.MaxRetries = v.MaxRetries }
}

func (f *configFlags) addThreads(fs *pflag.FlagSet) {
	v := &f.values
	fs.IntVar(&v.NumThreads, "num-threads", v.NumThreads, "Parallel evaluation workers")
	f.apply["num-threads"] = func(c *config.Config) { c.NumThreads = v.NumThreads }
}

// addOptimize registers budget and output location flags.
func (f *configFlags) addOptimize(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.Budget, "budget", v.Budget, "Optimization budget: "+strings.Join(config.Budgets, ", "))
	fs.IntVar(&v.MaxMetricCalls, "max-metric-calls", 0, "Explicit metric call budget (overrides --budget)")
	fs.StringVar(&v.OutputDir, "output-dir", v.OutputDir, "Directory for the artifact and validation report")
	fs.StringVar(&v.LogDir, "log-dir", v.LogDir, "Directory for run logs (empty disables file logging)")

	f.apply["budget"] = func(c *config.Config) { c.Budget = v.Budget }
	f.apply["max-metric-calls"] = func(c *config.Config) { c.MaxMetricCalls = v.MaxMetricCalls }
	f.apply["output-dir"] = func(c *config.Config) { c.OutputDir = v.OutputDir }
	f.apply["log-dir"] = func(c *config.Config) { c.LogDir = v.LogDir }
}

// addWeights registers one --weight-<aspect> flag per judged aspect.
func (f *configFlags) addWeights(fs *pflag.FlagSet) {
	for _, aspect := range judge.Aspects {
		value := new(float64)
		*value = f.values.Weights[aspect]
		name := "weight-" + aspect
		fs.Float64Var(value, name, *value, fmt.Sprintf("Score weight for %s", aspect))
		f.apply[name] = func(c *config.Config) {
			w := make(metric.Weights, len(c.Weights)+1)
			maps.Copy(w, c.Weights)
			w[aspect] = *value
			c.Weights = w
		}
	}
}

// resolve builds the effective configuration: defaults, then the --config
// file, then explicitly set flags, then environment fallbacks.
func (f *configFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.path != "" {
		loaded, err := config.LoadFile(f.path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	fs.Visit(func(fl *pflag.Flag) {
		if apply, ok := f.apply[fl.Name]; ok {
			apply(&cfg)
		}
	})

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envAPIKey)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = os.Getenv(envAPIBase)
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv(envRedisURL)
	}
	return cfg, nil
}
