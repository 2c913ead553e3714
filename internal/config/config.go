package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/frap"
	"github.com/san-kum/frapfit/internal/optim"
)

const (
	DefaultNumObs   = 50
	DefaultTMax     = 8 * 14
	DefaultNoise    = 0.05
	DefaultSeed     = 1
	DefaultSolver   = "lm"
	DefaultDataPath = "frap.csv"
	DefaultPlotPath = "frap.svg"
	DefaultRunsDir  = ".frapfit"
	DefaultLogLevel = "info"
)

type Config struct {
	Generate GenerateConfig `yaml:"generate"`
	Fit      FitConfig      `yaml:"fit"`
	Output   OutputConfig   `yaml:"output"`
	LogLevel string         `yaml:"log_level"`
}

type GenerateConfig struct {
	Groups []frap.ParameterSet `yaml:"groups"`
	NumObs int                 `yaml:"nobs"`
	TMax   float64             `yaml:"tmax"`
	Noise  float64             `yaml:"noise"`
	Seed   uint64              `yaml:"seed"`
}

type FitConfig struct {
	Solver   string         `yaml:"solver"`
	Settings optim.Settings `yaml:",inline"`
}

type OutputConfig struct {
	Data    string `yaml:"data"`
	Plot    string `yaml:"plot"`
	RunsDir string `yaml:"runs_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Generate: GenerateConfig{
			Groups: append([]frap.ParameterSet(nil), ThreeGroups...),
			NumObs: DefaultNumObs,
			TMax:   DefaultTMax,
			Noise:  DefaultNoise,
			Seed:   DefaultSeed,
		},
		Fit: FitConfig{
			Solver:   DefaultSolver,
			Settings: optim.DefaultSettings(),
		},
		Output: OutputConfig{
			Data:    DefaultDataPath,
			Plot:    DefaultPlotPath,
			RunsDir: DefaultRunsDir,
		},
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, frap.NewConfigError("parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	g := c.Generate
	switch {
	case len(g.Groups) == 0:
		return frap.NewConfigError("generate: at least one group is required")
	case len(g.Groups) > dataset.MaxGroups:
		return frap.NewConfigError("generate: %d groups exceeds the limit of %d", len(g.Groups), dataset.MaxGroups)
	case g.NumObs < 2:
		return frap.NewConfigError("generate: nobs must be at least 2, got %d", g.NumObs)
	case g.TMax <= 0:
		return frap.NewConfigError("generate: tmax must be positive, got %g", g.TMax)
	case g.Noise < 0:
		return frap.NewConfigError("generate: noise must be non-negative, got %g", g.Noise)
	}
	for i, p := range g.Groups {
		if err := p.Validate(); err != nil {
			return frap.NewConfigError("generate: group %d: %v", i, err)
		}
	}
	if _, err := optim.New(c.Fit.Solver, c.Fit.Settings); err != nil {
		return frap.NewConfigError("fit: %v", err)
	}
	if c.Fit.Settings.MaxIterations < 0 {
		return frap.NewConfigError("fit: max_iterations must be non-negative, got %d", c.Fit.Settings.MaxIterations)
	}
	return nil
}

// SynthConfig converts the generate section for dataset.Synthesize.
func (c *Config) SynthConfig() dataset.SynthConfig {
	return dataset.SynthConfig{
		Groups: c.Generate.Groups,
		NumObs: c.Generate.NumObs,
		TMax:   c.Generate.TMax,
		Noise:  c.Generate.Noise,
		Seed:   c.Generate.Seed,
	}
}

// Solver builds the configured least-squares solver.
func (c *Config) Solver() (optim.Solver, error) {
	return optim.New(c.Fit.Solver, c.Fit.Settings)
}

// ApplyPreset replaces the generate section with the named preset.
func (c *Config) ApplyPreset(name string) error {
	p := GetPreset(name)
	if p == nil {
		return frap.NewConfigError("unknown preset: %s (available: %v)", name, ListPresets())
	}
	c.Generate = *p
	c.Generate.Groups = append([]frap.ParameterSet(nil), p.Groups...)
	return nil
}
