package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tourney/internal/geo"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// Config describes a batch: every N in Teams is run with every seed in
// Seeds, and each instance goes through every algorithm in Algorithms.
type Config struct {
	Name        string            `yaml:"name"`
	Teams       []int             `yaml:"teams"`
	Seeds       []int64           `yaml:"seeds"`
	SpreadKm    float64           `yaml:"spread_km"`
	Center      geo.Point         `yaml:"center"`
	Algorithms  []Algorithm       `yaml:"algorithms"`
	Constraints validate.Config   `yaml:"constraints"`
	HillClimb   opt.Options       `yaml:"hill_climb"`
	Anneal      opt.AnnealOptions `yaml:"anneal"`
	Solver      string            `yaml:"solver"`
	ByePolicy   string            `yaml:"bye_policy"`
	Parallel    int               `yaml:"parallel"`
	OutputDir   string            `yaml:"output_dir"`
}

// DefaultConfig mirrors the classic study: N in {6,8,10}, three seeds,
// baseline plus both local searches.
func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Teams:       []int{6, 8, 10},
		Seeds:       []int64{0, 1, 2},
		SpreadKm:    200,
		Center:      geo.DefaultCenter,
		Algorithms:  []Algorithm{Baseline, HillClimb, Anneal},
		Constraints: validate.DefaultConfig(),
		HillClimb:   opt.DefaultOptions(),
		Anneal:      opt.DefaultAnnealOptions(),
		Solver:      "enumerate",
		Parallel:    1,
		OutputDir:   "results",
	}
}

// LoadConfig reads a YAML batch description. Keys left out keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Check reports the first invalid setting.
func (c Config) Check() error {
	if len(c.Teams) == 0 || len(c.Seeds) == 0 || len(c.Algorithms) == 0 {
		return fmt.Errorf("%w: teams, seeds and algorithms must be non-empty", schedule.ErrConfig)
	}
	for _, n := range c.Teams {
		if n <= 1 {
			return fmt.Errorf("%w: team count %d", schedule.ErrConfig, n)
		}
	}
	for _, a := range c.Algorithms {
		if _, err := ParseAlgorithm(string(a)); err != nil {
			return err
		}
	}
	if c.SpreadKm < 0 {
		return fmt.Errorf("%w: negative spread %v", schedule.ErrConfig, c.SpreadKm)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("%w: negative parallelism %d", schedule.ErrConfig, c.Parallel)
	}
	if _, err := schedule.ParseByePolicy(c.ByePolicy); err != nil {
		return err
	}
	return c.Constraints.Check()
}

// Params derives the per-run parameters for one seed. Searches are seeded
// with the instance seed so a batch is reproducible end to end.
func (c Config) Params(seed int64) Params {
	p := Params{
		Constraints: c.Constraints,
		HillClimb:   c.HillClimb,
		Anneal:      c.Anneal,
		Solver:      c.Solver,
	}
	p.HillClimb.Seed = seed
	p.Anneal.Seed = seed
	return p
}
