package validate

import (
	"fmt"

	"tourney/internal/schedule"
)

// Config selects the constraint checks a Suite runs.
type Config struct {
	MaxConsecutiveAway  int  `json:"maxConsecutiveAway" yaml:"max_consecutive_away"`
	BalanceTolerance    int  `json:"balanceTolerance" yaml:"balance_tolerance"`
	AllowRepeaters      bool `json:"allowRepeaters" yaml:"allow_repeaters"`
	RequirePairCoverage bool `json:"requirePairCoverage" yaml:"require_pair_coverage"`
}

// DefaultConfig is at most three away rounds in a row, no repeaters and a
// home/away difference of at most one.
func DefaultConfig() Config {
	return Config{MaxConsecutiveAway: 3, BalanceTolerance: 1}
}

// Check reports a configuration error wrapping schedule.ErrConfig.
func (c Config) Check() error {
	if c.MaxConsecutiveAway < 0 {
		return fmt.Errorf("%w: max consecutive away must be >= 0, got %d", schedule.ErrConfig, c.MaxConsecutiveAway)
	}
	if c.BalanceTolerance < 0 {
		return fmt.Errorf("%w: balance tolerance must be >= 0, got %d", schedule.ErrConfig, c.BalanceTolerance)
	}
	return nil
}

// Suite bundles the structural check with the configured constraints.
type Suite struct {
	cfg Config
}

func NewSuite(cfg Config) (*Suite, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &Suite{cfg: cfg}, nil
}

func (s *Suite) Config() Config { return s.cfg }

type check func(schedule.Schedule) (bool, []Violation)

func (s *Suite) checks() []check {
	cs := []check{
		Structure,
		func(x schedule.Schedule) (bool, []Violation) { return MaxConsecutiveAway(x, s.cfg.MaxConsecutiveAway) },
	}
	if !s.cfg.AllowRepeaters {
		cs = append(cs, Repeaters)
	}
	cs = append(cs, func(x schedule.Schedule) (bool, []Violation) { return HomeAwayBalance(x, s.cfg.BalanceTolerance) })
	if s.cfg.RequirePairCoverage {
		cs = append(cs, PairCoverage)
	}
	return cs
}

// Validate runs every configured check and returns all violations.
func (s *Suite) Validate(x schedule.Schedule) (bool, []Violation) {
	var out []Violation
	for _, c := range s.checks() {
		if _, vs := c(x); len(vs) > 0 {
			out = append(out, vs...)
		}
	}
	return len(out) == 0, out
}

// Accept is the search gate. It stops at the first failing check.
func (s *Suite) Accept(x schedule.Schedule) bool {
	for _, c := range s.checks() {
		if ok, _ := c(x); !ok {
			return false
		}
	}
	return true
}
