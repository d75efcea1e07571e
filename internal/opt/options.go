package opt

import (
	"fmt"
	"math"
	"time"

	"tourney/internal/moves"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// Clock returns the current time. Tests inject a fake one to make the
// elapsed time in a SearchLog reproducible.
type Clock func() time.Time

// Options configures a hill-climbing search. The zero value runs no
// iterations; start from DefaultOptions.
type Options struct {
	MaxIters     int             `json:"maxIters" yaml:"max_iters"`
	MaxNoImprove int             `json:"maxNoImprove" yaml:"max_no_improve"`
	Validate     bool            `json:"validate" yaml:"validate"`
	Constraints  validate.Config `json:"constraints" yaml:"constraints"`
	Moves        []moves.Kind    `json:"moves,omitempty" yaml:"moves,omitempty"`
	Seed         int64           `json:"seed" yaml:"seed"`
	TimeBudget   time.Duration   `json:"timeBudget,omitempty" yaml:"time_budget,omitempty"`
	TraceEvery   int             `json:"traceEvery,omitempty" yaml:"trace_every,omitempty"`
	Clock        Clock           `json:"-" yaml:"-"`
}

// DefaultOptions returns the hill-climbing defaults.
func DefaultOptions() Options {
	return Options{
		MaxIters:     1000,
		MaxNoImprove: 100,
		Validate:     true,
		Constraints:  validate.DefaultConfig(),
		Moves:        append([]moves.Kind(nil), moves.Defaults...),
	}
}

// AnnealOptions adds the cooling schedule to Options. MaxNoImprove is
// ignored by Anneal.
type AnnealOptions struct {
	Options    `yaml:",inline"`
	T0         float64 `json:"t0" yaml:"t0"`
	Decay      float64 `json:"decay" yaml:"decay"`
	DecayEvery int     `json:"decayEvery,omitempty" yaml:"decay_every,omitempty"`
}

// DefaultAnnealOptions returns the annealing defaults.
func DefaultAnnealOptions() AnnealOptions {
	o := DefaultOptions()
	o.MaxIters = 5000
	o.MaxNoImprove = 0
	return AnnealOptions{Options: o, T0: 1.0, Decay: 0.995, DecayEvery: 1}
}

func (o Options) check() error {
	switch {
	case o.MaxIters < 0:
		return fmt.Errorf("%w: max iters must be >= 0, got %d", schedule.ErrConfig, o.MaxIters)
	case o.MaxNoImprove < 0:
		return fmt.Errorf("%w: max no-improve must be >= 0, got %d", schedule.ErrConfig, o.MaxNoImprove)
	case o.TimeBudget < 0:
		return fmt.Errorf("%w: negative time budget %s", schedule.ErrConfig, o.TimeBudget)
	case o.TraceEvery < 0:
		return fmt.Errorf("%w: trace interval must be >= 0, got %d", schedule.ErrConfig, o.TraceEvery)
	}
	for _, k := range o.Moves {
		if _, err := moves.ParseKind(string(k)); err != nil {
			return err
		}
	}
	return o.Constraints.Check()
}

func (o AnnealOptions) check() error {
	if err := o.Options.check(); err != nil {
		return err
	}
	switch {
	case math.IsNaN(o.T0) || o.T0 < 0:
		return fmt.Errorf("%w: initial temperature must be >= 0, got %v", schedule.ErrConfig, o.T0)
	case !(o.Decay > 0 && o.Decay < 1):
		return fmt.Errorf("%w: decay must be in (0,1), got %v", schedule.ErrConfig, o.Decay)
	case o.DecayEvery < 0:
		return fmt.Errorf("%w: decay interval must be >= 0, got %d", schedule.ErrConfig, o.DecayEvery)
	}
	return nil
}
