// Package experiment wires the core into runnable experiments: it builds
// seeded instances, runs the optimizers over them and exports the results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tourney/internal/exact"
	"tourney/internal/geo"
	"tourney/internal/model"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// Algorithm names an optimizer the harness can run.
type Algorithm string

const (
	Baseline  Algorithm = "baseline"
	HillClimb Algorithm = "hill_climb"
	Anneal    Algorithm = "anneal"
	Exact     Algorithm = "exact"
)

// ParseAlgorithm checks an algorithm name. Empty selects hill climbing.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return HillClimb, nil
	case Baseline, HillClimb, Anneal, Exact:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", schedule.ErrConfig, s)
}

// Instance is one seeded problem: teams, distances, the baseline schedule
// and its score.
type Instance struct {
	N             int
	Seed          int64
	SpreadKm      float64
	Teams         []geo.Team
	Dist          geo.Matrix
	Baseline      schedule.Schedule
	Evaluator     *schedule.Evaluator
	BaselineTotal float64
}

// NewInstance generates n teams around center from seed.
func NewInstance(n int, seed int64, center geo.Point, spreadKm float64, opts ...schedule.EvaluatorOption) (*Instance, error) {
	if n <= 1 {
		return nil, fmt.Errorf("%w: need at least 2 teams, got %d", schedule.ErrConfig, n)
	}
	teams, err := geo.GenerateTeams(rand.New(rand.NewSource(seed)), n, center, spreadKm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrConfig, err)
	}
	in, err := FromTeams(teams, opts...)
	if err != nil {
		return nil, err
	}
	in.Seed, in.SpreadKm = seed, spreadKm
	return in, nil
}

// FromTeams builds an instance over an explicit team list.
func FromTeams(teams []geo.Team, opts ...schedule.EvaluatorOption) (*Instance, error) {
	dist := geo.DistanceMatrix(teams)
	ev, err := schedule.NewEvaluator(teams, dist, opts...)
	if err != nil {
		return nil, err
	}
	base, err := schedule.GenerateFor(teams)
	if err != nil {
		return nil, err
	}
	return &Instance{
		N:             len(teams),
		Teams:         teams,
		Dist:          dist,
		Baseline:      base,
		Evaluator:     ev,
		BaselineTotal: ev.Total(base),
	}, nil
}

// Params carries the per-algorithm settings for Instance.Run. Constraints
// overrides the constraint set inside both search option blocks so every
// algorithm is judged by the same rules.
type Params struct {
	Constraints validate.Config
	HillClimb   opt.Options
	Anneal      opt.AnnealOptions
	Solver      string
	Registry    *exact.Registry
}

// DefaultParams uses the library defaults and the enumerating solver.
func DefaultParams() Params {
	return Params{
		Constraints: validate.DefaultConfig(),
		HillClimb:   opt.DefaultOptions(),
		Anneal:      opt.DefaultAnnealOptions(),
		Solver:      "enumerate",
	}
}

// RunResult is the outcome of one algorithm on one instance.
type RunResult struct {
	Algorithm      Algorithm            `json:"algorithm"`
	N              int                  `json:"n"`
	Seed           int64                `json:"seed"`
	BaselineTotal  float64              `json:"baselineTotal"`
	BestTotal      float64              `json:"bestTotal"`
	ImprovementPct float64              `json:"improvementPct"`
	Runtime        time.Duration        `json:"runtime"`
	Iterations     int                  `json:"iterations"`
	Valid          bool                 `json:"valid"`
	Error          string               `json:"error,omitempty"`
	Violations     []validate.Violation `json:"violations,omitempty"`
	Improvements   []opt.Improvement    `json:"improvements,omitempty"`
	Best           schedule.Schedule    `json:"best"`
	Log            *opt.SearchLog       `json:"log,omitempty"`
}

// Soft reports whether err is an expected per-run failure (solver missing,
// instance too large, no feasible schedule) rather than a broken setup.
func Soft(err error) bool {
	return errors.Is(err, exact.ErrUnavailable) || errors.Is(err, exact.ErrTooLarge) || errors.Is(err, exact.ErrInfeasible)
}

// Run executes one algorithm. Soft failures come back as a RunResult with
// Error set and a nil error.
func (in *Instance) Run(ctx context.Context, alg Algorithm, p Params) (RunResult, error) {
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}
	suite, err := validate.NewSuite(p.Constraints)
	if err != nil {
		return RunResult{}, err
	}
	res := RunResult{Algorithm: alg, N: in.N, Seed: in.Seed, BaselineTotal: in.BaselineTotal}
	start := time.Now()

	switch alg {
	case Baseline:
		res.Best, res.BestTotal = in.Baseline, in.BaselineTotal
	case HillClimb:
		o := p.HillClimb
		o.Constraints = p.Constraints
		r, err := opt.HillClimb(in.Baseline, in.Evaluator, o)
		if err != nil {
			return RunResult{}, err
		}
		res.fromSearch(r)
	case Anneal:
		o := p.Anneal
		o.Constraints = p.Constraints
		r, err := opt.Anneal(in.Baseline, in.Evaluator, o)
		if err != nil {
			return RunResult{}, err
		}
		res.fromSearch(r)
	case Exact:
		reg := p.Registry
		if reg == nil {
			reg = exact.NewRegistry(exact.NewEnumerator(exact.DefaultEnumeratorLimit, in.Evaluator.ByePolicy()))
		}
		name := p.Solver
		if name == "" {
			name = "enumerate"
		}
		s, _, err := reg.Solve(ctx, name, in.Teams, in.Dist, p.Constraints)
		switch {
		case Soft(err):
			res.Error = err.Error()
			res.Best, res.BestTotal = in.Baseline, in.BaselineTotal
		case err != nil:
			return RunResult{}, err
		default:
			// rescore with the instance evaluator so bye handling matches
			res.Best, res.BestTotal = s, in.Evaluator.Total(s)
		}
	default:
		return RunResult{}, fmt.Errorf("%w: unknown algorithm %q", schedule.ErrConfig, alg)
	}

	res.Runtime = time.Since(start)
	if res.Log != nil && res.Log.Elapsed > 0 {
		res.Runtime = res.Log.Elapsed
	}
	ok, vs := suite.Validate(res.Best)
	res.Valid = ok && res.Error == ""
	res.Violations = vs
	if in.BaselineTotal > 0 {
		res.ImprovementPct = 100 * (in.BaselineTotal - res.BestTotal) / in.BaselineTotal
	}
	return res, nil
}

func (r *RunResult) fromSearch(sr opt.Result) {
	log := sr.Log
	r.Best, r.BestTotal = sr.Best, sr.BestScore
	r.Iterations = log.Iterations
	r.Improvements = log.Improvements
	r.Log = &log
}

// Record converts the result into its persisted form.
func (r RunResult) Record(spreadKm float64) model.Run {
	return model.Run{
		Algorithm:      string(r.Algorithm),
		Teams:          r.N,
		Seed:           r.Seed,
		SpreadKm:       spreadKm,
		BaselineTotal:  r.BaselineTotal,
		BestTotal:      r.BestTotal,
		ImprovementPct: r.ImprovementPct,
		Iterations:     r.Iterations,
		RuntimeMs:      r.Runtime.Milliseconds(),
		Valid:          r.Valid,
		Error:          r.Error,
		Violations:     r.Violations,
		Improvements:   r.Improvements,
		Schedule:       r.Best,
		Log:            r.Log,
	}
}
