package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tourney/internal/exact"
	"tourney/internal/geo"
	"tourney/internal/metrics"
	"tourney/internal/model"
	"tourney/internal/schedule"
)

// Sink receives every finished run. store.Store satisfies it.
type Sink interface {
	SaveRun(ctx context.Context, run model.Run) (model.Run, error)
}

// Experiment is one instance with the results of every algorithm run on it.
type Experiment struct {
	Name          string      `json:"name,omitempty"`
	N             int         `json:"n"`
	Seed          int64       `json:"seed"`
	SpreadKm      float64     `json:"spreadKm"`
	Timestamp     time.Time   `json:"timestamp"`
	Teams         []geo.Team  `json:"teams"`
	BaselineTotal float64     `json:"baselineTotal"`
	Runs          []RunResult `json:"runs"`
}

// Runner executes experiments. Registry, Sink and Logger are optional.
type Runner struct {
	Config   Config
	Registry *exact.Registry
	Sink     Sink
	Logger   *slog.Logger
	Now      func() time.Time
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// RunSingle builds the (n, seed) instance and runs every configured
// algorithm on it in order.
func (r *Runner) RunSingle(ctx context.Context, n int, seed int64) (Experiment, error) {
	cfg := r.Config
	bye, err := schedule.ParseByePolicy(cfg.ByePolicy)
	if err != nil {
		return Experiment{}, err
	}
	in, err := NewInstance(n, seed, cfg.Center, cfg.SpreadKm, schedule.WithByePolicy(bye))
	if err != nil {
		return Experiment{}, err
	}
	exp := Experiment{
		Name:          cfg.Name,
		N:             n,
		Seed:          seed,
		SpreadKm:      cfg.SpreadKm,
		Timestamp:     r.now(),
		Teams:         in.Teams,
		BaselineTotal: in.BaselineTotal,
	}
	params := cfg.Params(seed)
	params.Registry = r.Registry
	log := r.logger()
	for _, alg := range cfg.Algorithms {
		if err := ctx.Err(); err != nil {
			return exp, err
		}
		res, err := in.Run(ctx, alg, params)
		if err != nil {
			metrics.ObserveRun(metrics.RunStats{Algorithm: string(alg), Outcome: "error"})
			return exp, fmt.Errorf("n=%d seed=%d %s: %w", n, seed, alg, err)
		}
		Observe(res)
		log.Info("run complete",
			"n", n, "seed", seed, "algorithm", alg,
			"baseline", res.BaselineTotal, "best", res.BestTotal,
			"improvement_pct", res.ImprovementPct, "iterations", res.Iterations,
			"valid", res.Valid, "elapsed", res.Runtime)
		if res.Error != "" {
			log.Warn("run skipped", "n", n, "seed", seed, "algorithm", alg, "error", res.Error)
		}
		if r.Sink != nil {
			if _, err := r.Sink.SaveRun(ctx, res.Record(cfg.SpreadKm)); err != nil {
				return exp, fmt.Errorf("save run: %w", err)
			}
		}
		exp.Runs = append(exp.Runs, res)
	}
	return exp, nil
}

// RunBatch runs every (N, seed) pair. Instances are independent and run
// concurrently up to Config.Parallel; results keep the N-major order of
// the configuration.
func (r *Runner) RunBatch(ctx context.Context) ([]Experiment, error) {
	if err := r.Config.Check(); err != nil {
		return nil, err
	}
	type job struct {
		n    int
		seed int64
	}
	var jobs []job
	for _, n := range r.Config.Teams {
		for _, s := range r.Config.Seeds {
			jobs = append(jobs, job{n, s})
		}
	}
	out := make([]Experiment, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	limit := r.Config.Parallel
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			exp, err := r.RunSingle(gCtx, j.n, j.seed)
			if err != nil {
				return err
			}
			out[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunSingle is Runner.RunSingle with no sink or registry.
func RunSingle(ctx context.Context, n int, seed int64, cfg Config) (Experiment, error) {
	return (&Runner{Config: cfg}).RunSingle(ctx, n, seed)
}

// RunBatch is Runner.RunBatch with no sink or registry.
func RunBatch(ctx context.Context, cfg Config) ([]Experiment, error) {
	return (&Runner{Config: cfg}).RunBatch(ctx)
}

// Observe records a finished run in the Prometheus collectors.
func Observe(res RunResult) {
	outcome := "valid"
	if !res.Valid {
		outcome = "invalid"
	}
	st := metrics.RunStats{
		Algorithm:      string(res.Algorithm),
		Outcome:        outcome,
		Elapsed:        res.Runtime,
		Iterations:     res.Iterations,
		ImprovementPct: res.ImprovementPct,
	}
	if l := res.Log; l != nil {
		st.Accepted, st.AcceptedWorse, st.Illegal, st.Invalid = l.Accepted, l.AcceptedWorse, l.Illegal, l.Invalid
	}
	metrics.ObserveRun(st)
}
