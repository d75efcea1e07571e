package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tourney/internal/exact"
	"tourney/internal/experiment"
	"tourney/internal/schedule"
)

var runFlags struct {
	config     string
	teams      int
	seed       int64
	spread     float64
	algorithms []string
	out        string
	json       bool
	show       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured optimizers on one seeded instance",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.config, "config", "c", "", "YAML experiment config (optional)")
	f.IntVarP(&runFlags.teams, "teams", "n", 6, "Number of teams")
	f.Int64Var(&runFlags.seed, "seed", 0, "Instance and search seed")
	f.Float64Var(&runFlags.spread, "spread", 0, "Half-width of the team placement box in km (0 keeps the config value)")
	f.StringSliceVarP(&runFlags.algorithms, "algorithms", "a", nil, "Algorithms to run (baseline,hill_climb,anneal,exact)")
	f.StringVarP(&runFlags.out, "out", "o", "", "Write per-run JSON files under this directory")
	f.BoolVar(&runFlags.json, "json", false, "Print the experiment as JSON")
	f.BoolVar(&runFlags.show, "show", false, "Print the best schedule of each run")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadExperimentConfig(runFlags.config)
	if err != nil {
		return err
	}
	if runFlags.spread > 0 {
		cfg.SpreadKm = runFlags.spread
	}
	if len(runFlags.algorithms) > 0 {
		cfg.Algorithms = cfg.Algorithms[:0:0]
		for _, a := range runFlags.algorithms {
			alg, err := experiment.ParseAlgorithm(a)
			if err != nil {
				return err
			}
			cfg.Algorithms = append(cfg.Algorithms, alg)
		}
	}
	bye, err := schedule.ParseByePolicy(cfg.ByePolicy)
	if err != nil {
		return err
	}
	r := &experiment.Runner{Config: cfg, Registry: defaultRegistry(bye), Logger: slog.Default()}
	exp, err := r.RunSingle(cmd.Context(), runFlags.teams, runFlags.seed)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if runFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	}
	printExperiment(cmd, exp)
	if runFlags.show {
		for _, res := range exp.Runs {
			fmt.Fprintf(out, "\n%s:\n%s", res.Algorithm, res.Best)
		}
	}
	if runFlags.out != "" {
		paths, err := experiment.WriteJSON(runFlags.out, exp)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
	}
	return nil
}

func loadExperimentConfig(path string) (experiment.Config, error) {
	if path == "" {
		return experiment.DefaultConfig(), nil
	}
	return experiment.LoadConfig(path)
}

func defaultRegistry(bye schedule.ByePolicy) *exact.Registry {
	return exact.NewRegistry(
		exact.NewEnumerator(exact.DefaultEnumeratorLimit, bye),
		exact.Missing{SolverName: "cpsat", Why: "CP-SAT backend is not linked into this build"},
	)
}

func printExperiment(cmd *cobra.Command, exp experiment.Experiment) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "N=%d seed=%d spread=%.0fkm baseline=%.1f km\n", exp.N, exp.Seed, exp.SpreadKm, exp.BaselineTotal)
	fmt.Fprintf(out, "%-11s %12s %8s %7s %10s %s\n", "ALGORITHM", "BEST_KM", "IMPROVE", "VALID", "ITERS", "NOTE")
	for _, r := range exp.Runs {
		note := r.Error
		if note == "" && len(r.Violations) > 0 {
			note = fmt.Sprintf("%d violation(s)", len(r.Violations))
		}
		fmt.Fprintf(out, "%-11s %12.1f %7.2f%% %7t %10d %s\n", r.Algorithm, r.BestTotal, r.ImprovementPct, r.Valid, r.Iterations, note)
	}
}
