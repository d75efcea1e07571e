package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tourney/internal/config"
	"tourney/internal/experiment"
	"tourney/internal/schedule"
	"tourney/internal/store"
)

var batchFlags struct {
	config   string
	out      string
	parallel int
	persist  bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every (N, seed) pair of an experiment config and export JSON and CSV",
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.config, "config", "c", "", "YAML experiment config (defaults apply when empty)")
	f.StringVarP(&batchFlags.out, "out", "o", "", "Output directory (overrides output_dir)")
	f.IntVarP(&batchFlags.parallel, "parallel", "p", 0, "Concurrent instances (overrides parallel)")
	f.BoolVar(&batchFlags.persist, "persist", false, "Also save every run to DATABASE_URL")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadExperimentConfig(batchFlags.config)
	if err != nil {
		return err
	}
	if batchFlags.out != "" {
		cfg.OutputDir = batchFlags.out
	}
	if batchFlags.parallel > 0 {
		cfg.Parallel = batchFlags.parallel
	}
	bye, err := schedule.ParseByePolicy(cfg.ByePolicy)
	if err != nil {
		return err
	}
	r := &experiment.Runner{Config: cfg, Registry: defaultRegistry(bye), Logger: slog.Default()}
	if batchFlags.persist {
		env, err := config.FromEnv()
		if err != nil {
			return err
		}
		if env.DatabaseURL == "" {
			return fmt.Errorf("--persist requires DATABASE_URL")
		}
		pg, err := store.NewPostgres(env.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = pg.Close() }()
		if err := pg.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		r.Sink = pg
	}

	exps, err := r.RunBatch(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	files := 0
	for _, exp := range exps {
		printExperiment(cmd, exp)
		paths, err := experiment.WriteJSON(cfg.OutputDir, exp)
		if err != nil {
			return err
		}
		files += len(paths)
	}
	summary, err := experiment.WriteCSVSummary(cfg.OutputDir, exps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d run file(s) and %s\n", files, summary)
	return nil
}
