package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tourney/internal/experiment"
	"tourney/internal/geo"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

var validateFlags struct {
	file           string
	maxAway        int
	balance        int
	allowRepeaters bool
	pairCoverage   bool
	seed           int64
	spread         float64
	byePolicy      string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a schedule JSON file against the constraint set and score its travel",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.file, "file", "f", "", "Schedule JSON ({\"teams\":N,\"rounds\":[...]}) (required)")
	f.IntVar(&validateFlags.maxAway, "max-away", 3, "Longest allowed away run")
	f.IntVar(&validateFlags.balance, "balance", 1, "Allowed home/away imbalance per team")
	f.BoolVar(&validateFlags.allowRepeaters, "allow-repeaters", false, "Do not flag back-to-back meetings")
	f.BoolVar(&validateFlags.pairCoverage, "pair-coverage", false, "Require every ordered pair exactly once")
	f.Int64Var(&validateFlags.seed, "seed", 0, "Seed of the instance used for travel scoring")
	f.Float64Var(&validateFlags.spread, "spread", 200, "Spread of the instance used for travel scoring in km")
	f.StringVar(&validateFlags.byePolicy, "bye", "stay", "Bye travel model (stay|home)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(validateFlags.file)
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}
	var s schedule.Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}
	suite, err := validate.NewSuite(validate.Config{
		MaxConsecutiveAway:  validateFlags.maxAway,
		BalanceTolerance:    validateFlags.balance,
		AllowRepeaters:      validateFlags.allowRepeaters,
		RequirePairCoverage: validateFlags.pairCoverage,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if ok, vs := validate.Structure(s); !ok {
		printViolations(cmd, vs)
		return fmt.Errorf("%w: %d structural violation(s)", schedule.ErrStructure, len(vs))
	}
	bye, err := schedule.ParseByePolicy(validateFlags.byePolicy)
	if err != nil {
		return err
	}
	in, err := experiment.NewInstance(s.NumTeams(), validateFlags.seed, geo.DefaultCenter, validateFlags.spread, schedule.WithByePolicy(bye))
	if err != nil {
		return err
	}
	ev := in.Evaluator.Evaluate(s)
	fmt.Fprintf(out, "Teams:   %d\n", s.NumTeams())
	fmt.Fprintf(out, "Rounds:  %d\n", s.Len())
	fmt.Fprintf(out, "Travel:  %.1f km (baseline %.1f km)\n", ev.Total, in.BaselineTotal)
	ok, vs := suite.Validate(s)
	if ok {
		fmt.Fprintf(out, "Valid:   yes\n")
		return nil
	}
	fmt.Fprintf(out, "Valid:   no\n")
	printViolations(cmd, vs)
	return fmt.Errorf("%d constraint violation(s)", len(vs))
}

func printViolations(cmd *cobra.Command, vs []validate.Violation) {
	out := cmd.OutOrStdout()
	for _, v := range vs {
		fmt.Fprintf(out, "  %s\n", v)
	}
}
