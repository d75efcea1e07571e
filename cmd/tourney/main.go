// tourney runs tournament-schedule experiments from the command line.
//
// Usage:
//
//	tourney run --teams 6 --seed 42 [--algorithms hill_climb,anneal] [--config exp.yaml]
//	tourney batch --config exp.yaml [--out results] [--parallel 4] [--persist]
//	tourney validate -f schedule.json [--max-away 3] [--balance 1]
//	tourney solvers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
