package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tourney/internal/schedule"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List exact solvers and whether they are available",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, c := range defaultRegistry(schedule.ByeStay).Capabilities() {
			status := "available"
			if !c.Available {
				status = "unavailable: " + c.Reason
			}
			fmt.Fprintf(out, "%-10s max_teams=%-3d %s\n", c.Name, c.MaxTeams, status)
		}
		return nil
	},
}
