package api

import (
	"fmt"
	"math"

	"tourney/internal/experiment"
	"tourney/internal/model"
	"tourney/internal/moves"
	"tourney/internal/schedule"
)

const (
	maxTeams      = 64
	maxIterations = 1_000_000
	maxBudgetMs   = 60_000
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if _, err := experiment.ParseAlgorithm(req.Algorithm); err != nil {
		return err
	}
	if err := validateInstance(req.Teams, len(req.TeamList), req.SpreadKm); err != nil {
		return err
	}
	if req.TimeBudgetMs < 0 || req.TimeBudgetMs > maxBudgetMs {
		return fmt.Errorf("timeBudgetMs must be in [0,%d]", maxBudgetMs)
	}
	if req.MaxIterations < 0 || req.MaxIterations > maxIterations {
		return fmt.Errorf("maxIterations must be in [0,%d]", maxIterations)
	}
	if req.MaxNoImprove != nil && *req.MaxNoImprove < 0 {
		return fmt.Errorf("maxNoImprove must be >= 0")
	}
	if req.InitTemp != nil && (*req.InitTemp < 0 || math.IsNaN(*req.InitTemp)) {
		return fmt.Errorf("initTemp must be >= 0")
	}
	if req.Cooling != 0 && (req.Cooling <= 0 || req.Cooling >= 1) {
		return fmt.Errorf("cooling must be in (0,1)")
	}
	for _, m := range req.Moves {
		if _, err := moves.ParseKind(m); err != nil {
			return err
		}
	}
	if req.Constraints != nil {
		if err := req.Constraints.Check(); err != nil {
			return err
		}
	}
	if _, err := schedule.ParseByePolicy(req.ByePolicy); err != nil {
		return err
	}
	return nil
}

func validateEvaluateRequest(req *model.EvaluateRequest) error {
	n := req.Schedule.NumTeams()
	if n < 2 {
		return fmt.Errorf("schedule must name at least 2 teams")
	}
	if len(req.TeamList) > 0 && len(req.TeamList) != n {
		return fmt.Errorf("teamList has %d teams, schedule has %d", len(req.TeamList), n)
	}
	if err := validateInstance(n, len(req.TeamList), req.SpreadKm); err != nil {
		return err
	}
	if req.Constraints != nil {
		if err := req.Constraints.Check(); err != nil {
			return err
		}
	}
	if _, err := schedule.ParseByePolicy(req.ByePolicy); err != nil {
		return err
	}
	return nil
}

func validateInstance(teams, listed int, spreadKm float64) error {
	n := teams
	if listed > 0 {
		n = listed
	}
	if n < 2 || n > maxTeams {
		return fmt.Errorf("teams must be in [2,%d], got %d", maxTeams, n)
	}
	if spreadKm < 0 || math.IsNaN(spreadKm) {
		return fmt.Errorf("spreadKm must be >= 0")
	}
	return nil
}
