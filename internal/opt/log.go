package opt

import (
	"fmt"
	"strings"
	"time"

	"tourney/internal/moves"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

const (
	AlgorithmHillClimb = "hill_climb"
	AlgorithmAnneal    = "anneal"
)

// Stop reasons recorded in SearchLog.StopReason.
const (
	StopMaxIters   = "max_iters"
	StopNoImprove  = "no_improve"
	StopTimeBudget = "time_budget"
)

// Improvement records a new best at a given iteration. Delta is the amount
// the best score dropped by.
type Improvement struct {
	Iteration int     `json:"iteration"`
	Delta     float64 `json:"delta"`
}

// TracePoint is a sampled view of the search state.
type TracePoint struct {
	Iteration   int     `json:"iteration"`
	Current     float64 `json:"current"`
	Best        float64 `json:"best"`
	Temperature float64 `json:"temperature,omitempty"`
}

// SearchLog is the trajectory of one search run.
type SearchLog struct {
	Algorithm        string             `json:"algorithm"`
	InitialScore     float64            `json:"initialScore"`
	BestScore        float64            `json:"bestScore"`
	Iterations       int                `json:"iterations"`
	Improvements     []Improvement      `json:"improvements"`
	Elapsed          time.Duration      `json:"elapsed"`
	Accepted         int                `json:"accepted"`
	AcceptedWorse    int                `json:"acceptedWorse"`
	Illegal          int                `json:"illegal"`
	Invalid          int                `json:"invalid"`
	MoveSelects      map[moves.Kind]int `json:"moveSelects"`
	FinalTemperature float64            `json:"finalTemperature,omitempty"`
	Trajectory       []TracePoint       `json:"trajectory,omitempty"`
	StopReason       string             `json:"stopReason"`
}

// Result is what a search hands back. Violations is the full suite report
// for Best, empty when Best satisfies every configured constraint.
type Result struct {
	Best       schedule.Schedule    `json:"best"`
	BestScore  float64              `json:"bestScore"`
	Log        SearchLog            `json:"log"`
	Violations []validate.Violation `json:"violations,omitempty"`
}

// StructuralError rejects a schedule at ingestion. It unwraps to
// schedule.ErrStructure.
type StructuralError struct {
	Violations []validate.Violation
}

func (e *StructuralError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%v: %s", schedule.ErrStructure, strings.Join(msgs, "; "))
}

func (e *StructuralError) Unwrap() error { return schedule.ErrStructure }
