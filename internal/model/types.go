// Package model holds the wire and storage types shared by the service,
// the store and the experiment harness.
package model

import (
	"time"

	"tourney/internal/geo"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// OptimizeRequest is the body of POST /v1/optimize. Either Teams (a
// generated instance) or TeamList (explicit coordinates) must be given.
type OptimizeRequest struct {
	Teams         int              `json:"teams,omitempty"`
	Seed          int64            `json:"seed"`
	SpreadKm      float64          `json:"spreadKm,omitempty"`
	Center        *geo.Point       `json:"center,omitempty"`
	TeamList      []geo.Team       `json:"teamList,omitempty"`
	Algorithm     string           `json:"algorithm,omitempty"`
	Solver        string           `json:"solver,omitempty"`
	MaxIterations int              `json:"maxIterations,omitempty"`
	MaxNoImprove  *int             `json:"maxNoImprove,omitempty"`
	TimeBudgetMs  int              `json:"timeBudgetMs,omitempty"`
	InitTemp      *float64         `json:"initTemp,omitempty"`
	Cooling       float64          `json:"cooling,omitempty"`
	Moves         []string         `json:"moves,omitempty"`
	Validate      *bool            `json:"validate,omitempty"`
	Constraints   *validate.Config `json:"constraints,omitempty"`
	ByePolicy     string           `json:"byePolicy,omitempty"`
	IncludeLog    bool             `json:"includeLog,omitempty"`
}

// EvaluateRequest is the body of POST /v1/evaluate. Without TeamList the
// instance is regenerated from Seed, SpreadKm and Center.
type EvaluateRequest struct {
	Schedule    schedule.Schedule `json:"schedule"`
	TeamList    []geo.Team        `json:"teamList,omitempty"`
	Seed        int64             `json:"seed"`
	SpreadKm    float64           `json:"spreadKm,omitempty"`
	Center      *geo.Point        `json:"center,omitempty"`
	Constraints *validate.Config  `json:"constraints,omitempty"`
	ByePolicy   string            `json:"byePolicy,omitempty"`
}

type EvaluateResponse struct {
	PerTeam    []float64            `json:"perTeam"`
	Total      float64              `json:"total"`
	Valid      bool                 `json:"valid"`
	Violations []validate.Violation `json:"violations,omitempty"`
}

// Run is one persisted optimizer run.
type Run struct {
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"createdAt"`
	Algorithm      string               `json:"algorithm"`
	Teams          int                  `json:"teams"`
	Seed           int64                `json:"seed"`
	SpreadKm       float64              `json:"spreadKm,omitempty"`
	BaselineTotal  float64              `json:"baselineTotal"`
	BestTotal      float64              `json:"bestTotal"`
	ImprovementPct float64              `json:"improvementPct"`
	Iterations     int                  `json:"iterations"`
	RuntimeMs      int64                `json:"runtimeMs"`
	Valid          bool                 `json:"valid"`
	Error          string               `json:"error,omitempty"`
	Violations     []validate.Violation `json:"violations,omitempty"`
	Improvements   []opt.Improvement    `json:"improvements,omitempty"`
	Schedule       schedule.Schedule    `json:"schedule"`
	Log            *opt.SearchLog       `json:"log,omitempty"`
}

// RunStats aggregates stored runs for one algorithm.
type RunStats struct {
	Algorithm          string  `json:"algorithm"`
	Runs               int     `json:"runs"`
	Valid              int     `json:"valid"`
	AvgImprovementPct  float64 `json:"avgImprovementPct"`
	BestImprovementPct float64 `json:"bestImprovementPct"`
	AvgRuntimeMs       float64 `json:"avgRuntimeMs"`
}

// RunEvent is published to stream subscribers when a run changes state.
type RunEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

const (
	EventRunStarted   = "run.started"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)
