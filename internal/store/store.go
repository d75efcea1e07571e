// Package store persists optimizer runs and the deployment's optimizer
// defaults. Memory is used when DATABASE_URL is unset.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tourney/internal/model"
)

// Store is the persistence interface used by the API server and the
// experiment harness.
type Store interface {
	// SaveRun assigns an id and creation time when missing and returns the
	// stored record.
	SaveRun(ctx context.Context, run model.Run) (model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	// ListRuns returns runs newest first. algorithm filters when non-empty.
	ListRuns(ctx context.Context, algorithm, cursor string, limit int) (items []model.Run, nextCursor string, err error)
	RunStats(ctx context.Context) ([]model.RunStats, error)

	// Optimizer defaults
	GetOptimizerConfig(ctx context.Context) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// ErrBadCursor is returned for a cursor this store did not produce.
var ErrBadCursor = errors.New("invalid cursor")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// cursor is the position after the last returned run. Runs are ordered by
// (created_at DESC, id DESC) so the pair is unique.
type cursor struct {
	CreatedAt time.Time
	ID        string
}

func encodeCursor(r model.Run) string {
	raw := r.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + r.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return cursor{}, ErrBadCursor
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return cursor{CreatedAt: t, ID: id}, nil
}

// after reports whether r sorts strictly after c in newest-first order.
func (c cursor) after(r model.Run) bool {
	if !r.CreatedAt.Equal(c.CreatedAt) {
		return r.CreatedAt.Before(c.CreatedAt)
	}
	return r.ID < c.ID
}

// statsAcc folds runs into per-algorithm aggregates, sorted by algorithm.
type statsAcc struct {
	order []string
	by    map[string]*accum
}

type accum struct {
	runs, valid     int
	sumImp, bestImp float64
	sumRuntime      float64
}

func newStatsAcc() *statsAcc { return &statsAcc{by: map[string]*accum{}} }

func (s *statsAcc) add(r model.Run) {
	a, ok := s.by[r.Algorithm]
	if !ok {
		a = &accum{bestImp: r.ImprovementPct}
		s.by[r.Algorithm] = a
		s.order = append(s.order, r.Algorithm)
	}
	a.runs++
	if r.Valid {
		a.valid++
	}
	a.sumImp += r.ImprovementPct
	a.sumRuntime += float64(r.RuntimeMs)
	if r.ImprovementPct > a.bestImp {
		a.bestImp = r.ImprovementPct
	}
}

func (s *statsAcc) result() []model.RunStats {
	sort.Strings(s.order)
	out := make([]model.RunStats, 0, len(s.order))
	for _, alg := range s.order {
		a := s.by[alg]
		out = append(out, model.RunStats{
			Algorithm:          alg,
			Runs:               a.runs,
			Valid:              a.valid,
			AvgImprovementPct:  a.sumImp / float64(a.runs),
			BestImprovementPct: a.bestImp,
			AvgRuntimeMs:       a.sumRuntime / float64(a.runs),
		})
	}
	return out
}
