package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourney/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	runs   map[string]model.Run // id -> run
	order  []string             // ids, newest first
	optCfg map[string]any
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		runs: map[string]model.Run{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) (model.Run, error) {
	if err := ctx.Err(); err != nil {
		return model.Run{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = m.now()
	}
	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = run
	sort.SliceStable(m.order, func(i, j int) bool {
		a, b := m.runs[m.order[i]], m.runs[m.order[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, algorithm, cur string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	var c *cursor
	if cur != "" {
		dc, err := decodeCursor(cur)
		if err != nil {
			return nil, "", err
		}
		c = &dc
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Run{}
	for _, id := range m.order {
		r := m.runs[id]
		if algorithm != "" && r.Algorithm != algorithm {
			continue
		}
		if c != nil && !c.after(r) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	var next string
	if len(out) == limit {
		next = encodeCursor(out[len(out)-1])
	}
	return out, next, nil
}

func (m *Memory) RunStats(ctx context.Context) ([]model.RunStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := newStatsAcc()
	for _, id := range m.order {
		acc.add(m.runs[id])
	}
	return acc.result(), nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.optCfg), nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg = maps.Clone(cfg)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
