package experiment

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/geo"
	"tourney/internal/model"
	"tourney/internal/schedule"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Teams = []int{4, 5}
	cfg.Seeds = []int64{1, 2}
	cfg.HillClimb.MaxIters = 200
	cfg.Anneal.MaxIters = 300
	return cfg
}

func TestNewInstanceIsSeeded(t *testing.T) {
	a, err := NewInstance(6, 42, geo.DefaultCenter, 20)
	require.NoError(t, err)
	b, err := NewInstance(6, 42, geo.DefaultCenter, 20)
	require.NoError(t, err)
	assert.Equal(t, a.Teams, b.Teams)
	assert.Equal(t, a.BaselineTotal, b.BaselineTotal)
	assert.Equal(t, a.Evaluator.Total(a.Baseline), a.BaselineTotal)
	assert.Equal(t, 10, a.Baseline.Len())

	_, err = NewInstance(1, 1, geo.DefaultCenter, 20)
	assert.ErrorIs(t, err, schedule.ErrConfig)
}

func TestRunAlgorithms(t *testing.T) {
	in, err := NewInstance(4, 3, geo.DefaultCenter, 300)
	require.NoError(t, err)
	p := DefaultParams()
	ctx := context.Background()

	base, err := in.Run(ctx, Baseline, p)
	require.NoError(t, err)
	assert.True(t, base.Valid)
	assert.Zero(t, base.ImprovementPct)

	hc, err := in.Run(ctx, HillClimb, p)
	require.NoError(t, err)
	assert.True(t, hc.Valid)
	assert.LessOrEqual(t, hc.BestTotal, base.BestTotal)
	require.NotNil(t, hc.Log)
	assert.Equal(t, hc.Log.Iterations, hc.Iterations)

	ex, err := in.Run(ctx, Exact, p)
	require.NoError(t, err)
	assert.True(t, ex.Valid, "%v %s", ex.Violations, ex.Error)
	assert.LessOrEqual(t, ex.BestTotal, hc.BestTotal+1e-9)
	assert.GreaterOrEqual(t, ex.ImprovementPct, hc.ImprovementPct-1e-9)

	_, err = in.Run(ctx, Algorithm("tabu"), p)
	assert.ErrorIs(t, err, schedule.ErrConfig)
}

func TestExactTooLargeIsSoft(t *testing.T) {
	in, err := NewInstance(6, 1, geo.DefaultCenter, 100)
	require.NoError(t, err)
	res, err := in.Run(context.Background(), Exact, DefaultParams())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "too large")
	assert.Equal(t, in.BaselineTotal, res.BestTotal)
}

type memSink struct {
	mu   sync.Mutex
	runs []model.Run
}

func (s *memSink) SaveRun(_ context.Context, r model.Run) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return r, nil
}

func TestRunBatchParallelMatchesSequential(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	seq := smallConfig()
	seq.Parallel = 1
	sink := &memSink{}
	a, err := (&Runner{Config: seq, Sink: sink, Now: fixed}).RunBatch(context.Background())
	require.NoError(t, err)

	par := smallConfig()
	par.Parallel = 4
	b, err := (&Runner{Config: par, Now: fixed}).RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, a, 4)
	assert.Equal(t, 4, a[0].N)
	assert.Equal(t, int64(2), a[1].Seed)
	assert.Equal(t, 5, a[3].N)
	assert.Len(t, sink.runs, 12)

	ignore := cmpopts.IgnoreFields(RunResult{}, "Runtime", "Log")
	if diff := cmp.Diff(a, b, ignore); diff != "" {
		t.Fatalf("parallel batch differs (-seq +par):\n%s", diff)
	}
}

func TestRunBatchHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBatch(ctx, smallConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteOutputs(t *testing.T) {
	cfg := smallConfig()
	cfg.Teams = []int{4}
	cfg.Seeds = []int64{7}
	exp, err := RunSingle(context.Background(), 4, 7, cfg)
	require.NoError(t, err)
	exp.Timestamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	dir := t.TempDir()
	paths, err := WriteJSON(dir, exp)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "hill_climb", "4-7-20240501T120000Z.json"), paths[1])
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}

	p, err := WriteCSVSummary(dir, []Experiment{exp})
	require.NoError(t, err)
	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, summaryHeader, rows[0])
	assert.Equal(t, []string{"4", "7", "baseline"}, rows[1][:3])
	assert.Equal(t, "true", rows[2][8])
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "exp.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
name: coast
teams: [6, 8]
seeds: [42]
spread_km: 20
algorithms: [hill_climb, anneal]
constraints:
  max_consecutive_away: 2
  balance_tolerance: 1
hill_climb:
  max_iters: 500
  time_budget: 2s
anneal:
  t0: 5
  decay: 0.99
parallel: 2
`), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "coast", cfg.Name)
	assert.Equal(t, []int{6, 8}, cfg.Teams)
	assert.Equal(t, []Algorithm{HillClimb, Anneal}, cfg.Algorithms)
	assert.Equal(t, 2, cfg.Constraints.MaxConsecutiveAway)
	assert.Equal(t, 500, cfg.HillClimb.MaxIters)
	assert.Equal(t, 100, cfg.HillClimb.MaxNoImprove, "default kept")
	assert.Equal(t, 2*time.Second, cfg.HillClimb.TimeBudget)
	assert.Equal(t, 5.0, cfg.Anneal.T0)
	assert.Equal(t, 5000, cfg.Anneal.MaxIters, "default kept")
	assert.Equal(t, geo.DefaultCenter, cfg.Center)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("algorithms: [tabu]\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, schedule.ErrConfig)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
