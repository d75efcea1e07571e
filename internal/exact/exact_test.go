package exact

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/geo"
	"tourney/internal/opt"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

func teams(t *testing.T, n int, seed int64) ([]geo.Team, geo.Matrix) {
	t.Helper()
	ts, err := geo.GenerateTeams(rand.New(rand.NewSource(seed)), n, geo.DefaultCenter, 300)
	require.NoError(t, err)
	return ts, geo.DistanceMatrix(ts)
}

func TestRoundCandidates(t *testing.T) {
	assert.Len(t, roundCandidates(4), 12) // 3 matchings x 4 venue choices
	assert.Len(t, roundCandidates(3), 6)  // 3 matchings, one real pair each
	assert.Len(t, roundCandidates(2), 2)
}

func TestEnumeratorBeatsHeuristics(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		ts, d := teams(t, 4, seed)
		cfg := validate.DefaultConfig()

		best, score, err := NewEnumerator(0, schedule.ByeStay).Solve(context.Background(), ts, d, cfg)
		require.NoError(t, err)

		suite, err := validate.NewSuite(validate.Config{MaxConsecutiveAway: 3, BalanceTolerance: 1, RequirePairCoverage: true})
		require.NoError(t, err)
		ok, vs := suite.Validate(best)
		require.True(t, ok, "%v", vs)

		ev, err := schedule.NewEvaluator(ts, d)
		require.NoError(t, err)
		assert.InDelta(t, ev.Total(best), score, 1e-9)

		base, err := schedule.Generate(4)
		require.NoError(t, err)
		assert.LessOrEqual(t, score, ev.Total(base)+1e-9)

		hcOpts := opt.DefaultOptions()
		hcOpts.Seed = seed
		hc, err := opt.HillClimb(base, ev, hcOpts)
		require.NoError(t, err)
		assert.LessOrEqual(t, score, hc.BestScore+1e-9)

		saOpts := opt.DefaultAnnealOptions()
		saOpts.Seed = seed
		sa, err := opt.Anneal(base, ev, saOpts)
		require.NoError(t, err)
		assert.LessOrEqual(t, score, sa.BestScore+1e-9)
	}
}

func TestEnumeratorOddTeams(t *testing.T) {
	ts, d := teams(t, 3, 7)
	best, _, err := NewEnumerator(0, schedule.ByeReturnHome).Solve(context.Background(), ts, d, validate.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 6, best.Len())
	ok, vs := validate.Structure(best)
	assert.True(t, ok, "%v", vs)
}

func TestEnumeratorInfeasible(t *testing.T) {
	ts, d := teams(t, 2, 1)
	e := NewEnumerator(0, schedule.ByeStay)
	_, _, err := e.Solve(context.Background(), ts, d, validate.DefaultConfig())
	assert.ErrorIs(t, err, ErrInfeasible)

	cfg := validate.DefaultConfig()
	cfg.AllowRepeaters = true
	s, score, err := e.Solve(context.Background(), ts, d, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.InDelta(t, 4*d[0][1], score, 1e-9)
}

func TestEnumeratorHonoursContext(t *testing.T) {
	ts, d := teams(t, 6, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewEnumerator(6, schedule.ByeStay).Solve(ctx, ts, d, validate.DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewEnumerator(0, schedule.ByeStay), Missing{SolverName: "cpsat", Why: "no CP-SAT backend"})

	caps := r.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, Capability{Name: "cpsat", Reason: "no CP-SAT backend"}, caps[0])
	assert.Equal(t, Capability{Name: "enumerate", Available: true, MaxTeams: 4}, caps[1])

	_, err := r.Lookup("cpsat")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = r.Lookup("gurobi")
	assert.ErrorIs(t, err, ErrUnavailable)

	ts, d := teams(t, 6, 1)
	_, _, err = r.Solve(context.Background(), "enumerate", ts, d, validate.DefaultConfig())
	assert.ErrorIs(t, err, ErrTooLarge)
	_, _, err = NewEnumerator(4, schedule.ByeStay).Solve(context.Background(), ts, d, validate.DefaultConfig())
	assert.ErrorIs(t, err, ErrTooLarge)

	ts, d = teams(t, 4, 1)
	s, _, err := r.Solve(context.Background(), "enumerate", ts, d, validate.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 6, s.Len())
}
