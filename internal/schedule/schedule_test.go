package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/geo"
)

func teamsN(n int) []geo.Team {
	ts := make([]geo.Team, n)
	for i := range ts {
		ts[i] = geo.Team{ID: i}
	}
	return ts
}

func TestGenerateEvenShapeAndCoverage(t *testing.T) {
	for n := 2; n <= 12; n += 2 {
		s, err := Generate(n)
		require.NoError(t, err)
		require.Equal(t, 2*(n-1), s.Len(), "n=%d", n)

		seen := map[Match]int{}
		for ri := 0; ri < s.Len(); ri++ {
			r := s.Round(ri)
			present := make([]int, n)
			for i := 0; i < r.Len(); i++ {
				m := r.At(i)
				require.False(t, m.IsBye(), "even n has no byes")
				present[m.Home]++
				present[m.Away]++
				seen[m]++
			}
			for id, c := range present {
				assert.Equal(t, 1, c, "n=%d round %d team %d", n, ri, id)
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				assert.Equal(t, 1, seen[Match{Home: i, Away: j}], "n=%d pair (%d,%d)", n, i, j)
			}
		}
	}
}

func TestGenerateOddUsesOneByePerRound(t *testing.T) {
	for _, n := range []int{3, 5, 7} {
		s, err := Generate(n)
		require.NoError(t, err)
		require.Equal(t, 2*n, s.Len())
		byes := make([]int, n)
		for ri := 0; ri < s.Len(); ri++ {
			r := s.Round(ri)
			require.Equal(t, EntriesPerRound(n), r.Len())
			nb := 0
			for i := 0; i < r.Len(); i++ {
				if m := r.At(i); m.IsBye() {
					nb++
					byes[m.Resting()]++
				}
			}
			assert.Equal(t, 1, nb)
			for id := 0; id < n; id++ {
				assert.True(t, r.Contains(id))
			}
		}
		for id, c := range byes {
			assert.Equal(t, 2, c, "team %d rests once per leg", id)
		}
	}
}

func TestGenerateRejectsTinyN(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := Generate(n)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestEvaluateTwoTeams(t *testing.T) {
	s := FromMatches(2, [][]Match{{{Home: 0, Away: 1}}})
	res, err := Evaluate(s, teamsN(2), geo.Matrix{{0, 100}, {100, 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 200}, res.PerTeam)
	assert.Equal(t, 200.0, res.Total)
}

func TestEvaluateAllHomeIsZero(t *testing.T) {
	n := 4
	rows := make([][]Match, 3)
	for r := range rows {
		for id := 0; id < n; id++ {
			rows[r] = append(rows[r], Match{Home: id, Away: Bye})
		}
	}
	d := geo.Matrix{{0, 1, 2, 3}, {1, 0, 4, 5}, {2, 4, 0, 6}, {3, 5, 6, 0}}
	for _, p := range []ByePolicy{ByeStay, ByeReturnHome} {
		res, err := Evaluate(FromMatches(n, rows), teamsN(n), d, WithByePolicy(p))
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	}
}

// Two tight pairs (5 km) far from each other (500 km): a schedule that
// chains both trips to the other pair must beat the baseline.
func TestEvaluateClusteredBeatsBaseline(t *testing.T) {
	const near, far = 5.0, 500.0
	d := geo.Matrix{
		{0, near, far, far},
		{near, 0, far, far},
		{far, far, 0, near},
		{far, far, near, 0},
	}
	base, err := Generate(4)
	require.NoError(t, err)
	baseRes, err := Evaluate(base, teamsN(4), d)
	require.NoError(t, err)

	clustered := FromMatches(4, [][]Match{
		{{Home: 2, Away: 0}, {Home: 3, Away: 1}},
		{{Home: 3, Away: 0}, {Home: 2, Away: 1}},
		{{Home: 0, Away: 2}, {Home: 1, Away: 3}},
		{{Home: 0, Away: 3}, {Home: 1, Away: 2}},
		{{Home: 0, Away: 1}, {Home: 2, Away: 3}},
		{{Home: 1, Away: 0}, {Home: 3, Away: 2}},
	})
	clRes, err := Evaluate(clustered, teamsN(4), d)
	require.NoError(t, err)

	assert.InDelta(t, 6035, baseRes.Total, 1e-9)
	assert.InDelta(t, 4055, clRes.Total, 1e-9)
	assert.Greater(t, baseRes.Total, clRes.Total)
}

// Team 0 is away at 1, rests, then plays away at 2. The two bye readings
// price the middle round differently.
func TestEvaluateByePolicies(t *testing.T) {
	d := geo.Matrix{
		{0, 10, 30},
		{10, 0, 25},
		{30, 25, 0},
	}
	s := FromMatches(3, [][]Match{
		{{Home: 1, Away: 0}, {Home: 2, Away: Bye}},
		{{Home: 0, Away: Bye}, {Home: 1, Away: 2}},
		{{Home: 2, Away: 0}, {Home: 1, Away: Bye}},
	})

	stay, err := Evaluate(s, teamsN(3), d)
	require.NoError(t, err)
	assert.Equal(t, 65.0, stay.PerTeam[0]) // 10 + 25 + 30
	assert.Equal(t, 50.0, stay.PerTeam[2])
	assert.Equal(t, 115.0, stay.Total)

	home, err := Evaluate(s, teamsN(3), d, WithByePolicy(ByeReturnHome))
	require.NoError(t, err)
	assert.Equal(t, 80.0, home.PerTeam[0]) // 10 + 10 + 30 + 30
	assert.Equal(t, 130.0, home.Total)
}

func TestNewEvaluatorRejectsMismatch(t *testing.T) {
	_, err := NewEvaluator(teamsN(3), geo.Matrix{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewEvaluator(teamsN(2), geo.Matrix{{0, 1}, {2, 0}})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewEvaluator([]geo.Team{{ID: 1}, {ID: 0}}, geo.Matrix{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrConfig)

	s, _ := Generate(4)
	_, err = Evaluate(s, teamsN(2), geo.Matrix{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestWithRoundSharesUntouchedRounds(t *testing.T) {
	s, err := Generate(6)
	require.NoError(t, err)
	before := s.Matches()

	r := s.Round(0).WithMatch(0, s.Round(0).At(0).Flip())
	t2 := s.WithRound(0, r)

	assert.Equal(t, before, s.Matches(), "source schedule unchanged")
	assert.NotEqual(t, s.Round(0).At(0), t2.Round(0).At(0))
	for i := 1; i < s.Len(); i++ {
		assert.Same(t, &s.rounds[i].matches[0], &t2.rounds[i].matches[0], "round %d shared", i)
	}

	sw := s.SwapRounds(1, 2)
	assert.Same(t, &s.rounds[1].matches[0], &sw.rounds[2].matches[0])
	assert.True(t, s.Equal(s.SwapRounds(1, 2).SwapRounds(1, 2)))
}

func TestAccessorsReturnCopies(t *testing.T) {
	s, err := Generate(4)
	require.NoError(t, err)
	ms := s.Round(0).Matches()
	ms[0] = Match{Home: 3, Away: 3}
	assert.NotEqual(t, ms[0], s.Round(0).At(0))

	table := s.Matches()
	table[1][0] = Match{}
	assert.NotEqual(t, table[1][0], s.Round(1).At(0))
}

func TestScheduleJSON(t *testing.T) {
	s, err := Generate(5)
	require.NoError(t, err)
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"teams":5`)

	var back Schedule
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, s.Equal(back))
}

func TestParseByePolicy(t *testing.T) {
	p, err := ParseByePolicy("home")
	require.NoError(t, err)
	assert.Equal(t, ByeReturnHome, p)
	p, err = ParseByePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ByeStay, p)
	_, err = ParseByePolicy("sideline")
	assert.ErrorIs(t, err, ErrConfig)
}
