package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/schedule"
)

func m(h, a int) schedule.Match { return schedule.Match{Home: h, Away: a} }

func TestBaselinePassesDefaultSuite(t *testing.T) {
	suite, err := NewSuite(DefaultConfig())
	require.NoError(t, err)
	for n := 3; n <= 12; n++ {
		s, err := schedule.Generate(n)
		require.NoError(t, err)
		ok, vs := suite.Validate(s)
		assert.True(t, ok, "n=%d: %v", n, vs)
		assert.True(t, suite.Accept(s))
		ok, _ = PairCoverage(s)
		assert.True(t, ok)
	}
}

func TestTwoTeamBaselineRepeats(t *testing.T) {
	s, err := schedule.Generate(2)
	require.NoError(t, err)
	ok, vs := Repeaters(s)
	assert.False(t, ok)
	require.Len(t, vs, 1)
	assert.Equal(t, 0, *vs[0].Round)
}

func TestMaxConsecutiveAwayOnePerRun(t *testing.T) {
	s := schedule.FromMatches(2, [][]schedule.Match{
		{m(0, 1)}, {m(0, 1)},
		{m(1, 0)}, {m(1, 0)}, {m(1, 0)}, {m(1, 0)},
		{m(0, 1)},
	})

	ok, vs := MaxConsecutiveAway(s, 3)
	assert.False(t, ok)
	require.Len(t, vs, 1)
	assert.Equal(t, KindConsecutiveAway, vs[0].Kind)
	assert.Equal(t, 0, *vs[0].Team)
	assert.Equal(t, 2, *vs[0].Round)

	ok, vs = MaxConsecutiveAway(s, 4)
	assert.True(t, ok)
	assert.Empty(t, vs)

	_, vs = MaxConsecutiveAway(s, 1)
	require.Len(t, vs, 2)
	starts := map[int]int{}
	for _, v := range vs {
		starts[*v.Team] = *v.Round
	}
	assert.Equal(t, map[int]int{0: 2, 1: 0}, starts)
}

func TestByeBreaksAwayRun(t *testing.T) {
	bye := schedule.Bye
	s := schedule.FromMatches(3, [][]schedule.Match{
		{m(1, 0), m(2, bye)},
		{m(2, 0), m(1, bye)},
		{m(0, bye), m(1, 2)},
		{m(1, 0), m(2, bye)},
	})
	ok, _ := MaxConsecutiveAway(s, 2)
	assert.True(t, ok)
	_, vs := MaxConsecutiveAway(s, 1)
	require.Len(t, vs, 1)
	assert.Equal(t, 0, *vs[0].Team)
	assert.Equal(t, 0, *vs[0].Round)
}

func TestRepeaters(t *testing.T) {
	adjacent := schedule.FromMatches(4, [][]schedule.Match{
		{m(0, 1), m(2, 3)},
		{m(1, 0), m(3, 2)},
	})
	ok, vs := Repeaters(adjacent)
	assert.False(t, ok)
	require.Len(t, vs, 2)
	for _, v := range vs {
		assert.Equal(t, KindRepeater, v.Kind)
		assert.Equal(t, 0, *v.Round)
	}
	assert.ElementsMatch(t, []int{0, 2}, []int{*vs[0].Team, *vs[1].Team})

	apart := schedule.FromMatches(4, [][]schedule.Match{
		{m(0, 1), m(2, 3)},
		{m(0, 2), m(1, 3)},
		{m(1, 0), m(3, 2)},
	})
	ok, vs = Repeaters(apart)
	assert.True(t, ok)
	assert.Empty(t, vs)
}

func TestHomeAwayBalance(t *testing.T) {
	s := schedule.FromMatches(2, [][]schedule.Match{{m(0, 1)}, {m(0, 1)}, {m(0, 1)}})
	ok, vs := HomeAwayBalance(s, 1)
	assert.False(t, ok)
	assert.Len(t, vs, 2)
	ok, _ = HomeAwayBalance(s, 3)
	assert.True(t, ok)
}

func TestStructure(t *testing.T) {
	base, err := schedule.Generate(4)
	require.NoError(t, err)
	ok, vs := Structure(base)
	require.True(t, ok, "%v", vs)

	cases := map[string]schedule.Schedule{
		"short":        schedule.New(4, base.Rounds()[:5]),
		"duplicate":    base.WithRound(0, schedule.NewRound(m(0, 3), m(0, 2))),
		"self":         base.WithRound(1, schedule.NewRound(m(1, 1), m(0, 2))),
		"out of range": base.WithRound(2, schedule.NewRound(m(0, 4), m(1, 2))),
		"extra entry":  base.WithRound(3, schedule.NewRound(m(0, 3), m(1, 2), m(2, 1))),
		"bye vs bye":   base.WithRound(4, schedule.NewRound(m(schedule.Bye, schedule.Bye), m(1, 2))),
		"too few":      schedule.New(1, nil),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			ok, vs := Structure(s)
			assert.False(t, ok)
			require.NotEmpty(t, vs)
			for _, v := range vs {
				assert.Equal(t, KindStructural, v.Kind)
			}
		})
	}
}

func TestPairCoverage(t *testing.T) {
	base, err := schedule.Generate(4)
	require.NoError(t, err)
	flipped := base.WithRound(0, base.Round(0).WithMatch(0, base.Round(0).At(0).Flip()))

	ok, vs := PairCoverage(flipped)
	assert.False(t, ok)
	assert.Len(t, vs, 2)

	// Structure alone does not see a double-booked pair.
	ok, _ = Structure(flipped)
	assert.True(t, ok)
}

func TestSuite(t *testing.T) {
	_, err := NewSuite(Config{MaxConsecutiveAway: -1})
	assert.ErrorIs(t, err, schedule.ErrConfig)
	_, err = NewSuite(Config{MaxConsecutiveAway: 3, BalanceTolerance: -1})
	assert.ErrorIs(t, err, schedule.ErrConfig)

	base, err := schedule.Generate(4)
	require.NoError(t, err)
	flipped := base.WithRound(0, base.Round(0).WithMatch(0, base.Round(0).At(0).Flip()))

	suite, err := NewSuite(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, suite.Accept(flipped))
	ok, vs := suite.Validate(flipped)
	assert.False(t, ok)
	kinds := map[Kind]bool{}
	for _, v := range vs {
		kinds[v.Kind] = true
	}
	assert.True(t, kinds[KindBalance])
	assert.False(t, kinds[KindStructural], "pair coverage is opt-in")

	strict, err := NewSuite(Config{MaxConsecutiveAway: 3, BalanceTolerance: 1, RequirePairCoverage: true})
	require.NoError(t, err)
	_, vs = strict.Validate(flipped)
	kinds = map[Kind]bool{}
	for _, v := range vs {
		kinds[v.Kind] = true
	}
	assert.True(t, kinds[KindStructural])

	two, err := schedule.Generate(2)
	require.NoError(t, err)
	lax, err := NewSuite(Config{MaxConsecutiveAway: 3, BalanceTolerance: 1, AllowRepeaters: true})
	require.NoError(t, err)
	assert.True(t, lax.Accept(two))
	assert.False(t, suite.Accept(two))
}
