package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude along a meridian.
	d := Haversine(0, 0, 1, 0)
	assert.InDelta(t, 111.19, d, 0.01)
	assert.Zero(t, Haversine(37.7, -122.4, 37.7, -122.4))
}

func TestGenerateTeamsSeeded(t *testing.T) {
	a, err := GenerateTeams(rand.New(rand.NewSource(42)), 6, DefaultCenter, 20)
	require.NoError(t, err)
	b, err := GenerateTeams(rand.New(rand.NewSource(42)), 6, DefaultCenter, 20)
	require.NoError(t, err)
	require.Equal(t, a, b)

	for i, tm := range a {
		assert.Equal(t, i, tm.ID)
		assert.LessOrEqual(t, math.Abs(tm.Lat-DefaultCenter.Lat), 20/kmPerDegree+1e-9)
	}
}

func TestGenerateTeamsRejectsBadInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := GenerateTeams(rng, 0, DefaultCenter, 20)
	assert.Error(t, err)
	_, err = GenerateTeams(rng, 3, DefaultCenter, -1)
	assert.Error(t, err)
}

func TestDistanceMatrixContract(t *testing.T) {
	teams, err := GenerateTeams(rand.New(rand.NewSource(7)), 5, DefaultCenter, 50)
	require.NoError(t, err)
	d := DistanceMatrix(teams)
	require.NoError(t, d.Validate())
	assert.Equal(t, 5, d.Len())
	for i := range d {
		assert.Zero(t, d[i][i])
		for j := range d {
			assert.Equal(t, d[i][j], d[j][i])
		}
	}
}

func TestMatrixValidate(t *testing.T) {
	cases := map[string]Matrix{
		"ragged":     {{0, 1}, {1}},
		"diagonal":   {{1, 1}, {1, 0}},
		"negative":   {{0, -1}, {-1, 0}},
		"asymmetric": {{0, 1}, {2, 0}},
		"nan":        {{0, math.NaN()}, {math.NaN(), 0}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, m.Validate(), ErrInvalidMatrix)
		})
	}
	assert.NoError(t, Matrix{{0, 3}, {3, 0}}.Validate())
}
