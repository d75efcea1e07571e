// Package geo supplies teams with stadium coordinates and the pairwise
// distance matrix consumed by the scheduling core.
package geo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// kmPerDegree approximates the length of one degree of latitude.
const kmPerDegree = 111.0

// ErrInvalidMatrix reports a distance matrix that breaks the N×N,
// symmetric, zero-diagonal, non-negative contract.
var ErrInvalidMatrix = errors.New("invalid distance matrix")

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Team is a club with a home stadium. IDs are dense: 0..N-1.
type Team struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Site returns the team's stadium location.
func (t Team) Site() Point { return Point{Lat: t.Lat, Lon: t.Lon} }

// DefaultCenter is San Francisco, CA.
var DefaultCenter = Point{Lat: 37.7749, Lon: -122.4194}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// GenerateTeams places n teams uniformly inside a ±spreadKm box around
// center. All randomness comes from rng so a seed reproduces the layout.
func GenerateTeams(rng *rand.Rand, n int, center Point, spreadKm float64) ([]Team, error) {
	if n <= 0 {
		return nil, fmt.Errorf("team count must be positive, got %d", n)
	}
	if spreadKm < 0 || math.IsNaN(spreadKm) {
		return nil, fmt.Errorf("spread must be >= 0, got %v", spreadKm)
	}
	lonScale := kmPerDegree * math.Cos(center.Lat*math.Pi/180)
	teams := make([]Team, n)
	for i := range teams {
		dx := (rng.Float64()*2 - 1) * spreadKm
		dy := (rng.Float64()*2 - 1) * spreadKm
		teams[i] = Team{
			ID:   i,
			Name: fmt.Sprintf("Team%d", i+1),
			Lat:  center.Lat + dy/kmPerDegree,
			Lon:  center.Lon + dx/lonScale,
		}
	}
	return teams, nil
}

// Matrix is a square table of distances indexed by team id.
type Matrix [][]float64

// DistanceMatrix computes the haversine matrix for teams.
func DistanceMatrix(teams []Team) Matrix {
	n := len(teams)
	d := make(Matrix, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := Haversine(teams[i].Lat, teams[i].Lon, teams[j].Lat, teams[j].Lon)
			d[i][j] = v
			d[j][i] = v
		}
	}
	return d
}

// symTolerance absorbs float noise when checking symmetry.
const symTolerance = 1e-9

// Validate checks the matrix contract. The returned error wraps
// ErrInvalidMatrix.
func (m Matrix) Validate() error {
	n := len(m)
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
	}
	for i := 0; i < n; i++ {
		if m[i][i] != 0 {
			return fmt.Errorf("%w: diagonal [%d][%d]=%v", ErrInvalidMatrix, i, i, m[i][i])
		}
		for j := 0; j < n; j++ {
			v := m[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: [%d][%d]=%v", ErrInvalidMatrix, i, j, v)
			}
			if math.Abs(v-m[j][i]) > symTolerance {
				return fmt.Errorf("%w: [%d][%d]=%v but [%d][%d]=%v", ErrInvalidMatrix, i, j, v, j, i, m[j][i])
			}
		}
	}
	return nil
}

// Len returns the matrix dimension.
func (m Matrix) Len() int { return len(m) }
