// Package exact hosts optional exact solvers behind a capability check.
// Solvers are registered at startup; callers look them up by name and get
// ErrUnavailable or ErrTooLarge instead of a silent fallback.
package exact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"tourney/internal/geo"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

var (
	ErrUnavailable = errors.New("exact solver unavailable")
	ErrTooLarge    = errors.New("instance too large for exact solver")
	ErrInfeasible  = errors.New("no schedule satisfies the constraints")
)

// Solver produces a schedule together with its travel total.
type Solver interface {
	Name() string
	Available() bool
	MaxTeams() int
	Solve(ctx context.Context, teams []geo.Team, dist geo.Matrix, cfg validate.Config) (schedule.Schedule, float64, error)
}

// Capability is what a registry advertises about one solver.
type Capability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	MaxTeams  int    `json:"maxTeams"`
	Reason    string `json:"reason,omitempty"`
}

type reasoner interface{ Reason() string }

// Registry maps solver names to implementations.
type Registry struct {
	mu      sync.RWMutex
	solvers map[string]Solver
}

func NewRegistry(solvers ...Solver) *Registry {
	r := &Registry{solvers: map[string]Solver{}}
	for _, s := range solvers {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any solver with the same name.
func (r *Registry) Register(s Solver) {
	r.mu.Lock()
	r.solvers[s.Name()] = s
	r.mu.Unlock()
}

// Capabilities lists every registered solver sorted by name.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.solvers))
	for _, s := range r.solvers {
		c := Capability{Name: s.Name(), Available: s.Available(), MaxTeams: s.MaxTeams()}
		if rs, ok := s.(reasoner); ok {
			c.Reason = rs.Reason()
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the named solver if it is registered and available.
func (r *Registry) Lookup(name string) (Solver, error) {
	r.mu.RLock()
	s, ok := r.solvers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrUnavailable, name)
	}
	if !s.Available() {
		return nil, fmt.Errorf("%w: %q", ErrUnavailable, name)
	}
	return s, nil
}

// Solve looks up name and runs it after checking the size limit.
func (r *Registry) Solve(ctx context.Context, name string, teams []geo.Team, dist geo.Matrix, cfg validate.Config) (schedule.Schedule, float64, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return schedule.Schedule{}, 0, err
	}
	if len(teams) > s.MaxTeams() {
		return schedule.Schedule{}, 0, fmt.Errorf("%w: %s handles up to %d teams, got %d", ErrTooLarge, name, s.MaxTeams(), len(teams))
	}
	return s.Solve(ctx, teams, dist, cfg)
}

// Missing stands in for a solver whose backend is not built into this
// binary. It is advertised but never available.
type Missing struct {
	SolverName string
	Why        string
}

func (m Missing) Name() string    { return m.SolverName }
func (m Missing) Available() bool { return false }
func (m Missing) MaxTeams() int   { return 0 }
func (m Missing) Reason() string  { return m.Why }

func (m Missing) Solve(context.Context, []geo.Team, geo.Matrix, validate.Config) (schedule.Schedule, float64, error) {
	return schedule.Schedule{}, 0, fmt.Errorf("%w: %s: %s", ErrUnavailable, m.SolverName, m.Why)
}
