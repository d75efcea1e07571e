package schedule

import (
	"fmt"

	"tourney/internal/geo"
)

// ByePolicy decides where a resting team spends its bye round.
type ByePolicy int

const (
	// ByeStay leaves the team where it is; no cost is added.
	ByeStay ByePolicy = iota
	// ByeReturnHome sends an away team home for the bye.
	ByeReturnHome
)

func (p ByePolicy) String() string {
	switch p {
	case ByeStay:
		return "stay"
	case ByeReturnHome:
		return "home"
	default:
		return fmt.Sprintf("ByePolicy(%d)", int(p))
	}
}

// ParseByePolicy maps "stay" / "home" to a policy. Empty means ByeStay.
func ParseByePolicy(s string) (ByePolicy, error) {
	switch s {
	case "", "stay":
		return ByeStay, nil
	case "home":
		return ByeReturnHome, nil
	}
	return ByeStay, fmt.Errorf("%w: unknown bye policy %q", ErrConfig, s)
}

// EvaluationResult is the travel cost of a schedule.
type EvaluationResult struct {
	PerTeam []float64 `json:"perTeam"`
	Total   float64   `json:"total"`
}

// EvaluatorOption tunes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithByePolicy selects the bye travel model.
func WithByePolicy(p ByePolicy) EvaluatorOption {
	return func(e *Evaluator) { e.bye = p }
}

// Evaluator scores schedules against a fixed distance matrix. It holds no
// mutable state and may be shared by concurrent searches.
type Evaluator struct {
	n    int
	dist geo.Matrix
	bye  ByePolicy
}

// NewEvaluator checks the team list and matrix once so that Evaluate can
// run in the search loop without re-validating.
func NewEvaluator(teams []geo.Team, dist geo.Matrix, opts ...EvaluatorOption) (*Evaluator, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 teams, got %d", ErrConfig, len(teams))
	}
	for i, t := range teams {
		if t.ID != i {
			return nil, fmt.Errorf("%w: team at index %d has id %d", ErrConfig, i, t.ID)
		}
	}
	if dist.Len() != len(teams) {
		return nil, fmt.Errorf("%w: matrix is %dx%d for %d teams", ErrConfig, dist.Len(), dist.Len(), len(teams))
	}
	if err := dist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	e := &Evaluator{n: len(teams), dist: dist}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// NumTeams returns the team count the evaluator was built for.
func (e *Evaluator) NumTeams() int { return e.n }

// ByePolicy returns the configured bye model.
func (e *Evaluator) ByePolicy() ByePolicy { return e.bye }

// Evaluate applies the sequential touring model: every team starts at home,
// walks the rounds in order (away rounds chain from site to site) and
// returns home after the last round. s must pass structural validation.
func (e *Evaluator) Evaluate(s Schedule) EvaluationResult {
	if s.n != e.n {
		panic(fmt.Sprintf("schedule: evaluating %d-team schedule with %d-team evaluator", s.n, e.n))
	}
	pos := make([]int, e.n)
	per := make([]float64, e.n)
	for t := range pos {
		pos[t] = t
	}
	for _, r := range s.rounds {
		for _, m := range r.matches {
			if m.IsBye() {
				t := m.Resting()
				if e.bye == ByeReturnHome && pos[t] != t {
					per[t] += e.dist[pos[t]][t]
					pos[t] = t
				}
				continue
			}
			h, a := m.Home, m.Away
			if pos[h] != h {
				per[h] += e.dist[pos[h]][h]
				pos[h] = h
			}
			per[a] += e.dist[pos[a]][h]
			pos[a] = h
		}
	}
	total := 0.0
	for t := range pos {
		if pos[t] != t {
			per[t] += e.dist[pos[t]][t]
		}
		total += per[t]
	}
	return EvaluationResult{PerTeam: per, Total: total}
}

// Total is Evaluate(s).Total.
func (e *Evaluator) Total(s Schedule) float64 { return e.Evaluate(s).Total }

// Evaluate scores s for a one-off caller. Searches should build an
// Evaluator once instead.
func Evaluate(s Schedule, teams []geo.Team, dist geo.Matrix, opts ...EvaluatorOption) (EvaluationResult, error) {
	e, err := NewEvaluator(teams, dist, opts...)
	if err != nil {
		return EvaluationResult{}, err
	}
	if s.n != e.n {
		return EvaluationResult{}, fmt.Errorf("%w: schedule has %d teams, evaluator %d", ErrConfig, s.n, e.n)
	}
	return e.Evaluate(s), nil
}
