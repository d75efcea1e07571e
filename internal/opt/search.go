// Package opt holds the local-search drivers: greedy hill climbing and
// simulated annealing over the move primitives. A search is synchronous,
// single-threaded and draws all randomness from a generator it owns, so a
// fixed seed reproduces the whole run.
package opt

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"tourney/internal/moves"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// improveEps keeps float noise from counting as progress.
const improveEps = 1e-6

type engine struct {
	ev       *schedule.Evaluator
	suite    *validate.Suite
	opts     Options
	kinds    []moves.Kind
	rng      *rand.Rand
	clock    Clock
	start    time.Time
	deadline time.Time
	log      SearchLog
}

func newEngine(s schedule.Schedule, ev *schedule.Evaluator, opts Options, algorithm string) (*engine, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil evaluator", schedule.ErrConfig)
	}
	suite, err := validate.NewSuite(opts.Constraints)
	if err != nil {
		return nil, err
	}
	if s.NumTeams() != ev.NumTeams() {
		return nil, &StructuralError{Violations: []validate.Violation{{
			Kind:    validate.KindStructural,
			Message: fmt.Sprintf("schedule has %d teams, evaluator %d", s.NumTeams(), ev.NumTeams()),
		}}}
	}
	if ok, vs := validate.Structure(s); !ok {
		return nil, &StructuralError{Violations: vs}
	}
	kinds := opts.Moves
	if len(kinds) == 0 {
		kinds = moves.Defaults
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	e := &engine{
		ev:    ev,
		suite: suite,
		opts:  opts,
		kinds: kinds,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		clock: clock,
		log: SearchLog{
			Algorithm:   algorithm,
			MoveSelects: make(map[moves.Kind]int, len(kinds)),
		},
	}
	e.start = clock()
	if opts.TimeBudget > 0 {
		e.deadline = e.start.Add(opts.TimeBudget)
	}
	return e, nil
}

func (e *engine) expired() bool {
	return !e.deadline.IsZero() && !e.clock().Before(e.deadline)
}

// propose draws a move and applies it to cur. It reports false when the
// move was illegal or the candidate failed the constraint gate.
func (e *engine) propose(cur schedule.Schedule) (schedule.Schedule, bool) {
	k := e.kinds[e.rng.Intn(len(e.kinds))]
	e.log.MoveSelects[k]++
	o := moves.Sample(e.rng, cur, k)
	if !o.Legal {
		e.log.Illegal++
		return cur, false
	}
	if e.opts.Validate && !e.suite.Accept(o.Schedule) {
		e.log.Invalid++
		return cur, false
	}
	return o.Schedule, true
}

func (e *engine) trace(it int, cur, best, temp float64) {
	if e.opts.TraceEvery > 0 && (it+1)%e.opts.TraceEvery == 0 {
		e.log.Trajectory = append(e.log.Trajectory, TracePoint{Iteration: it, Current: cur, Best: best, Temperature: temp})
	}
}

func (e *engine) finish(best schedule.Schedule, bestScore float64, iters int, stop string) Result {
	e.log.BestScore = bestScore
	e.log.Iterations = iters
	e.log.StopReason = stop
	e.log.Elapsed = e.clock().Sub(e.start)
	_, vs := e.suite.Validate(best)
	return Result{Best: best, BestScore: bestScore, Log: e.log, Violations: vs}
}

// HillClimb runs greedy local search from s. A candidate replaces the
// current schedule only if it is strictly shorter; the search stops after
// MaxIters iterations, after MaxNoImprove non-improving iterations in a
// row (when > 0), or once TimeBudget has elapsed.
func HillClimb(s schedule.Schedule, ev *schedule.Evaluator, opts Options) (Result, error) {
	if err := opts.check(); err != nil {
		return Result{}, err
	}
	e, err := newEngine(s, ev, opts, AlgorithmHillClimb)
	if err != nil {
		return Result{}, err
	}

	cur, curScore := s, ev.Total(s)
	best, bestScore := cur, curScore
	e.log.InitialScore = curScore

	stop := StopMaxIters
	noImprove := 0
	it := 0
	for ; it < opts.MaxIters; it++ {
		if opts.MaxNoImprove > 0 && noImprove >= opts.MaxNoImprove {
			stop = StopNoImprove
			break
		}
		if e.expired() {
			stop = StopTimeBudget
			break
		}
		improved := false
		if cand, ok := e.propose(cur); ok {
			if score := ev.Total(cand); score < curScore-improveEps {
				cur, curScore = cand, score
				e.log.Accepted++
				improved = true
				if score < bestScore-improveEps {
					e.log.Improvements = append(e.log.Improvements, Improvement{Iteration: it, Delta: bestScore - score})
					best, bestScore = cand, score
				}
			}
		}
		if improved {
			noImprove = 0
		} else {
			noImprove++
		}
		e.trace(it, curScore, bestScore, 0)
	}
	return e.finish(best, bestScore, it, stop), nil
}

// Anneal runs simulated annealing from s. Worse candidates are accepted
// with probability exp(-delta/T); T starts at T0 and is multiplied by
// Decay every DecayEvery iterations. The best schedule seen is tracked
// independently of the current one.
func Anneal(s schedule.Schedule, ev *schedule.Evaluator, opts AnnealOptions) (Result, error) {
	if err := opts.check(); err != nil {
		return Result{}, err
	}
	e, err := newEngine(s, ev, opts.Options, AlgorithmAnneal)
	if err != nil {
		return Result{}, err
	}
	every := opts.DecayEvery
	if every == 0 {
		every = 1
	}

	cur, curScore := s, ev.Total(s)
	best, bestScore := cur, curScore
	e.log.InitialScore = curScore

	temp := opts.T0
	stop := StopMaxIters
	it := 0
	for ; it < opts.MaxIters; it++ {
		if e.expired() {
			stop = StopTimeBudget
			break
		}
		if cand, ok := e.propose(cur); ok {
			score := ev.Total(cand)
			delta := score - curScore
			if metropolis(e.rng, delta, temp) {
				if delta > 0 {
					e.log.AcceptedWorse++
				}
				e.log.Accepted++
				cur, curScore = cand, score
			}
			if score < bestScore-improveEps {
				e.log.Improvements = append(e.log.Improvements, Improvement{Iteration: it, Delta: bestScore - score})
				best, bestScore = cand, score
			}
		}
		if (it+1)%every == 0 {
			temp *= opts.Decay
		}
		e.trace(it, curScore, bestScore, temp)
	}
	e.log.FinalTemperature = temp
	return e.finish(best, bestScore, it, stop), nil
}

// metropolis decides acceptance. A non-positive temperature or a
// probability that underflows to zero rejects without drawing.
func metropolis(rng *rand.Rand, delta, temp float64) bool {
	if delta < 0 {
		return true
	}
	if temp <= 0 {
		return false
	}
	p := math.Exp(-delta / temp)
	if p == 0 {
		return false
	}
	return rng.Float64() < p
}
