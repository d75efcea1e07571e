package exact

import (
	"context"
	"fmt"
	"math"

	"tourney/internal/geo"
	"tourney/internal/schedule"
	"tourney/internal/validate"
)

// DefaultEnumeratorLimit is the largest N the enumerator accepts unless
// configured otherwise.
const DefaultEnumeratorLimit = 4

// cancelEvery is how many search nodes pass between context checks.
const cancelEvery = 1 << 10

// Enumerator is a depth-first branch and bound over whole rounds. Each
// level picks one perfect matching with venues; partial tours are pruned on
// pair reuse, away runs, repeaters and accrued travel against the best
// complete schedule so far.
type Enumerator struct {
	Limit int
	Bye   schedule.ByePolicy
}

func NewEnumerator(limit int, bye schedule.ByePolicy) *Enumerator {
	if limit <= 0 {
		limit = DefaultEnumeratorLimit
	}
	return &Enumerator{Limit: limit, Bye: bye}
}

func (e *Enumerator) Name() string    { return "enumerate" }
func (e *Enumerator) Available() bool { return true }
func (e *Enumerator) MaxTeams() int   { return e.Limit }

func (e *Enumerator) Solve(ctx context.Context, teams []geo.Team, dist geo.Matrix, cfg validate.Config) (schedule.Schedule, float64, error) {
	n := len(teams)
	if n > e.Limit {
		return schedule.Schedule{}, 0, fmt.Errorf("%w: enumerate handles up to %d teams, got %d", ErrTooLarge, e.Limit, n)
	}
	if err := cfg.Check(); err != nil {
		return schedule.Schedule{}, 0, err
	}
	ev, err := schedule.NewEvaluator(teams, dist, schedule.WithByePolicy(e.Bye))
	if err != nil {
		return schedule.Schedule{}, 0, err
	}

	b := &bnb{
		ctx:    ctx,
		n:      n,
		dist:   dist,
		cfg:    cfg,
		bye:    e.Bye,
		cands:  roundCandidates(n),
		rounds: schedule.ExpectedRounds(n),
		best:   math.Inf(1),
	}
	b.init()
	b.dfs(0, 0)
	if b.err != nil {
		return schedule.Schedule{}, 0, b.err
	}
	if b.bestPlan == nil {
		return schedule.Schedule{}, 0, ErrInfeasible
	}
	rs := make([]schedule.Round, len(b.bestPlan))
	for i, c := range b.bestPlan {
		rs[i] = schedule.NewRound(b.cands[c]...)
	}
	s := schedule.New(n, rs)
	return s, ev.Total(s), nil
}

type bnb struct {
	ctx    context.Context
	n      int
	dist   geo.Matrix
	cfg    validate.Config
	bye    schedule.ByePolicy
	cands  [][]schedule.Match
	rounds int

	used  [][]bool
	pos   [][]int // per depth
	run   [][]int // per depth
	home  []int
	away  []int
	plan  []int
	nodes int

	best     float64
	bestPlan []int
	err      error
}

func (b *bnb) init() {
	b.used = make([][]bool, b.n)
	for i := range b.used {
		b.used[i] = make([]bool, b.n)
	}
	b.pos = make([][]int, b.rounds+1)
	b.run = make([][]int, b.rounds+1)
	for d := range b.pos {
		b.pos[d] = make([]int, b.n)
		b.run[d] = make([]int, b.n)
	}
	for t := 0; t < b.n; t++ {
		b.pos[0][t] = t
	}
	b.home = make([]int, b.n)
	b.away = make([]int, b.n)
	b.plan = make([]int, b.rounds)
}

func (b *bnb) dfs(depth int, cost float64) {
	if b.err != nil {
		return
	}
	b.nodes++
	if b.nodes%cancelEvery == 0 {
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return
		}
	}
	if depth == b.rounds {
		b.leaf(cost)
		return
	}
	for ci, ms := range b.cands {
		if !b.fits(depth, ms) {
			continue
		}
		next, ok := b.apply(depth, ms, cost)
		if ok && next < b.best {
			b.plan[depth] = ci
			b.mark(ms, true)
			b.dfs(depth+1, next)
			b.mark(ms, false)
		}
		b.unapply(ms)
	}
}

// fits checks pair reuse and, unless allowed, a repeater against the
// previous round.
func (b *bnb) fits(depth int, ms []schedule.Match) bool {
	for _, m := range ms {
		if m.IsBye() {
			continue
		}
		if b.used[m.Home][m.Away] {
			return false
		}
	}
	if depth == 0 || b.cfg.AllowRepeaters {
		return true
	}
	for _, p := range b.cands[b.plan[depth-1]] {
		if p.IsBye() {
			continue
		}
		for _, m := range ms {
			if m.Home == p.Away && m.Away == p.Home {
				return false
			}
		}
	}
	return true
}

// apply moves every team for round depth, writing into depth+1. It reports
// false when an away run grows past the limit.
func (b *bnb) apply(depth int, ms []schedule.Match, cost float64) (float64, bool) {
	pos, run := b.pos[depth+1], b.run[depth+1]
	copy(pos, b.pos[depth])
	copy(run, b.run[depth])
	ok := true
	for _, m := range ms {
		if m.IsBye() {
			t := m.Resting()
			run[t] = 0
			if b.bye == schedule.ByeReturnHome && pos[t] != t {
				cost += b.dist[pos[t]][t]
				pos[t] = t
			}
			continue
		}
		h, a := m.Home, m.Away
		b.home[h]++
		b.away[a]++
		if pos[h] != h {
			cost += b.dist[pos[h]][h]
			pos[h] = h
		}
		run[h] = 0
		cost += b.dist[pos[a]][h]
		pos[a] = h
		run[a]++
		if run[a] > b.cfg.MaxConsecutiveAway {
			ok = false
		}
	}
	return cost, ok
}

func (b *bnb) unapply(ms []schedule.Match) {
	for _, m := range ms {
		if m.IsBye() {
			continue
		}
		b.home[m.Home]--
		b.away[m.Away]--
	}
}

func (b *bnb) mark(ms []schedule.Match, v bool) {
	for _, m := range ms {
		if !m.IsBye() {
			b.used[m.Home][m.Away] = v
		}
	}
}

func (b *bnb) leaf(cost float64) {
	pos := b.pos[b.rounds]
	for t := 0; t < b.n; t++ {
		d := b.home[t] - b.away[t]
		if d < 0 {
			d = -d
		}
		if d > b.cfg.BalanceTolerance {
			return
		}
		if pos[t] != t {
			cost += b.dist[pos[t]][t]
		}
	}
	if cost < b.best {
		b.best = cost
		b.bestPlan = append(b.bestPlan[:0], b.plan...)
	}
}

// roundCandidates lists every legal round for n teams: each perfect
// matching of the slots (a phantom slot for odd n) with every venue choice.
func roundCandidates(n int) [][]schedule.Match {
	slots := n
	if n%2 == 1 {
		slots++
	}
	var matchings [][][2]int
	var rec func(free []int, acc [][2]int)
	rec = func(free []int, acc [][2]int) {
		if len(free) == 0 {
			matchings = append(matchings, append([][2]int(nil), acc...))
			return
		}
		a := free[0]
		for i := 1; i < len(free); i++ {
			rest := make([]int, 0, len(free)-2)
			rest = append(rest, free[1:i]...)
			rest = append(rest, free[i+1:]...)
			rec(rest, append(acc, [2]int{a, free[i]}))
		}
	}
	all := make([]int, slots)
	for i := range all {
		all[i] = i
	}
	rec(all, nil)

	var out [][]schedule.Match
	for _, pm := range matchings {
		var orient func(i int, acc []schedule.Match)
		orient = func(i int, acc []schedule.Match) {
			if i == len(pm) {
				out = append(out, append([]schedule.Match(nil), acc...))
				return
			}
			a, c := pm[i][0], pm[i][1]
			if c >= n { // phantom
				orient(i+1, append(acc, schedule.Match{Home: a, Away: schedule.Bye}))
				return
			}
			orient(i+1, append(acc, schedule.Match{Home: a, Away: c}))
			orient(i+1, append(acc, schedule.Match{Home: c, Away: a}))
		}
		orient(0, nil)
	}
	return out
}
