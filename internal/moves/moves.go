// Package moves implements the neighbourhood operators of the local search.
// Each operator returns a new schedule and leaves its input untouched; an
// operator that cannot apply reports Legal=false and hands back the input.
package moves

import (
	"fmt"

	"tourney/internal/schedule"
)

// Outcome is the result of applying a move.
type Outcome struct {
	Schedule schedule.Schedule
	Legal    bool
}

func illegal(s schedule.Schedule) Outcome { return Outcome{Schedule: s} }

// Kind names a move operator.
type Kind string

const (
	KindSwapRounds   Kind = "swap_rounds"
	KindSwapMatches  Kind = "swap_matches"
	KindFlipVenue    Kind = "flip_venue"
	KindSwapPairings Kind = "swap_pairings"
)

// Defaults is the move set used when a search names none.
var Defaults = []Kind{KindSwapRounds, KindSwapMatches, KindFlipVenue}

// ParseKind checks a move name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSwapRounds, KindSwapMatches, KindFlipVenue, KindSwapPairings:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown move %q", schedule.ErrConfig, s)
}

func roundOK(s schedule.Schedule, r int) bool { return r >= 0 && r < s.Len() }

func entryOK(s schedule.Schedule, r, i int) bool {
	return roundOK(s, r) && i >= 0 && i < s.Round(r).Len()
}

// SwapRounds exchanges two rounds. The rounds themselves are shared.
func SwapRounds(s schedule.Schedule, r1, r2 int) Outcome {
	if !roundOK(s, r1) || !roundOK(s, r2) {
		return illegal(s)
	}
	return Outcome{Schedule: s.SwapRounds(r1, r2), Legal: true}
}

// SwapMatches exchanges entry i1 of round r1 with entry i2 of round r2.
// It is illegal when r1 == r2 or when either round would then hold a team
// twice.
func SwapMatches(s schedule.Schedule, r1, i1, r2, i2 int) Outcome {
	return SwapPairings(s, r1, r2, []Pair{{First: i1, Second: i2}})
}

// FlipVenue swaps home and away of one match. Bye entries cannot flip.
func FlipVenue(s schedule.Schedule, r, i int) Outcome {
	if !entryOK(s, r, i) {
		return illegal(s)
	}
	round := s.Round(r)
	m := round.At(i)
	if m.IsBye() {
		return illegal(s)
	}
	return Outcome{Schedule: s.WithRound(r, round.WithMatch(i, m.Flip())), Legal: true}
}

// Pair links entry First of one round with entry Second of another.
type Pair struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// SwapPairings swaps several entries between rounds r1 and r2 at once. The
// batch is checked as a whole: a repeated index, an index out of range or a
// duplicate team in either resulting round rejects every swap.
func SwapPairings(s schedule.Schedule, r1, r2 int, pairs []Pair) Outcome {
	if len(pairs) == 0 || r1 == r2 || !roundOK(s, r1) || !roundOK(s, r2) {
		return illegal(s)
	}
	a, b := s.Round(r1).Matches(), s.Round(r2).Matches()
	usedA := make(map[int]bool, len(pairs))
	usedB := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		if p.First < 0 || p.First >= len(a) || p.Second < 0 || p.Second >= len(b) {
			return illegal(s)
		}
		if usedA[p.First] || usedB[p.Second] {
			return illegal(s)
		}
		usedA[p.First], usedB[p.Second] = true, true
	}
	for _, p := range pairs {
		a[p.First], b[p.Second] = b[p.Second], a[p.First]
	}
	if hasDuplicate(a, s.NumTeams()) || hasDuplicate(b, s.NumTeams()) {
		return illegal(s)
	}
	out := s.WithRound(r1, schedule.NewRound(a...)).WithRound(r2, schedule.NewRound(b...))
	return Outcome{Schedule: out, Legal: true}
}

func hasDuplicate(ms []schedule.Match, n int) bool {
	seen := make([]bool, n)
	for _, m := range ms {
		for _, id := range []int{m.Home, m.Away} {
			if id < 0 || id >= n {
				continue
			}
			if seen[id] {
				return true
			}
			seen[id] = true
		}
	}
	return false
}
