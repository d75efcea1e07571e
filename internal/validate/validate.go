// Package validate checks schedules for structural soundness and for the
// touring constraints: bounded away trips, no repeaters and home/away
// balance. Every check is read-only and reports all violations it finds.
package validate

import (
	"fmt"

	"tourney/internal/schedule"
)

// Kind classifies a violation.
type Kind string

const (
	KindStructural      Kind = "structural"
	KindConsecutiveAway Kind = "consecutive-away"
	KindRepeater        Kind = "repeater"
	KindBalance         Kind = "balance"
)

// Violation is one failed check. Team and Round are set when the check can
// pin the problem down.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Team    *int   `json:"team,omitempty"`
	Round   *int   `json:"round,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string { return string(v.Kind) + ": " + v.Message }

func intp(v int) *int { return &v }

// Structure checks ids, per-round entry counts, duplicates and the
// double round-robin length.
func Structure(s schedule.Schedule) (bool, []Violation) {
	n := s.NumTeams()
	if n < 2 {
		return false, []Violation{{Kind: KindStructural, Message: fmt.Sprintf("schedule has %d teams", n)}}
	}
	var out []Violation
	if want := schedule.ExpectedRounds(n); s.Len() != want {
		out = append(out, Violation{Kind: KindStructural,
			Message: fmt.Sprintf("schedule has %d rounds, want %d", s.Len(), want)})
	}
	perRound := schedule.EntriesPerRound(n)
	seen := make([]int, n)
	for ri := 0; ri < s.Len(); ri++ {
		r := s.Round(ri)
		if r.Len() != perRound {
			out = append(out, Violation{Kind: KindStructural, Round: intp(ri),
				Message: fmt.Sprintf("round %d has %d entries, want %d", ri, r.Len(), perRound)})
		}
		for i := range seen {
			seen[i] = 0
		}
		for i := 0; i < r.Len(); i++ {
			m := r.At(i)
			switch {
			case m.Home == schedule.Bye && m.Away == schedule.Bye:
				out = append(out, Violation{Kind: KindStructural, Round: intp(ri),
					Message: fmt.Sprintf("round %d entry %d has no team", ri, i)})
				continue
			case m.Home == m.Away:
				out = append(out, Violation{Kind: KindStructural, Team: intp(m.Home), Round: intp(ri),
					Message: fmt.Sprintf("round %d: team %d plays itself", ri, m.Home)})
				continue
			}
			for _, id := range []int{m.Home, m.Away} {
				if id == schedule.Bye {
					continue
				}
				if id < 0 || id >= n {
					out = append(out, Violation{Kind: KindStructural, Round: intp(ri),
						Message: fmt.Sprintf("round %d: team id %d out of range", ri, id)})
					continue
				}
				seen[id]++
				if seen[id] == 2 {
					out = append(out, Violation{Kind: KindStructural, Team: intp(id), Round: intp(ri),
						Message: fmt.Sprintf("round %d: team %d appears more than once", ri, id)})
				}
			}
		}
		for id, c := range seen {
			if c == 0 {
				out = append(out, Violation{Kind: KindStructural, Team: intp(id), Round: intp(ri),
					Message: fmt.Sprintf("round %d: team %d missing", ri, id)})
			}
		}
	}
	return len(out) == 0, out
}

type slot uint8

const (
	slotNone slot = iota
	slotHome
	slotAway
)

// slots returns, per round, where each team plays. Byes and ids out of
// range are left as slotNone.
func slots(s schedule.Schedule) [][]slot {
	n := s.NumTeams()
	out := make([][]slot, s.Len())
	for ri := range out {
		row := make([]slot, n)
		r := s.Round(ri)
		for i := 0; i < r.Len(); i++ {
			m := r.At(i)
			if m.IsBye() {
				continue
			}
			if m.Home >= 0 && m.Home < n {
				row[m.Home] = slotHome
			}
			if m.Away >= 0 && m.Away < n {
				row[m.Away] = slotAway
			}
		}
		out[ri] = row
	}
	return out
}

// MaxConsecutiveAway reports one violation for every away run longer than
// k rounds. The violation carries the round where the run started.
func MaxConsecutiveAway(s schedule.Schedule, k int) (bool, []Violation) {
	if k < 0 {
		k = 0
	}
	grid := slots(s)
	var out []Violation
	for t := 0; t < s.NumTeams(); t++ {
		run, start := 0, 0
		for ri, row := range grid {
			if row[t] != slotAway {
				run = 0
				continue
			}
			if run == 0 {
				start = ri
			}
			run++
			if run == k+1 {
				out = append(out, Violation{Kind: KindConsecutiveAway, Team: intp(t), Round: intp(start),
					Message: fmt.Sprintf("team %d is away more than %d rounds in a row from round %d", t, k, start)})
			}
		}
	}
	return len(out) == 0, out
}

// Repeaters flags a match (A,B) in round r whose reversal (B,A) is played
// in round r+1. The violation names A and r.
func Repeaters(s schedule.Schedule) (bool, []Violation) {
	var out []Violation
	for ri := 0; ri+1 < s.Len(); ri++ {
		next := make(map[schedule.Match]struct{}, s.Round(ri+1).Len())
		nr := s.Round(ri + 1)
		for i := 0; i < nr.Len(); i++ {
			next[nr.At(i)] = struct{}{}
		}
		r := s.Round(ri)
		for i := 0; i < r.Len(); i++ {
			m := r.At(i)
			if m.IsBye() {
				continue
			}
			if _, ok := next[m.Flip()]; ok {
				out = append(out, Violation{Kind: KindRepeater, Team: intp(m.Home), Round: intp(ri),
					Message: fmt.Sprintf("%d vs %d in rounds %d and %d", m.Home, m.Away, ri, ri+1)})
			}
		}
	}
	return len(out) == 0, out
}

// HomeAwayBalance flags teams whose home and away counts differ by more
// than tolerance.
func HomeAwayBalance(s schedule.Schedule, tolerance int) (bool, []Violation) {
	n := s.NumTeams()
	home := make([]int, n)
	away := make([]int, n)
	for _, row := range slots(s) {
		for t, sl := range row {
			switch sl {
			case slotHome:
				home[t]++
			case slotAway:
				away[t]++
			}
		}
	}
	var out []Violation
	for t := 0; t < n; t++ {
		d := home[t] - away[t]
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			out = append(out, Violation{Kind: KindBalance, Team: intp(t),
				Message: fmt.Sprintf("team %d has %d home and %d away", t, home[t], away[t])})
		}
	}
	return len(out) == 0, out
}

// PairCoverage flags every ordered pair that is not played exactly once.
func PairCoverage(s schedule.Schedule) (bool, []Violation) {
	n := s.NumTeams()
	count := make([][]int, n)
	for i := range count {
		count[i] = make([]int, n)
	}
	for ri := 0; ri < s.Len(); ri++ {
		r := s.Round(ri)
		for i := 0; i < r.Len(); i++ {
			m := r.At(i)
			if m.IsBye() || m.Home < 0 || m.Home >= n || m.Away < 0 || m.Away >= n {
				continue
			}
			count[m.Home][m.Away]++
		}
	}
	var out []Violation
	for h := 0; h < n; h++ {
		for a := 0; a < n; a++ {
			if h == a || count[h][a] == 1 {
				continue
			}
			out = append(out, Violation{Kind: KindStructural, Team: intp(h),
				Message: fmt.Sprintf("%d hosts %d %d times", h, a, count[h][a])})
		}
	}
	return len(out) == 0, out
}
