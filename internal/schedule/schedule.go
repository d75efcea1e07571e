// Package schedule holds the tournament data model: matches, rounds and
// double round-robin schedules, together with the baseline generator and
// the travel evaluator.
//
// Round and Schedule values are immutable. Updates return a new value that
// shares every untouched round with its source, so the search engine can
// keep "current" and "best" side by side without copying whole schedules.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Bye marks the empty side of a bye entry in odd-sized tournaments.
const Bye = -1

var (
	// ErrConfig reports invalid parameters detected before any work starts.
	ErrConfig = errors.New("configuration error")
	// ErrStructure reports a schedule that fails structural validation.
	ErrStructure = errors.New("structural violation")
)

// Match is a fixture played at Home's stadium. A bye entry carries the
// resting team in Home and Bye in Away.
type Match struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// IsBye reports whether m is a bye entry.
func (m Match) IsBye() bool { return m.Home == Bye || m.Away == Bye }

// Resting returns the team sitting out a bye entry.
func (m Match) Resting() int {
	if m.Home == Bye {
		return m.Away
	}
	return m.Home
}

// Flip swaps the venue.
func (m Match) Flip() Match { return Match{Home: m.Away, Away: m.Home} }

// Involves reports whether team plays (or rests) in m.
func (m Match) Involves(team int) bool {
	return team != Bye && (m.Home == team || m.Away == team)
}

func (m Match) String() string {
	if m.IsBye() {
		return fmt.Sprintf("%d:bye", m.Resting())
	}
	return fmt.Sprintf("%d-%d", m.Home, m.Away)
}

// Round is an ordered, immutable set of matches.
type Round struct {
	matches []Match
}

// NewRound copies ms into a Round.
func NewRound(ms ...Match) Round {
	return Round{matches: append([]Match(nil), ms...)}
}

// Len returns the number of entries, bye entries included.
func (r Round) Len() int { return len(r.matches) }

// At returns entry i.
func (r Round) At(i int) Match { return r.matches[i] }

// Matches returns a copy of the entries.
func (r Round) Matches() []Match { return append([]Match(nil), r.matches...) }

// WithMatch returns a copy of r with entry i replaced.
func (r Round) WithMatch(i int, m Match) Round {
	out := r.Matches()
	out[i] = m
	return Round{matches: out}
}

// Contains reports whether team appears anywhere in r.
func (r Round) Contains(team int) bool {
	for _, m := range r.matches {
		if m.Involves(team) {
			return true
		}
	}
	return false
}

// Schedule is an ordered sequence of rounds for n teams.
type Schedule struct {
	n      int
	rounds []Round
}

// New builds a Schedule from rounds. The round headers are copied; the
// rounds themselves are immutable and safe to share.
func New(n int, rounds []Round) Schedule {
	return Schedule{n: n, rounds: append([]Round(nil), rounds...)}
}

// FromMatches builds a Schedule from plain match tables.
func FromMatches(n int, table [][]Match) Schedule {
	rounds := make([]Round, len(table))
	for i, ms := range table {
		rounds[i] = NewRound(ms...)
	}
	return Schedule{n: n, rounds: rounds}
}

// NumTeams returns N.
func (s Schedule) NumTeams() int { return s.n }

// Len returns the number of rounds.
func (s Schedule) Len() int { return len(s.rounds) }

// Round returns round i.
func (s Schedule) Round(i int) Round { return s.rounds[i] }

// Rounds returns the round sequence. The slice is a fresh header.
func (s Schedule) Rounds() []Round { return append([]Round(nil), s.rounds...) }

// WithRound returns a schedule where round i is replaced by r. All other
// rounds are shared with s.
func (s Schedule) WithRound(i int, r Round) Schedule {
	out := s.Rounds()
	out[i] = r
	return Schedule{n: s.n, rounds: out}
}

// SwapRounds returns a schedule with rounds i and j exchanged.
func (s Schedule) SwapRounds(i, j int) Schedule {
	out := s.Rounds()
	out[i], out[j] = out[j], out[i]
	return Schedule{n: s.n, rounds: out}
}

// Matches returns a deep copy of the schedule as a match table.
func (s Schedule) Matches() [][]Match {
	out := make([][]Match, len(s.rounds))
	for i, r := range s.rounds {
		out[i] = r.Matches()
	}
	return out
}

// Equal reports whether s and o contain the same rounds in the same order.
func (s Schedule) Equal(o Schedule) bool {
	if s.n != o.n || len(s.rounds) != len(o.rounds) {
		return false
	}
	for i := range s.rounds {
		a, b := s.rounds[i].matches, o.rounds[i].matches
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

func (s Schedule) String() string {
	var b strings.Builder
	for i, r := range s.rounds {
		fmt.Fprintf(&b, "R%d:", i)
		for _, m := range r.matches {
			b.WriteString(" ")
			b.WriteString(m.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

type scheduleJSON struct {
	Teams  int       `json:"teams"`
	Rounds [][]Match `json:"rounds"`
}

// MarshalJSON encodes the schedule as {"teams":N,"rounds":[[...]]}.
func (s Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleJSON{Teams: s.n, Rounds: s.Matches()})
}

// UnmarshalJSON decodes the format written by MarshalJSON. No structural
// checks are made here; run validate.Structure on external input.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var raw scheduleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FromMatches(raw.Teams, raw.Rounds)
	return nil
}

// ExpectedRounds is the double round-robin length for n teams.
func ExpectedRounds(n int) int {
	if n%2 == 1 {
		return 2 * n
	}
	return 2 * (n - 1)
}

// EntriesPerRound is the number of entries a round holds, bye included.
func EntriesPerRound(n int) int { return (n + 1) / 2 }
