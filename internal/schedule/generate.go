package schedule

import (
	"fmt"

	"tourney/internal/geo"
)

// phantom fills the odd slot of the circle; pairing with it is a bye.
const phantom = -1

// Generate builds the baseline double round robin for n teams.
//
// The first leg uses the circle (Berger) method: team 0 stays fixed, the
// rest rotate one seat per round, and venues alternate with round parity.
// The second leg mirrors the first with venues flipped. For odd n one team
// rests each round and its bye entry is carried unchanged into the mirror.
func Generate(n int) (Schedule, error) {
	if n <= 1 {
		return Schedule{}, fmt.Errorf("%w: need at least 2 teams, got %d", ErrConfig, n)
	}
	ids := make([]int, n, n+1)
	for i := range ids {
		ids[i] = i
	}
	if n%2 == 1 {
		ids = append(ids, phantom)
	}
	m := len(ids)

	first := make([]Round, 0, m-1)
	for r := 0; r < m-1; r++ {
		ms := make([]Match, 0, m/2)
		for i := 0; i < m/2; i++ {
			a, b := ids[i], ids[m-1-i]
			switch {
			case a == phantom:
				ms = append(ms, Match{Home: b, Away: Bye})
			case b == phantom:
				ms = append(ms, Match{Home: a, Away: Bye})
			case r%2 == 0:
				ms = append(ms, Match{Home: a, Away: b})
			default:
				ms = append(ms, Match{Home: b, Away: a})
			}
		}
		first = append(first, Round{matches: ms})
		// keep seat 0, move the last seat to position 1
		rot := make([]int, 0, m)
		rot = append(rot, ids[0], ids[m-1])
		rot = append(rot, ids[1:m-1]...)
		ids = rot
	}

	rounds := make([]Round, 0, 2*len(first))
	rounds = append(rounds, first...)
	for _, r := range first {
		ms := make([]Match, len(r.matches))
		for i, mt := range r.matches {
			if mt.IsBye() {
				ms[i] = mt
				continue
			}
			ms[i] = mt.Flip()
		}
		rounds = append(rounds, Round{matches: ms})
	}
	return Schedule{n: n, rounds: rounds}, nil
}

// GenerateFor is Generate sized by a team list.
func GenerateFor(teams []geo.Team) (Schedule, error) {
	return Generate(len(teams))
}
