package moves

import (
	"math/rand"

	"tourney/internal/schedule"
)

// Sample draws the parameters for a move of kind k from rng and applies it.
// All draws come from rng, so a fixed seed replays the same sequence.
func Sample(rng *rand.Rand, s schedule.Schedule, k Kind) Outcome {
	rounds := s.Len()
	if rounds == 0 {
		return illegal(s)
	}
	switch k {
	case KindSwapRounds:
		r1, r2 := twoRounds(rng, rounds)
		if r1 == r2 {
			return illegal(s)
		}
		return SwapRounds(s, r1, r2)
	case KindSwapMatches:
		r1, r2 := twoRounds(rng, rounds)
		if r1 == r2 {
			return illegal(s)
		}
		i1 := rng.Intn(s.Round(r1).Len())
		i2 := rng.Intn(s.Round(r2).Len())
		return SwapMatches(s, r1, i1, r2, i2)
	case KindFlipVenue:
		r := rng.Intn(rounds)
		return FlipVenue(s, r, rng.Intn(s.Round(r).Len()))
	case KindSwapPairings:
		r1, r2 := twoRounds(rng, rounds)
		m := s.Round(r1).Len()
		if r1 == r2 || m < 2 || s.Round(r2).Len() != m {
			return illegal(s)
		}
		hi := m
		if hi > 3 {
			hi = 3
		}
		n := 2 + rng.Intn(hi-1)
		first, second := rng.Perm(m)[:n], rng.Perm(m)[:n]
		pairs := make([]Pair, n)
		for i := range pairs {
			pairs[i] = Pair{First: first[i], Second: second[i]}
		}
		return SwapPairings(s, r1, r2, pairs)
	}
	return illegal(s)
}

// twoRounds draws two distinct round indices when there are at least two.
func twoRounds(rng *rand.Rand, rounds int) (int, int) {
	if rounds < 2 {
		return 0, 0
	}
	r1 := rng.Intn(rounds)
	r2 := rng.Intn(rounds - 1)
	if r2 >= r1 {
		r2++
	}
	return r1, r2
}
