// Package scoring holds the pure ICPC scoring rules: per-problem penalty,
// tie-break solve times and the total order used to rank teams.
package scoring

import (
	"cmp"
	"slices"
)

// PenaltyPerWrong is the minutes added for every rejected attempt made
// before a problem's first accept.
const PenaltyPerWrong = 20

// ProblemPenalty returns the penalty contributed by a single solved problem.
func ProblemPenalty(wrong, acceptMinute int) int {
	return PenaltyPerWrong*wrong + acceptMinute
}

// SolveTimes returns a copy of the given first-accept minutes sorted
// descending, most recent solve first. The result is the tie-break sequence
// and is recomputed on demand; it is never cached on a team.
func SolveTimes(minutes []int) []int {
	times := slices.Clone(minutes)
	slices.SortFunc(times, func(a, b int) int { return cmp.Compare(b, a) })
	return times
}

// Standing is the comparable scoring summary of one team.
type Standing struct {
	Team    string
	Solved  int
	Penalty int
	// SolveTimes are the first-accept minutes in descending order.
	SolveTimes []int
}

// Compare orders standings best-first:
//
//  1. more solved problems
//  2. less penalty time
//  3. element-wise comparison of descending solve times, the earlier
//     timestamp at the first difference winning; a strict prefix decides
//     nothing at this level
//  4. team name ascending
//
// The chain ends in the team name, so the order is total and deterministic
// regardless of the input permutation.
func Compare(a, b Standing) int {
	if c := cmp.Compare(b.Solved, a.Solved); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Penalty, b.Penalty); c != 0 {
		return c
	}
	for i := 0; i < min(len(a.SolveTimes), len(b.SolveTimes)); i++ {
		if c := cmp.Compare(a.SolveTimes[i], b.SolveTimes[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Team, b.Team)
}
