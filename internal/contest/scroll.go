package contest

import (
	"context"
	"slices"

	"github.com/victornm/icpcboard/internal/domain"
	"github.com/victornm/icpcboard/internal/errors"
)

// Freeze diverts results for still-unsolved problems into hidden counters
// until the next scroll. Problems already solved keep behaving as before.
func (s *Service) Freeze(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("scoreboard has been frozen"))
	}

	s.frozen = true
	return nil
}

// ScrollResult carries everything a scroll produces, in emission order: the
// pre-reveal snapshot, the recorded swaps, and the fully revealed board.
type ScrollResult struct {
	Before *domain.Scoreboard
	Swaps  []domain.RankSwap
	After  *domain.Scoreboard
}

// Scroll replays the frozen results one problem at a time: always the
// worst-ranked team holding a pending problem, and among its pending
// problems the lexicographically smallest. Each reveal that applies a
// hidden accept triggers a full re-rank; when the revealed team moves, the
// swap against its previous immediate predecessor is recorded. A reveal
// whose hidden attempts were all rejected discards them without scoring.
//
// Swap rows render with the revealed team's totals as they stand at the end
// of the scroll, matching the reference system.
func (s *Service) Scroll(ctx context.Context) (*ScrollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.frozen {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("scoreboard has not been frozen"))
	}

	s.rank()
	res := &ScrollResult{Before: s.snapshot()}

	type swap struct{ team, passed string }
	var swaps []swap

	for {
		name, p := s.nextReveal()
		if p < 0 {
			break
		}

		t := s.teams[name]
		if at := t.hiddenAccept[p]; at >= 0 {
			s.solve(t, p, at)

			prev := s.predecessorOf(name)
			before := slices.Clone(s.order)
			s.rank()
			if prev != "" && !slices.Equal(before, s.order) {
				swaps = append(swaps, swap{team: name, passed: prev})
			}
		}

		// The hidden counter clears regardless of outcome; frozen-period
		// wrong attempts never count toward penalty.
		t.hidden[p] = 0
		t.hiddenAccept[p] = -1
		s.metrics.Reveals.Inc()
	}

	res.Swaps = make([]domain.RankSwap, 0, len(swaps))
	for _, sw := range swaps {
		t := s.teams[sw.team]
		rs := domain.RankSwap{
			Team:    sw.team,
			Passed:  sw.passed,
			Solved:  t.solved,
			Penalty: t.penalty,
		}
		res.Swaps = append(res.Swaps, rs)
		s.metrics.Swaps.Inc()
		s.publish(ctx, domain.EventRankSwapped{Swap: rs})
	}

	res.After = s.snapshot()
	s.publish(ctx, domain.EventScoreboardUpdated{Scoreboard: *res.After})

	s.frozen = false
	return res, nil
}

// nextReveal picks the reveal target: scanning the ranking bottom-up, the
// first team with a pending problem, and its smallest pending problem.
// Returns ("", -1) when the freeze is fully drained.
func (s *Service) nextReveal() (string, int) {
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if p := s.teams[name].firstPending(); p >= 0 {
			return name, p
		}
	}
	return "", -1
}

func (s *Service) predecessorOf(name string) string {
	i := slices.Index(s.order, name)
	if i <= 0 {
		return ""
	}
	return s.order[i-1]
}
