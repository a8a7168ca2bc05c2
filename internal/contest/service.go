// Package contest owns the state of a single contest: the team registry,
// the append-only submission log, the current ranking order and the
// freeze/scroll lifecycle.
package contest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/victornm/icpcboard/internal/domain"
	"github.com/victornm/icpcboard/internal/errors"
	"github.com/victornm/icpcboard/internal/event"
	"github.com/victornm/icpcboard/internal/scoring"
	"github.com/victornm/icpcboard/internal/telemetry"
)

type Config struct {
	EventBus *event.Bus
	Metrics  *telemetry.Metrics
}

// Service processes one strictly ordered command stream. All operations run
// to completion under a single lock; the only asynchronous work is event
// delivery to subscribers, which receives immutable snapshot copies.
type Service struct {
	eb      *event.Bus
	metrics *telemetry.Metrics

	mu       sync.Mutex
	started  bool
	frozen   bool
	duration int
	problems []string

	teams map[string]*team
	// order is the current ranking order. Until the first sort it is the
	// registration order.
	order []string
	log   []domain.Submission
}

func NewService(c Config) *Service {
	if c.Metrics == nil {
		c.Metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}

	return &Service{
		eb:      c.EventBus,
		metrics: c.Metrics,
		teams:   make(map[string]*team),
	}
}

// team tracks per-problem state in dense slices indexed by problem position.
// The slices are allocated once at contest start.
type team struct {
	name    string
	solved  int
	penalty int

	attempts []int
	wrong    []int
	isSolved []bool
	solvedAt []int
	// hidden counts submissions diverted by the current freeze; a problem is
	// frozen-and-unrevealed exactly while its counter is positive.
	hidden []int
	// hiddenAccept is the earliest accepted minute recorded during the
	// freeze, -1 when none. Maintained incrementally so reveals never
	// re-scan the log.
	hiddenAccept []int
}

func (t *team) solveMinutes() []int {
	minutes := make([]int, 0, t.solved)
	for p, ok := range t.isSolved {
		if ok {
			minutes = append(minutes, t.solvedAt[p])
		}
	}
	return minutes
}

func (t *team) firstPending() int {
	for p, n := range t.hidden {
		if n > 0 {
			return p
		}
	}
	return -1
}

type AddTeamRequest struct {
	TeamName string
}

// AddTeam registers a team. Teams can only be added before the contest
// starts, and names are unique.
func (s *Service) AddTeam(_ context.Context, req AddTeamRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("competition has started"))
	}

	if _, ok := s.teams[req.TeamName]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("duplicated team name"))
	}

	s.teams[req.TeamName] = &team{name: req.TeamName}
	s.order = append(s.order, req.TeamName)
	return nil
}

type StartRequest struct {
	Duration     int
	ProblemCount int
}

// Start fixes the problem set (the first ProblemCount letters) and
// initializes every registered team's per-problem counters.
func (s *Service) Start(_ context.Context, req StartRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("competition has started"))
	}

	s.duration = req.Duration
	s.problems = make([]string, 0, req.ProblemCount)
	for i := 0; i < req.ProblemCount; i++ {
		s.problems = append(s.problems, string(rune('A'+i)))
	}

	for _, t := range s.teams {
		n := len(s.problems)
		t.attempts = make([]int, n)
		t.wrong = make([]int, n)
		t.isSolved = make([]bool, n)
		t.solvedAt = make([]int, n)
		t.hidden = make([]int, n)
		t.hiddenAccept = make([]int, n)
		for p := range t.hiddenAccept {
			t.hiddenAccept[p] = -1
		}
	}

	s.started = true
	return nil
}

type SubmitRequest struct {
	Problem  string
	TeamName string
	Outcome  domain.Outcome
	Minute   int
}

// Submit appends to the submission log and updates the team's solve state,
// or its hidden counters while the scoreboard is frozen. It never changes
// the ranking order by itself.
func (s *Service) Submit(_ context.Context, req SubmitRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[req.TeamName]
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("cannot find the team"))
	}

	p := slices.Index(s.problems, req.Problem)
	if p < 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown problem %q", req.Problem))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate submission ID: %w", err)
	}

	s.log = append(s.log, domain.Submission{
		ID:      id.String(),
		Team:    req.TeamName,
		Problem: req.Problem,
		Outcome: req.Outcome,
		Minute:  req.Minute,
	})
	s.metrics.Submissions.WithLabelValues(req.Outcome.String()).Inc()

	t.attempts[p]++

	if s.frozen && !t.isSolved[p] {
		t.hidden[p]++
		if req.Outcome == domain.OutcomeAccepted &&
			(t.hiddenAccept[p] < 0 || req.Minute < t.hiddenAccept[p]) {
			t.hiddenAccept[p] = req.Minute
		}
		return nil
	}

	if t.isSolved[p] {
		// Recorded in the log only; a solved problem never re-scores.
		return nil
	}

	if req.Outcome == domain.OutcomeAccepted {
		s.solve(t, p, req.Minute)
	} else {
		t.wrong[p]++
	}

	return nil
}

// solve applies the one-way unsolved -> solved transition.
func (s *Service) solve(t *team, p, minute int) {
	t.isSolved[p] = true
	t.solvedAt[p] = minute
	t.solved++
	t.penalty += scoring.ProblemPenalty(t.wrong[p], minute)
}

// Flush recomputes the ranking order and returns the resulting snapshot.
func (s *Service) Flush(ctx context.Context) (*domain.Scoreboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rank()
	sb := s.snapshot()
	s.metrics.Flushes.Inc()
	s.publish(ctx, domain.EventScoreboardUpdated{Scoreboard: *sb})
	return sb, nil
}

// End closes the session. The contest state itself is not torn down;
// queries against a finished contest still answer.
func (s *Service) End(ctx context.Context) {
	s.publish(ctx, domain.EventContestEnded{})
}

// rank re-sorts the full ranking order. The comparator is total, so the
// result does not depend on the previous order.
func (s *Service) rank() {
	standings := make(map[string]scoring.Standing, len(s.teams))
	for name, t := range s.teams {
		standings[name] = scoring.Standing{
			Team:       name,
			Solved:     t.solved,
			Penalty:    t.penalty,
			SolveTimes: scoring.SolveTimes(t.solveMinutes()),
		}
	}

	slices.SortFunc(s.order, func(a, b string) int {
		return scoring.Compare(standings[a], standings[b])
	})
}

// snapshot renders the current order into an immutable scoreboard copy.
func (s *Service) snapshot() *domain.Scoreboard {
	sb := &domain.Scoreboard{
		Problems: slices.Clone(s.problems),
		Rows:     make([]domain.ScoreboardRow, 0, len(s.order)),
	}

	for i, name := range s.order {
		t := s.teams[name]
		row := domain.ScoreboardRow{
			Team:    name,
			Rank:    i + 1,
			Solved:  t.solved,
			Penalty: t.penalty,
			Cells:   make([]domain.ProblemCell, len(s.problems)),
		}
		for p := range s.problems {
			row.Cells[p] = domain.ProblemCell{
				Solved:         t.isSolved[p],
				Wrong:          t.wrong[p],
				Pending:        t.hidden[p] > 0,
				HiddenAttempts: t.hidden[p],
			}
		}
		sb.Rows = append(sb.Rows, row)
	}

	return sb
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if s.eb != nil {
		s.eb.Publish(ctx, e)
	}
}

type RankingOfRequest struct {
	TeamName string
}

type RankingOfResponse struct {
	// Rank is the team's 1-based position in the current ranking order,
	// which may be stale while the scoreboard is frozen.
	Rank   int
	Frozen bool
}

func (s *Service) RankingOf(_ context.Context, req RankingOfRequest) (*RankingOfResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[req.TeamName]; !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("cannot find the team"))
	}

	return &RankingOfResponse{
		Rank:   slices.Index(s.order, req.TeamName) + 1,
		Frozen: s.frozen,
	}, nil
}

type LastSubmissionRequest struct {
	TeamName string
	// Problem narrows the match to one problem; empty matches any.
	Problem string
	// Outcome narrows the match to one outcome; nil matches any.
	Outcome *domain.Outcome
}

// LastSubmission scans the log from most recent to oldest and returns the
// first entry matching the filters. A nil submission with a nil error is a
// valid empty result, distinct from an unknown team.
func (s *Service) LastSubmission(_ context.Context, req LastSubmissionRequest) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[req.TeamName]; !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("cannot find the team"))
	}

	for i := len(s.log) - 1; i >= 0; i-- {
		sub := s.log[i]
		if sub.Team != req.TeamName {
			continue
		}
		if req.Problem != "" && sub.Problem != req.Problem {
			continue
		}
		if req.Outcome != nil && sub.Outcome != *req.Outcome {
			continue
		}
		return &sub, nil
	}

	return nil, nil
}
