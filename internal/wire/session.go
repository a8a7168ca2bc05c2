// Package wire drives the engine over its line-oriented command protocol.
// Every line maps to exactly one contest operation; failures render as
// fixed status lines and never abort the session.
package wire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/victornm/icpcboard/internal/contest"
	"github.com/victornm/icpcboard/internal/domain"
	"github.com/victornm/icpcboard/internal/errors"
)

type Config struct {
	Contest *contest.Service
	Reader  io.Reader
	Writer  io.Writer
}

type Session struct {
	cs *contest.Service
	in *bufio.Scanner
	w  io.Writer
}

func NewSession(c Config) *Session {
	return &Session{
		cs: c.Contest,
		in: bufio.NewScanner(c.Reader),
		w:  c.Writer,
	}
}

// Run processes commands until END or the input is exhausted.
func (s *Session) Run(ctx context.Context) error {
	for s.in.Scan() {
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		if done := s.dispatch(ctx, line); done {
			return nil
		}
	}

	return s.in.Err()
}

func (s *Session) dispatch(ctx context.Context, line string) (done bool) {
	f := strings.Fields(line)

	switch f[0] {
	case "ADDTEAM":
		s.addTeam(ctx, f)
	case "START":
		s.start(ctx, f)
	case "SUBMIT":
		s.submit(ctx, f)
	case "FLUSH":
		s.flush(ctx)
	case "FREEZE":
		s.freeze(ctx)
	case "SCROLL":
		s.scroll(ctx)
	case "QUERY_RANKING":
		s.queryRanking(ctx, f)
	case "QUERY_SUBMISSION":
		s.querySubmission(ctx, f)
	case "END":
		s.cs.End(ctx)
		fmt.Fprintln(s.w, "[Info]Competition ends.")
		return true
	default:
		slog.WarnContext(ctx, "wire: unknown command", "command", f[0])
	}

	return false
}

// ADDTEAM <team>
func (s *Session) addTeam(ctx context.Context, f []string) {
	if len(f) < 2 {
		slog.WarnContext(ctx, "wire: malformed ADDTEAM", "line", strings.Join(f, " "))
		return
	}

	if err := s.cs.AddTeam(ctx, contest.AddTeamRequest{TeamName: f[1]}); err != nil {
		fmt.Fprintf(s.w, "[Error]Add failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Add successfully.")
}

// START DURATION <duration> PROBLEM <count>
func (s *Session) start(ctx context.Context, f []string) {
	if len(f) < 5 {
		slog.WarnContext(ctx, "wire: malformed START", "line", strings.Join(f, " "))
		return
	}

	duration, err1 := strconv.Atoi(f[2])
	count, err2 := strconv.Atoi(f[4])
	if err1 != nil || err2 != nil {
		slog.WarnContext(ctx, "wire: malformed START", "line", strings.Join(f, " "))
		return
	}

	if err := s.cs.Start(ctx, contest.StartRequest{Duration: duration, ProblemCount: count}); err != nil {
		fmt.Fprintf(s.w, "[Error]Start failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Competition starts.")
}

// SUBMIT <problem> BY <team> WITH <status> AT <minute>
// Produces no output; a rejected submission is logged and skipped.
func (s *Session) submit(ctx context.Context, f []string) {
	if len(f) < 8 {
		slog.WarnContext(ctx, "wire: malformed SUBMIT", "line", strings.Join(f, " "))
		return
	}

	minute, err := strconv.Atoi(f[7])
	if err != nil {
		slog.WarnContext(ctx, "wire: malformed SUBMIT", "line", strings.Join(f, " "))
		return
	}

	err = s.cs.Submit(ctx, contest.SubmitRequest{
		Problem:  f[1],
		TeamName: f[3],
		Outcome:  domain.ParseOutcome(f[5]),
		Minute:   minute,
	})
	if err != nil {
		slog.WarnContext(ctx, "wire: submit rejected", "error", err)
	}
}

func (s *Session) flush(ctx context.Context) {
	sb, err := s.cs.Flush(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "wire: flush failed", "error", err)
		return
	}

	fmt.Fprintln(s.w, "[Info]Flush scoreboard.")
	renderScoreboard(s.w, sb)
}

func (s *Session) freeze(ctx context.Context) {
	if err := s.cs.Freeze(ctx); err != nil {
		fmt.Fprintf(s.w, "[Error]Freeze failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Freeze scoreboard.")
}

func (s *Session) scroll(ctx context.Context) {
	res, err := s.cs.Scroll(ctx)
	if err != nil {
		fmt.Fprintf(s.w, "[Error]Scroll failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Scroll scoreboard.")
	renderScoreboard(s.w, res.Before)
	for _, sw := range res.Swaps {
		fmt.Fprintf(s.w, "%s %s %d %d\n", sw.Team, sw.Passed, sw.Solved, sw.Penalty)
	}
	renderScoreboard(s.w, res.After)
}

// QUERY_RANKING <team>
func (s *Session) queryRanking(ctx context.Context, f []string) {
	if len(f) < 2 {
		slog.WarnContext(ctx, "wire: malformed QUERY_RANKING", "line", strings.Join(f, " "))
		return
	}

	resp, err := s.cs.RankingOf(ctx, contest.RankingOfRequest{TeamName: f[1]})
	if err != nil {
		fmt.Fprintf(s.w, "[Error]Query ranking failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Complete query ranking.")
	if resp.Frozen {
		fmt.Fprintln(s.w, "[Warning]Scoreboard is frozen. The ranking may be inaccurate until it were scrolled.")
	}
	fmt.Fprintf(s.w, "%s NOW AT RANKING %d\n", f[1], resp.Rank)
}

// QUERY_SUBMISSION <team> WHERE PROBLEM=<problem|ALL> AND STATUS=<status|ALL>
func (s *Session) querySubmission(ctx context.Context, f []string) {
	if len(f) < 2 {
		slog.WarnContext(ctx, "wire: malformed QUERY_SUBMISSION", "line", strings.Join(f, " "))
		return
	}

	req := contest.LastSubmissionRequest{TeamName: f[1]}
	for _, tok := range f[2:] {
		if v, ok := strings.CutPrefix(tok, "PROBLEM="); ok && v != "ALL" {
			req.Problem = v
		}
		if v, ok := strings.CutPrefix(tok, "STATUS="); ok && v != "ALL" {
			o := domain.ParseOutcome(v)
			req.Outcome = &o
		}
	}

	sub, err := s.cs.LastSubmission(ctx, req)
	if err != nil {
		fmt.Fprintf(s.w, "[Error]Query submission failed: %s.\n", errors.Convert(err).Message)
		return
	}

	fmt.Fprintln(s.w, "[Info]Complete query submission.")
	if sub == nil {
		fmt.Fprintln(s.w, "Cannot find any submission.")
		return
	}
	fmt.Fprintf(s.w, "%s %s %s %d\n", sub.Team, sub.Problem, sub.Outcome, sub.Minute)
}
