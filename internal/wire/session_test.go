package wire_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/icpcboard/internal/contest"
	"github.com/victornm/icpcboard/internal/event"
	"github.com/victornm/icpcboard/internal/wire"
)

func TestSession_Run(t *testing.T) {
	tests := map[string]struct {
		script []string
		want   []string
	}{
		"registration lifecycle": {
			script: []string{
				"ADDTEAM Alpha",
				"ADDTEAM Alpha",
				"START DURATION 120 PROBLEM 2",
				"ADDTEAM Beta",
				"START DURATION 120 PROBLEM 2",
				"END",
			},
			want: []string{
				"[Info]Add successfully.",
				"[Error]Add failed: duplicated team name.",
				"[Info]Competition starts.",
				"[Error]Add failed: competition has started.",
				"[Error]Start failed: competition has started.",
				"[Info]Competition ends.",
			},
		},

		"flush and queries": {
			script: []string{
				"ADDTEAM Alpha",
				"ADDTEAM Beta",
				"START DURATION 120 PROBLEM 2",
				"SUBMIT A BY Alpha WITH Wrong_Answer AT 5",
				"SUBMIT A BY Alpha WITH Accepted AT 10",
				"SUBMIT A BY Beta WITH Accepted AT 5",
				"FLUSH",
				"QUERY_RANKING Beta",
				"QUERY_RANKING Gamma",
				"QUERY_SUBMISSION Alpha WHERE PROBLEM=ALL AND STATUS=ALL",
				"QUERY_SUBMISSION Alpha WHERE PROBLEM=ALL AND STATUS=Wrong_Answer",
				"QUERY_SUBMISSION Alpha WHERE PROBLEM=B AND STATUS=ALL",
				"QUERY_SUBMISSION Gamma WHERE PROBLEM=ALL AND STATUS=ALL",
				"END",
			},
			want: []string{
				"[Info]Add successfully.",
				"[Info]Add successfully.",
				"[Info]Competition starts.",
				"[Info]Flush scoreboard.",
				"Beta 1 1 5 + .",
				"Alpha 2 1 30 +1 .",
				"[Info]Complete query ranking.",
				"Beta NOW AT RANKING 1",
				"[Error]Query ranking failed: cannot find the team.",
				"[Info]Complete query submission.",
				"Alpha A Accepted 10",
				"[Info]Complete query submission.",
				"Alpha A Wrong_Answer 5",
				"[Info]Complete query submission.",
				"Cannot find any submission.",
				"[Error]Query submission failed: cannot find the team.",
				"[Info]Competition ends.",
			},
		},

		"freeze and scroll": {
			script: []string{
				"ADDTEAM Alpha",
				"ADDTEAM Beta",
				"START DURATION 120 PROBLEM 2",
				"SUBMIT A BY Alpha WITH Wrong_Answer AT 5",
				"SUBMIT A BY Alpha WITH Accepted AT 10",
				"SUBMIT A BY Beta WITH Accepted AT 5",
				"FREEZE",
				"SUBMIT B BY Alpha WITH Accepted AT 40",
				"QUERY_RANKING Alpha",
				"FLUSH",
				"SCROLL",
				"FREEZE",
				"SCROLL",
				"END",
			},
			want: []string{
				"[Info]Add successfully.",
				"[Info]Add successfully.",
				"[Info]Competition starts.",
				"[Info]Freeze scoreboard.",
				"[Info]Complete query ranking.",
				"[Warning]Scoreboard is frozen. The ranking may be inaccurate until it were scrolled.",
				"Alpha NOW AT RANKING 1",
				"[Info]Flush scoreboard.",
				"Beta 1 1 5 + .",
				"Alpha 2 1 30 +1 0/1",
				"[Info]Scroll scoreboard.",
				"Beta 1 1 5 + .",
				"Alpha 2 1 30 +1 0/1",
				"Alpha Beta 2 70",
				"Alpha 1 2 70 +1 +",
				"Beta 2 1 5 + .",
				"[Info]Freeze scoreboard.",
				"[Info]Scroll scoreboard.",
				"Alpha 1 2 70 +1 +",
				"Beta 2 1 5 + .",
				"Alpha 1 2 70 +1 +",
				"Beta 2 1 5 + .",
				"[Info]Competition ends.",
			},
		},

		"freeze misuse": {
			script: []string{
				"SCROLL",
				"FREEZE",
				"FREEZE",
				"END",
			},
			want: []string{
				"[Error]Scroll failed: scoreboard has not been frozen.",
				"[Info]Freeze scoreboard.",
				"[Error]Freeze failed: scoreboard has been frozen.",
				"[Info]Competition ends.",
			},
		},

		"unknown status scores as wrong answer, frozen rejections are discarded": {
			script: []string{
				"ADDTEAM Alpha",
				"START DURATION 120 PROBLEM 1",
				"SUBMIT A BY Alpha WITH Compile_Error AT 3",
				"FLUSH",
				"FREEZE",
				"SUBMIT A BY Alpha WITH Time_Limit_Exceed AT 50",
				"FLUSH",
				"SCROLL",
				"END",
			},
			want: []string{
				"[Info]Add successfully.",
				"[Info]Competition starts.",
				"[Info]Flush scoreboard.",
				"Alpha 1 0 0 -1",
				"[Info]Freeze scoreboard.",
				"[Info]Flush scoreboard.",
				"Alpha 1 0 0 -1/1",
				"[Info]Scroll scoreboard.",
				"Alpha 1 0 0 -1/1",
				"Alpha 1 0 0 -1",
				"[Info]Competition ends.",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := runSession(t, tt.script)
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", got)
		})
	}
}

func TestSession_Run_StopsAtEOF(t *testing.T) {
	got := runSession(t, []string{
		"ADDTEAM Alpha",
		"",
		"NOSUCHCOMMAND x y",
	})

	// Blank and unknown lines are skipped; EOF ends the session cleanly.
	assert.Equal(t, "[Info]Add successfully.\n", got)
}

func runSession(t *testing.T, script []string) string {
	t.Helper()

	cs := contest.NewService(contest.Config{EventBus: event.NewBus()})

	var out bytes.Buffer
	s := wire.NewSession(wire.Config{
		Contest: cs,
		Reader:  strings.NewReader(strings.Join(script, "\n") + "\n"),
		Writer:  &out,
	})

	require.NoError(t, s.Run(context.Background()))
	return out.String()
}
