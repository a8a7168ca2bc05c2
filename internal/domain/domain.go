package domain

// Outcome is the judge verdict for a single submission.
type Outcome int8

const (
	OutcomeAccepted Outcome = iota
	OutcomeWrongAnswer
	OutcomeRuntimeError
	OutcomeTimeLimitExceed
)

var outcomeNames = map[Outcome]string{
	OutcomeAccepted:        "Accepted",
	OutcomeWrongAnswer:     "Wrong_Answer",
	OutcomeRuntimeError:    "Runtime_Error",
	OutcomeTimeLimitExceed: "Time_Limit_Exceed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "Unknown"
}

// ParseOutcome maps a wire status token onto an Outcome.
// Unrecognized tokens score as Wrong_Answer.
func ParseOutcome(s string) Outcome {
	for o, name := range outcomeNames {
		if name == s {
			return o
		}
	}
	return OutcomeWrongAnswer
}

// Submission is one immutable entry of the contest's append-only log.
type Submission struct {
	ID      string
	Team    string
	Problem string
	Outcome Outcome
	// Minute is the submission timestamp in minutes since contest start.
	Minute int
}

// Scoreboard is a ranked snapshot of the whole contest.
type Scoreboard struct {
	Problems []string
	Rows     []ScoreboardRow
}

type ScoreboardRow struct {
	Team    string
	Rank    int
	Solved  int
	Penalty int
	Cells   []ProblemCell
}

// ProblemCell is one team/problem entry on the board.
type ProblemCell struct {
	Solved bool
	// Wrong counts rejected attempts before the first accept.
	Wrong int
	// Pending marks a problem with attempts hidden by the current freeze.
	Pending        bool
	HiddenAttempts int
}

// RankSwap records one team passing another during a scroll reveal.
type RankSwap struct {
	Team    string
	Passed  string
	Solved  int
	Penalty int
}
