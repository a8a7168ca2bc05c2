package domain

const (
	EventNameScoreboardUpdated = "scoreboard.updated"
	EventNameRankSwapped       = "rank.swapped"
	EventNameContestEnded      = "contest.ended"
)

type EventScoreboardUpdated struct {
	Scoreboard Scoreboard
}

func (EventScoreboardUpdated) Name() string { return EventNameScoreboardUpdated }

type EventRankSwapped struct {
	Swap RankSwap
}

func (EventRankSwapped) Name() string { return EventNameRankSwapped }

type EventContestEnded struct{}

func (EventContestEnded) Name() string { return EventNameContestEnded }
