// Package mirror keeps a live copy of the scoreboard in redis: a sorted set
// holding the current ranking order plus per-team pubsub notifications for
// scoreboard updates and rank swaps.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/icpcboard/internal/domain"
	"github.com/victornm/icpcboard/internal/errors"
	"github.com/victornm/icpcboard/internal/event"
)

const maxConcurrent = 100

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameScoreboardUpdated, func(ctx context.Context, e event.Event) error {
		return s.UpdateStandings(ctx, e.(domain.EventScoreboardUpdated))
	})
	s.eb.Subscribe(domain.EventNameRankSwapped, func(ctx context.Context, e event.Event) error {
		return s.PublishRankSwapped(ctx, e.(domain.EventRankSwapped))
	})
	s.eb.Subscribe(domain.EventNameContestEnded, func(ctx context.Context, e event.Event) error {
		return s.publishNotification(ctx, s.contestChannel(), domain.EventNameContestEnded, nil)
	})

	return s
}

type RankedTeam struct {
	Team string `json:"team"`
	Rank int    `json:"rank"`
}

// Standings reads the mirrored ranking order back, best rank first.
func (s *Service) Standings(ctx context.Context) ([]RankedTeam, error) {
	res, err := s.redis.ZRangeWithScores(ctx, s.standingsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("standings not mirrored yet"))
	}

	standings := make([]RankedTeam, 0, len(res))
	for _, z := range res {
		standings = append(standings, RankedTeam{
			Team: z.Member.(string),
			Rank: int(z.Score),
		})
	}

	return standings, nil
}

// UpdateStandings overwrites the mirrored order with the latest snapshot
// and notifies every team's channel.
func (s *Service) UpdateStandings(ctx context.Context, e domain.EventScoreboardUpdated) error {
	sb := e.Scoreboard

	members := make([]redis.Z, 0, len(sb.Rows))
	for _, row := range sb.Rows {
		members = append(members, redis.Z{
			Score:  float64(row.Rank),
			Member: row.Team,
		})
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.standingsKey())
	if len(members) > 0 {
		pipe.ZAdd(ctx, s.standingsKey(), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update standings: %w", err)
	}

	return s.publishScoreboard(ctx, sb)
}

// PublishRankSwapped notifies both teams involved in a swap.
func (s *Service) PublishRankSwapped(ctx context.Context, e domain.EventRankSwapped) error {
	sw := e.Swap

	data := Swap{
		Team:    sw.Team,
		Passed:  sw.Passed,
		Solved:  sw.Solved,
		Penalty: sw.Penalty,
	}

	var eg errgroup.Group
	for _, team := range []string{sw.Team, sw.Passed} {
		team := team
		eg.Go(func() error {
			return s.publishNotification(ctx, s.teamChannel(team), e.Name(), data)
		})
	}

	return eg.Wait()
}

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Standings struct {
		Entries []StandingsEntry `json:"entries"`
	}

	StandingsEntry struct {
		Team    string `json:"team"`
		Rank    int    `json:"rank"`
		Solved  int    `json:"solved"`
		Penalty int    `json:"penalty"`
	}

	Swap struct {
		Team    string `json:"team"`
		Passed  string `json:"passed"`
		Solved  int    `json:"solved"`
		Penalty int    `json:"penalty"`
	}
)

func (s *Service) publishScoreboard(ctx context.Context, sb domain.Scoreboard) error {
	data := Standings{
		Entries: make([]StandingsEntry, 0, len(sb.Rows)),
	}

	for _, row := range sb.Rows {
		data.Entries = append(data.Entries, StandingsEntry{
			Team:    row.Team,
			Rank:    row.Rank,
			Solved:  row.Solved,
			Penalty: row.Penalty,
		})
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		entry := entry
		eg.Go(func() error {
			return s.publishNotification(ctx, s.teamChannel(entry.Team), domain.EventNameScoreboardUpdated, data)
		})
	}

	return eg.Wait()
}

func (s *Service) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("mirror: marshal %s: %v", event, err)
	}

	return s.redis.Publish(ctx, channel, b).Err()
}

func (s *Service) standingsKey() string {
	return fmt.Sprintf("%s:standings", s.prefix)
}

func (s *Service) teamChannel(team string) string {
	return fmt.Sprintf("%s:team:%s", s.prefix, team)
}

func (s *Service) contestChannel() string {
	return fmt.Sprintf("%s:contest", s.prefix)
}
