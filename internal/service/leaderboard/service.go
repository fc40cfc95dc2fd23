package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/cache"
	"github.com/WeWe-power/DiscussionProject/internal/ranking"
)

// Service serves the precomputed ranking slots. Strictly read-only: a
// request never triggers a recomputation, it sees whatever the last
// aggregation run wrote.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// BestMessages returns the top-liked messages board.
func (s *Service) BestMessages(ctx context.Context) (*ranking.Board, error) {
	return s.slot(ctx, cache.KeyBestMessages)
}

// WorstMessages returns the top-disliked messages board.
func (s *Service) WorstMessages(ctx context.Context) (*ranking.Board, error) {
	return s.slot(ctx, cache.KeyWorstMessages)
}

// UserScores returns the user scoring board.
func (s *Service) UserScores(ctx context.Context) (*ranking.Board, error) {
	return s.slot(ctx, cache.KeyUsersScoring)
}

// slot reads one cache slot. "Not computed yet" is a normal state and
// comes back as an empty board.
func (s *Service) slot(ctx context.Context, key string) (*ranking.Board, error) {
	payload, found, err := s.appCtx.RedisCache.GetLeaderboard(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", key, err)
	}
	board := ranking.New()
	if !found {
		return board, nil
	}
	if err := json.Unmarshal(payload, board); err != nil {
		return nil, fmt.Errorf("decode slot %s: %w", key, err)
	}
	return board, nil
}
