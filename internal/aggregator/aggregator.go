// Package aggregator recomputes the leaderboard cache from the rating store.
//
// Three jobs, each a full scan over the store, each writing exactly one
// cache slot. They run on a fixed interval in the background; request
// handlers only ever read the slots, so rankings lag live toggles by at
// most one interval.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/cache"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	"github.com/WeWe-power/DiscussionProject/internal/metrics"
	"github.com/WeWe-power/DiscussionProject/internal/ranking"
)

// Weights of the user scoring formula: score = likes*2 - dislikes*3.
const (
	likeWeight    = 2
	dislikeWeight = 3
)

type Aggregator struct {
	appCtx   *app.AppContext
	interval time.Duration
}

func New(appCtx *app.AppContext, interval time.Duration) *Aggregator {
	return &Aggregator{appCtx: appCtx, interval: interval}
}

// Run executes all jobs once at startup and then on every tick until the
// context is canceled. A failing job is logged and skipped; it never
// blocks the other two or the next tick.
func (a *Aggregator) Run(ctx context.Context) {
	a.runAll(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runAll(ctx)
		}
	}
}

func (a *Aggregator) runAll(ctx context.Context) {
	jobs := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"best_messages", a.RecomputeBestMessages},
		{"worst_messages", a.RecomputeWorstMessages},
		{"user_scores", a.RecomputeUserScores},
	}
	for _, job := range jobs {
		start := time.Now()
		if err := job.fn(ctx); err != nil {
			metrics.AggregationRunsTotal.WithLabelValues(job.name, "error").Inc()
			a.appCtx.Logger.Warn("aggregation job failed", "job", job.name, "err", err)
			continue
		}
		metrics.AggregationRunsTotal.WithLabelValues(job.name, "ok").Inc()
		metrics.AggregationDuration.WithLabelValues(job.name).Observe(time.Since(start).Seconds())
	}
}

// RecomputeBestMessages rebuilds the best_messages slot: message body →
// like count, descending.
func (a *Aggregator) RecomputeBestMessages(ctx context.Context) error {
	return a.recomputeMessageBoard(ctx, cache.KeyBestMessages, db.RatingLike)
}

// RecomputeWorstMessages rebuilds the worst_messages slot: message body →
// dislike count, descending.
func (a *Aggregator) RecomputeWorstMessages(ctx context.Context) error {
	return a.recomputeMessageBoard(ctx, cache.KeyWorstMessages, db.RatingDislike)
}

func (a *Aggregator) recomputeMessageBoard(ctx context.Context, key string, value db.RatingValue) error {
	var messages []db.Message
	if err := a.appCtx.DB.WithContext(ctx).Order("id").Find(&messages).Error; err != nil {
		return fmt.Errorf("scan messages: %w", err)
	}

	counts, err := a.countRatingsPerMessage(ctx, value)
	if err != nil {
		return err
	}

	board := ranking.New()
	for _, msg := range messages {
		board.Put(msg.Body, counts[msg.ID])
	}
	board.SortDesc()

	return a.writeSlot(ctx, key, board)
}

// RecomputeUserScores rebuilds the users_scoring slot: display name →
// likes_received*2 - dislikes_received*3, descending. Likes/dislikes are
// counted against the message author, not the rater.
func (a *Aggregator) RecomputeUserScores(ctx context.Context) error {
	var users []db.User
	if err := a.appCtx.DB.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return fmt.Errorf("scan users: %w", err)
	}

	likes, err := a.countRatingsPerAuthor(ctx, db.RatingLike)
	if err != nil {
		return err
	}
	dislikes, err := a.countRatingsPerAuthor(ctx, db.RatingDislike)
	if err != nil {
		return err
	}

	board := ranking.New()
	for _, user := range users {
		board.Put(user.Name, likes[user.ID]*likeWeight-dislikes[user.ID]*dislikeWeight)
	}
	board.SortDesc()

	return a.writeSlot(ctx, cache.KeyUsersScoring, board)
}

type countRow struct {
	ID    uint64
	Total int64
}

func (a *Aggregator) countRatingsPerMessage(ctx context.Context, value db.RatingValue) (map[uint64]int64, error) {
	var rows []countRow
	err := a.appCtx.DB.WithContext(ctx).
		Model(&db.MessageRating{}).
		Select("message_id AS id, COUNT(*) AS total").
		Where("value = ?", value).
		Group("message_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count %s ratings per message: %w", value, err)
	}
	return rowsToMap(rows), nil
}

func (a *Aggregator) countRatingsPerAuthor(ctx context.Context, value db.RatingValue) (map[uint64]int64, error) {
	var rows []countRow
	err := a.appCtx.DB.WithContext(ctx).
		Model(&db.MessageRating{}).
		Select("author_id AS id, COUNT(*) AS total").
		Where("value = ?", value).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count %s ratings per author: %w", value, err)
	}
	return rowsToMap(rows), nil
}

func rowsToMap(rows []countRow) map[uint64]int64 {
	m := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		m[row.ID] = row.Total
	}
	return m
}

// writeSlot serializes the board and overwrites one cache slot. Nothing is
// written when an earlier step failed, so a botched run leaves the previous
// rankings intact.
func (a *Aggregator) writeSlot(ctx context.Context, key string, board *ranking.Board) error {
	payload, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := a.appCtx.RedisCache.SetLeaderboard(ctx, key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	a.appCtx.Logger.Debug("leaderboard slot updated", "key", key, "entries", board.Len())
	return nil
}
