package leaderboard_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/WeWe-power/DiscussionProject/internal/aggregator"
	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/cache"
	"github.com/WeWe-power/DiscussionProject/internal/config"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	"github.com/WeWe-power/DiscussionProject/internal/service/leaderboard"
)

func setupService(t *testing.T) (*leaderboard.Service, *aggregator.Aggregator, *app.AppContext) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.SeedMinimalTestData(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(gdb, redisCache, logger)
	return leaderboard.NewService(appCtx), aggregator.New(appCtx, time.Minute), appCtx
}

func TestAbsentSlotsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	best, err := svc.BestMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, best.Len())

	worst, err := svc.WorstMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, worst.Len())

	scores, err := svc.UserScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, scores.Len())
}

func TestServesAggregatedSlots(t *testing.T) {
	ctx := context.Background()
	svc, agg, _ := setupService(t)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	require.NoError(t, agg.RecomputeWorstMessages(ctx))
	require.NoError(t, agg.RecomputeUserScores(ctx))

	best, err := svc.BestMessages(ctx)
	require.NoError(t, err)
	likeCount, ok := best.Get("hello")
	require.True(t, ok)
	assert.Equal(t, int64(2), likeCount)

	worst, err := svc.WorstMessages(ctx)
	require.NoError(t, err)
	dislikeCount, ok := worst.Get("hello")
	require.True(t, ok)
	assert.Equal(t, int64(1), dislikeCount)

	scores, err := svc.UserScores(ctx)
	require.NoError(t, err)
	// Alice authored "hello": 2 likes * 2 - 1 dislike * 3 = 1
	aliceScore, ok := scores.Get("Alice")
	require.True(t, ok)
	assert.Equal(t, int64(1), aliceScore)
	entries := scores.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Alice", entries[0].Key)
}

func TestReadDoesNotRecompute(t *testing.T) {
	ctx := context.Background()
	svc, agg, appCtx := setupService(t)

	require.NoError(t, agg.RecomputeBestMessages(ctx))

	// another like lands after the aggregation run
	dave := db.User{ID: 4, Name: "Dave", Username: "dave", Email: "dave@test.com", PasswordHash: "x"}
	require.NoError(t, appCtx.DB.Create(&dave).Error)
	topicID := uint64(1)
	extra := db.MessageRating{RoomID: 1, TopicID: &topicID, AuthorID: 1, RaterID: 4, MessageID: 1, Value: db.RatingLike}
	require.NoError(t, appCtx.DB.Create(&extra).Error)

	// the served board still shows the pre-toggle value until the next run
	best, err := svc.BestMessages(ctx)
	require.NoError(t, err)
	likeCount, _ := best.Get("hello")
	assert.Equal(t, int64(2), likeCount)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	best, err = svc.BestMessages(ctx)
	require.NoError(t, err)
	likeCount, _ = best.Get("hello")
	assert.Equal(t, int64(3), likeCount)
}
