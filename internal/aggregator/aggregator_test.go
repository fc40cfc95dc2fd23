package aggregator_test

import (
	"context"
	"encoding/json"
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
	"github.com/WeWe-power/DiscussionProject/internal/ranking"
	"github.com/WeWe-power/DiscussionProject/internal/repository"
)

// setupAggregator wires an isolated sqlite DB and miniredis into an
// aggregator plus a rating repository for driving toggles.
func setupAggregator(t *testing.T) (*aggregator.Aggregator, *repository.RatingRepository, *app.AppContext) {
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

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(gdb, redisCache, logger)
	return aggregator.New(appCtx, time.Minute), repository.NewRatingRepository(gdb), appCtx
}

// seedForum inserts Alice, Bob, Carol, one room and a "hello" message
// authored by Alice, then applies the given ratings.
func seedForum(t *testing.T, appCtx *app.AppContext, repo *repository.RatingRepository) {
	t.Helper()
	ctx := context.Background()

	users := []db.User{
		{ID: 1, Name: "Alice", Username: "alice", Email: "alice@test.com", PasswordHash: "x"},
		{ID: 2, Name: "Bob", Username: "bob", Email: "bob@test.com", PasswordHash: "x"},
		{ID: 3, Name: "Carol", Username: "carol", Email: "carol@test.com", PasswordHash: "x"},
	}
	require.NoError(t, appCtx.DB.Create(&users).Error)

	topic := db.Topic{ID: 1, Name: "general"}
	require.NoError(t, appCtx.DB.Create(&topic).Error)

	hostID, topicID := uint64(1), uint64(1)
	room := db.Room{ID: 1, Name: "lobby", HostID: &hostID, TopicID: &topicID}
	require.NoError(t, appCtx.DB.Create(&room).Error)

	msg := db.Message{ID: 1, Body: "hello", AuthorID: 1, RoomID: 1}
	require.NoError(t, appCtx.DB.Create(&msg).Error)

	// Alice: Like, Bob: Like, Carol: Dislike
	_, _, err := repo.Toggle(ctx, 1, 1, db.RatingLike)
	require.NoError(t, err)
	_, _, err = repo.Toggle(ctx, 2, 1, db.RatingLike)
	require.NoError(t, err)
	_, _, err = repo.Toggle(ctx, 3, 1, db.RatingDislike)
	require.NoError(t, err)
}

func readSlot(t *testing.T, appCtx *app.AppContext, key string) *ranking.Board {
	t.Helper()
	payload, found, err := appCtx.RedisCache.GetLeaderboard(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found, "slot %s should exist", key)
	board := ranking.New()
	require.NoError(t, json.Unmarshal(payload, board))
	return board
}

func TestRecomputeBestAndWorstMessages(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	require.NoError(t, agg.RecomputeWorstMessages(ctx))

	best := readSlot(t, appCtx, cache.KeyBestMessages)
	likeCount, ok := best.Get("hello")
	require.True(t, ok)
	assert.Equal(t, int64(2), likeCount)

	worst := readSlot(t, appCtx, cache.KeyWorstMessages)
	dislikeCount, ok := worst.Get("hello")
	require.True(t, ok)
	assert.Equal(t, int64(1), dislikeCount)
}

func TestToggleOffReflectedAfterNextRun(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	require.NoError(t, agg.RecomputeWorstMessages(ctx))

	// Carol repeats her Dislike: toggle-off
	action, _, err := repo.Toggle(ctx, 3, 1, db.RatingDislike)
	require.NoError(t, err)
	assert.Equal(t, repository.ToggleRemoved, action)

	// cache is stale until the next run
	worst := readSlot(t, appCtx, cache.KeyWorstMessages)
	stale, _ := worst.Get("hello")
	assert.Equal(t, int64(1), stale)

	require.NoError(t, agg.RecomputeWorstMessages(ctx))
	worst = readSlot(t, appCtx, cache.KeyWorstMessages)
	fresh, _ := worst.Get("hello")
	assert.Equal(t, int64(0), fresh)
}

func TestRecomputeUserScoresFormula(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	// "hello" already carries 2 likes and 1 dislike; one more liked
	// message brings Alice to 3 likes, 1 dislike in total
	msg := db.Message{ID: 2, Body: "second", AuthorID: 1, RoomID: 1}
	require.NoError(t, appCtx.DB.Create(&msg).Error)
	_, _, err := repo.Toggle(ctx, 2, 2, db.RatingLike)
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeUserScores(ctx))

	scores := readSlot(t, appCtx, cache.KeyUsersScoring)
	aliceScore, ok := scores.Get("Alice")
	require.True(t, ok)
	// 3 likes * 2 - 1 dislike * 3
	assert.Equal(t, int64(3), aliceScore)

	// users with no authored ratings score zero and still appear
	bobScore, ok := scores.Get("Bob")
	require.True(t, ok)
	assert.Equal(t, int64(0), bobScore)

	// Alice leads the board
	entries := scores.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "Alice", entries[0].Key)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	first, _, err := appCtx.RedisCache.GetLeaderboard(ctx, cache.KeyBestMessages)
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	second, _, err := appCtx.RedisCache.GetLeaderboard(ctx, cache.KeyBestMessages)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestFailedJobLeavesSlotUntouched(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	require.NoError(t, agg.RecomputeBestMessages(ctx))
	before, _, err := appCtx.RedisCache.GetLeaderboard(ctx, cache.KeyBestMessages)
	require.NoError(t, err)

	// break the store read; the job must abort without writing
	require.NoError(t, appCtx.DB.Migrator().RenameTable("messages", "messages_broken"))
	assert.Error(t, agg.RecomputeBestMessages(ctx))

	after, _, err := appCtx.RedisCache.GetLeaderboard(ctx, cache.KeyBestMessages)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// the other jobs are unaffected
	assert.NoError(t, agg.RecomputeUserScores(ctx))
}

func TestSortOrderInSerializedSlot(t *testing.T) {
	ctx := context.Background()
	agg, repo, appCtx := setupAggregator(t)
	seedForum(t, appCtx, repo)

	// a second message with one like ranks below "hello"
	msg := db.Message{ID: 2, Body: "also nice", AuthorID: 2, RoomID: 1}
	require.NoError(t, appCtx.DB.Create(&msg).Error)
	_, _, err := repo.Toggle(ctx, 1, 2, db.RatingLike)
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeBestMessages(ctx))

	best := readSlot(t, appCtx, cache.KeyBestMessages)
	entries := best.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Key)
	assert.Equal(t, int64(2), entries[0].Score)
	assert.Equal(t, "also nice", entries[1].Key)
	assert.Equal(t, int64(1), entries[1].Score)
}
