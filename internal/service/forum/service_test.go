package forum_test

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

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/cache"
	"github.com/WeWe-power/DiscussionProject/internal/config"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	svcErr "github.com/WeWe-power/DiscussionProject/internal/errors"
	"github.com/WeWe-power/DiscussionProject/internal/service/forum"
)

func setupService(t *testing.T) (*forum.Service, *app.AppContext) {
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
	return forum.NewService(appCtx), appCtx
}

func TestTopicCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	topic, err := svc.CreateTopic(ctx, "  reviews  ")
	require.NoError(t, err)
	assert.Equal(t, "reviews", topic.Name)

	_, err = svc.CreateTopic(ctx, "")
	assert.ErrorIs(t, err, svcErr.ErrInvalidInput)

	topics, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	got, err := svc.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviews", got.Name)
}

func TestRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	topicID := uint64(1)
	room, err := svc.CreateRoom(ctx, 2, &topicID, "side chat", "off topic chatter")
	require.NoError(t, err)
	require.NotNil(t, room.HostID)
	assert.Equal(t, uint64(2), *room.HostID)

	// unknown topic
	badTopic := uint64(99)
	_, err = svc.CreateRoom(ctx, 2, &badTopic, "nope", "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	rooms, err := svc.TopicRooms(ctx, topicID)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	// only the host can delete
	err = svc.DeleteRoom(ctx, room.ID, 1)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	require.NoError(t, svc.DeleteRoom(ctx, room.ID, 2))

	_, err = svc.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateMessageJoinsParticipants(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	msg, err := svc.CreateMessage(ctx, 2, 1, "hi there")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), msg.RoomID)

	participants, err := svc.RoomParticipants(ctx, 1)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "bob", participants[0].Username)

	// posting again does not duplicate the membership
	_, err = svc.CreateMessage(ctx, 2, 1, "me again")
	require.NoError(t, err)
	participants, err = svc.RoomParticipants(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}

func TestMessageAuthorOnlyEdits(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, err := svc.UpdateMessage(ctx, 1, 2, "hijacked")
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	updated, err := svc.UpdateMessage(ctx, 1, 1, "hello, edited")
	require.NoError(t, err)
	assert.Equal(t, "hello, edited", updated.Body)

	err = svc.DeleteMessage(ctx, 1, 3)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	require.NoError(t, svc.DeleteMessage(ctx, 1, 1))

	// ratings cascade with the message
	var n int64
	require.NoError(t, appCtx.DB.Model(&db.MessageRating{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestRoomMessagesPagination(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	for i := 2; i <= 6; i++ {
		msg := db.Message{
			ID:       uint64(i),
			Body:     fmt.Sprintf("msg %d", i),
			AuthorID: 1,
			RoomID:   1,
		}
		require.NoError(t, appCtx.DB.Create(&msg).Error)
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, appCtx.DB.Model(&msg).
			UpdateColumns(map[string]interface{}{"created_at": ts, "updated_at": ts}).Error)
	}

	// room 1 now holds "hello" (seeded just now, newest) plus msg 2..6
	page1, next, err := svc.RoomMessages(ctx, 1, nil, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotNil(t, next)
	assert.Equal(t, "hello", page1[0].Body)
	assert.Equal(t, "msg 6", page1[1].Body)
	assert.Equal(t, "msg 5", page1[2].Body)

	page2, next2, err := svc.RoomMessages(ctx, 1, next, 3)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, "msg 4", page2[0].Body)
	assert.Equal(t, "msg 2", page2[2].Body)
	assert.Nil(t, next2)

	// garbage token
	bad := "not-a-token"
	_, _, err = svc.RoomMessages(ctx, 1, &bad, 3)
	assert.ErrorIs(t, err, svcErr.ErrInvalidInput)
}
