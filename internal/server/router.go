package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/config"
	"github.com/WeWe-power/DiscussionProject/internal/metrics"
	"github.com/WeWe-power/DiscussionProject/internal/mw"
	"github.com/WeWe-power/DiscussionProject/internal/service/forum"
	"github.com/WeWe-power/DiscussionProject/internal/service/leaderboard"
	"github.com/WeWe-power/DiscussionProject/internal/service/rating"
	"github.com/WeWe-power/DiscussionProject/internal/service/user"
)

// SetupRouter wires middleware, the forum REST API and the leaderboard
// endpoints into one gin engine. The returned cleanup stops the rate
// limiter's GC goroutine and belongs in the shutdown path.
func SetupRouter(cfg *config.Config, appCtx *app.AppContext) (*gin.Engine, func()) {
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	rl := mw.NewRateLimiter(rate.Every(time.Second/20), 40, 2*time.Minute)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(rl.Middleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-User-ID")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(
		user.NewService(appCtx),
		forum.NewService(appCtx),
		rating.NewService(appCtx),
		leaderboard.NewService(appCtx),
	)

	api := r.Group("/api/v1")

	api.POST("/users", h.RegisterUser)
	api.GET("/users/:id", h.GetUser)
	api.PATCH("/users/:id", h.UpdateUser)

	api.GET("/topics", h.ListTopics)
	api.POST("/topics", h.CreateTopic)
	api.GET("/topics/:id", h.GetTopic)
	api.GET("/topics/:id/rooms", h.TopicRooms)

	api.GET("/rooms", h.ListRooms)
	api.POST("/rooms", h.CreateRoom)
	api.GET("/rooms/:id", h.GetRoom)
	api.DELETE("/rooms/:id", h.DeleteRoom)
	api.GET("/rooms/:id/messages", h.RoomMessages)
	api.POST("/rooms/:id/messages", h.CreateMessage)
	api.GET("/rooms/:id/participants", h.RoomParticipants)

	api.GET("/messages/:id", h.GetMessage)
	api.PATCH("/messages/:id", h.UpdateMessage)
	api.DELETE("/messages/:id", h.DeleteMessage)
	api.GET("/messages/:id/ratings", h.MessageRatings)
	api.POST("/messages/:id/rate/:value", h.ToggleRating)

	api.GET("/ratings", h.ListRatings)
	api.GET("/ratings/likes", h.ListLikes)
	api.GET("/ratings/dislikes", h.ListDislikes)
	api.GET("/ratings/:id", h.GetRating)

	api.GET("/leaderboards/best-messages", h.BestMessages)
	api.GET("/leaderboards/worst-messages", h.WorstMessages)
	api.GET("/leaderboards/users-scoring", h.UserScores)

	return r, rl.Stop
}
