package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/WeWe-power/DiscussionProject/internal/errors"
	"github.com/WeWe-power/DiscussionProject/internal/logger"
	"github.com/WeWe-power/DiscussionProject/internal/service/forum"
	"github.com/WeWe-power/DiscussionProject/internal/service/leaderboard"
	"github.com/WeWe-power/DiscussionProject/internal/service/rating"
	"github.com/WeWe-power/DiscussionProject/internal/service/user"
)

// Handler aggregates the HTTP handlers; services are injected.
type Handler struct {
	userSvc        *user.Service
	forumSvc       *forum.Service
	ratingSvc      *rating.Service
	leaderboardSvc *leaderboard.Service
}

func NewHandler(
	userSvc *user.Service,
	forumSvc *forum.Service,
	ratingSvc *rating.Service,
	leaderboardSvc *leaderboard.Service,
) *Handler {
	return &Handler{
		userSvc:        userSvc,
		forumSvc:       forumSvc,
		ratingSvc:      ratingSvc,
		leaderboardSvc: leaderboardSvc,
	}
}

// currentUserID reads the authenticated user id supplied by the auth
// layer in front of this service (X-User-ID). Zero means anonymous.
func currentUserID(c *gin.Context) uint64 {
	id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func fail(c *gin.Context, err error) {
	status, msg := svcErr.Map(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// --- Users ---

func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.Register(c.Request.Context(), req.Name, req.Username, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if currentUserID(c) != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "can only update your own profile"})
		return
	}
	var req struct {
		Name *string `json:"name"`
		Bio  *string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.Update(c.Request.Context(), id, req.Name, req.Bio)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Topics ---

func (h *Handler) CreateTopic(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	topic, err := h.forumSvc.CreateTopic(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": topic.ID, "name": topic.Name})
}

func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.forumSvc.ListTopics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(topics))
	for _, t := range topics {
		out = append(out, gin.H{"id": t.ID, "name": t.Name})
	}
	c.JSON(http.StatusOK, gin.H{"topics": out})
}

func (h *Handler) GetTopic(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	topic, err := h.forumSvc.GetTopic(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": topic.ID, "name": topic.Name})
}

func (h *Handler) TopicRooms(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rooms, err := h.forumSvc.TopicRooms(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// --- Rooms ---

func (h *Handler) CreateRoom(c *gin.Context) {
	hostID := currentUserID(c)
	if hostID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		TopicID     *uint64 `json:"topic_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	room, err := h.forumSvc.CreateRoom(c.Request.Context(), hostID, req.TopicID, req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.forumSvc.ListRooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	room, err := h.forumSvc.GetRoom(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.forumSvc.DeleteRoom(c.Request.Context(), id, currentUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RoomParticipants(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	participants, err := h.forumSvc.RoomParticipants(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *Handler) RoomMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var token *string
	if raw := c.Query("page_token"); raw != "" {
		token = &raw
	}
	messages, nextToken, err := h.forumSvc.RoomMessages(c.Request.Context(), id, token, limit)
	if err != nil {
		fail(c, err)
		return
	}
	resp := gin.H{"messages": messages}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

// --- Messages ---

func (h *Handler) CreateMessage(c *gin.Context) {
	authorID := currentUserID(c)
	if authorID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.forumSvc.CreateMessage(c.Request.Context(), authorID, roomID, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.forumSvc.GetMessage(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) UpdateMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.forumSvc.UpdateMessage(c.Request.Context(), id, currentUserID(c), req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.forumSvc.DeleteMessage(c.Request.Context(), id, currentUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MessageRatings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.forumSvc.GetMessage(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ratings, err := h.ratingSvc.ListForMessage(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

// --- Rating toggle ---

// ToggleRating handles POST /messages/:id/rate/:value. Whatever the
// toggle decided (create, flip, remove), the client is sent back to the
// room view; only a bad value or a missing message/user is an error.
func (h *Handler) ToggleRating(c *gin.Context) {
	raterID := currentUserID(c)
	if raterID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.ratingSvc.Toggle(c.Request.Context(), raterID, messageID, c.Param("value"))
	if err != nil {
		fail(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/api/v1/rooms/%d", result.RoomID))
}

// --- Ratings (read) ---

func (h *Handler) ListRatings(c *gin.Context) {
	ratings, err := h.ratingSvc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

func (h *Handler) ListLikes(c *gin.Context) {
	ratings, err := h.ratingSvc.ListByValue(c.Request.Context(), "Like")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

func (h *Handler) ListDislikes(c *gin.Context) {
	ratings, err := h.ratingSvc.ListByValue(c.Request.Context(), "Dislike")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

func (h *Handler) GetRating(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.ratingSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Leaderboards ---

// Leaderboard responses are the cache slot verbatim: an ordered JSON
// object, empty when no aggregation has run yet.

func (h *Handler) BestMessages(c *gin.Context) {
	board, err := h.leaderboardSvc.BestMessages(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) WorstMessages(c *gin.Context) {
	board, err := h.leaderboardSvc.WorstMessages(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) UserScores(c *gin.Context) {
	board, err := h.leaderboardSvc.UserScores(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
