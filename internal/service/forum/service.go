package forum

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	svcErr "github.com/WeWe-power/DiscussionProject/internal/errors"
	"github.com/WeWe-power/DiscussionProject/internal/utils/pagination"
)

// Service covers the topic/room/message CRUD surface around the rating
// core. Plumbing, no clever logic: validate, query, shape.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// --- Topics ---

func (s *Service) CreateTopic(ctx context.Context, name string) (*db.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 25 {
		return nil, fmt.Errorf("%w: topic name", svcErr.ErrInvalidInput)
	}
	topic := db.Topic{Name: name}
	if err := s.appCtx.DB.WithContext(ctx).Create(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *Service) ListTopics(ctx context.Context) ([]db.Topic, error) {
	var topics []db.Topic
	err := s.appCtx.DB.WithContext(ctx).Order("id").Find(&topics).Error
	return topics, err
}

func (s *Service) GetTopic(ctx context.Context, id uint64) (*db.Topic, error) {
	var topic db.Topic
	if err := s.appCtx.DB.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// TopicRooms lists the rooms filed under one topic, newest first.
func (s *Service) TopicRooms(ctx context.Context, topicID uint64) ([]RoomDTO, error) {
	if _, err := s.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	var rooms []db.Room
	err := s.appCtx.DB.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("created_at DESC, updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return roomDTOs(rooms), nil
}

// --- Rooms ---

// RoomDTO is the outward shape of a room.
type RoomDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HostID      *uint64   `json:"host_id,omitempty"`
	TopicID     *uint64   `json:"topic_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func roomDTO(r db.Room) RoomDTO {
	return RoomDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		HostID:      r.HostID,
		TopicID:     r.TopicID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roomDTOs(rooms []db.Room) []RoomDTO {
	out := make([]RoomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomDTO(r))
	}
	return out
}

func (s *Service) CreateRoom(ctx context.Context, hostID uint64, topicID *uint64, name, description string) (*RoomDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return nil, fmt.Errorf("%w: room name", svcErr.ErrInvalidInput)
	}
	if topicID != nil {
		if _, err := s.GetTopic(ctx, *topicID); err != nil {
			return nil, err
		}
	}
	room := db.Room{Name: name, Description: description, HostID: &hostID, TopicID: topicID}
	if err := s.appCtx.DB.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, err
	}
	dto := roomDTO(room)
	return &dto, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]RoomDTO, error) {
	var rooms []db.Room
	err := s.appCtx.DB.WithContext(ctx).
		Order("created_at DESC, updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return roomDTOs(rooms), nil
}

func (s *Service) GetRoom(ctx context.Context, id uint64) (*RoomDTO, error) {
	var room db.Room
	if err := s.appCtx.DB.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	dto := roomDTO(room)
	return &dto, nil
}

// DeleteRoom removes a room; only the host may do it. Messages and
// ratings go with it via the cascade constraints.
func (s *Service) DeleteRoom(ctx context.Context, id, userID uint64) error {
	var room db.Room
	if err := s.appCtx.DB.WithContext(ctx).First(&room, id).Error; err != nil {
		return err
	}
	if room.HostID == nil || *room.HostID != userID {
		return fmt.Errorf("%w: only the host can delete a room", svcErr.ErrForbidden)
	}
	return s.appCtx.DB.WithContext(ctx).Delete(&room).Error
}

// RoomParticipants lists the users who posted in a room.
func (s *Service) RoomParticipants(ctx context.Context, roomID uint64) ([]UserRef, error) {
	var room db.Room
	err := s.appCtx.DB.WithContext(ctx).Preload("Participants").First(&room, roomID).Error
	if err != nil {
		return nil, err
	}
	out := make([]UserRef, 0, len(room.Participants))
	for _, u := range room.Participants {
		out = append(out, UserRef{ID: u.ID, Name: u.Name, Username: u.Username})
	}
	return out, nil
}

// UserRef is a compact user reference embedded in room/message payloads.
type UserRef struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// --- Messages ---

// MessageDTO is the outward shape of a message.
type MessageDTO struct {
	ID        uint64    `json:"id"`
	Body      string    `json:"body"`
	AuthorID  uint64    `json:"author_id"`
	RoomID    uint64    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func messageDTO(m db.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		Body:      m.Body,
		AuthorID:  m.AuthorID,
		RoomID:    m.RoomID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CreateMessage posts a message and joins the author to the room's
// participants, both inside one transaction.
func (s *Service) CreateMessage(ctx context.Context, authorID, roomID uint64, body string) (*MessageDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body", svcErr.ErrInvalidInput)
	}

	var msg db.Message
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author db.User
		if err := tx.Select("id").First(&author, authorID).Error; err != nil {
			return err
		}
		var room db.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			return err
		}
		if err := tx.Model(&room).Association("Participants").Append(&db.User{ID: authorID}); err != nil {
			return err
		}
		msg = db.Message{Body: body, AuthorID: authorID, RoomID: roomID}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	dto := messageDTO(msg)
	return &dto, nil
}

func (s *Service) GetMessage(ctx context.Context, id uint64) (*MessageDTO, error) {
	var msg db.Message
	if err := s.appCtx.DB.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	dto := messageDTO(msg)
	return &dto, nil
}

// UpdateMessage rewrites a message body; author only.
func (s *Service) UpdateMessage(ctx context.Context, id, userID uint64, body string) (*MessageDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body", svcErr.ErrInvalidInput)
	}
	var msg db.Message
	if err := s.appCtx.DB.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	if msg.AuthorID != userID {
		return nil, fmt.Errorf("%w: you are not the author of this message", svcErr.ErrForbidden)
	}
	if err := s.appCtx.DB.WithContext(ctx).Model(&msg).Update("body", body).Error; err != nil {
		return nil, err
	}
	dto := messageDTO(msg)
	return &dto, nil
}

// DeleteMessage removes a message; author only. Its ratings cascade away.
func (s *Service) DeleteMessage(ctx context.Context, id, userID uint64) error {
	var msg db.Message
	if err := s.appCtx.DB.WithContext(ctx).First(&msg, id).Error; err != nil {
		return err
	}
	if msg.AuthorID != userID {
		return fmt.Errorf("%w: you are not the author of this message", svcErr.ErrForbidden)
	}
	return s.appCtx.DB.WithContext(ctx).Delete(&msg).Error
}

// RoomMessages lists a room's messages newest-updated first with
// cursor-based pagination.
func (s *Service) RoomMessages(
	ctx context.Context,
	roomID uint64,
	paginationToken *string,
	limit int,
) ([]MessageDTO, *string, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, nil, err
	}

	token := ""
	if paginationToken != nil {
		token = *paginationToken
	}
	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", svcErr.ErrInvalidInput, err)
	}

	query := s.appCtx.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("updated_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.MessageID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(updated_at < ? OR (updated_at = ? AND id < ?))",
			ts, ts, cursor.MessageID,
		)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		next, _ := pagination.Encode(pagination.Cursor{
			MessageID:   last.ID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &next
		msgs = msgs[:limit]
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDTO(m))
	}
	return out, nextToken, nil
}
