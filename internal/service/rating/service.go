package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	svcErr "github.com/WeWe-power/DiscussionProject/internal/errors"
	"github.com/WeWe-power/DiscussionProject/internal/metrics"
	"github.com/WeWe-power/DiscussionProject/internal/repository"
)

// Service owns the rating toggle and the raw rating read queries.
// The leaderboard slots are not touched here; the aggregator rebuilds
// them on its own schedule.
type Service struct {
	appCtx     *app.AppContext
	ratingRepo *repository.RatingRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		ratingRepo: repository.NewRatingRepository(appCtx.DB),
	}
}

// ToggleResult reports what a rate action did and where to send the
// user afterwards.
type ToggleResult struct {
	Action repository.ToggleAction
	RoomID uint64
}

// Toggle applies a rate action from rater on message. rawValue must be
// the literal "Like" or "Dislike"; anything else is rejected before any
// row is touched.
func (s *Service) Toggle(ctx context.Context, raterID, messageID uint64, rawValue string) (*ToggleResult, error) {
	value, err := db.ParseRatingValue(rawValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", svcErr.ErrInvalidValue, rawValue)
	}

	action, roomID, err := s.ratingRepo.Toggle(ctx, raterID, messageID, value)
	if err != nil {
		s.appCtx.Logger.Error("toggle failed", "rater", raterID, "message", messageID, "err", err)
		return nil, err
	}

	metrics.RatingTogglesTotal.WithLabelValues(string(action)).Inc()
	s.appCtx.Logger.Debug("rating toggled",
		"rater", raterID, "message", messageID, "value", value, "action", action)

	return &ToggleResult{Action: action, RoomID: roomID}, nil
}

// DTO is the outward shape of a rating row.
type DTO struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	TopicID   *uint64   `json:"topic_id,omitempty"`
	AuthorID  uint64    `json:"author_id"`
	RaterID   uint64    `json:"rater_id"`
	MessageID uint64    `json:"message_id"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDTO(r db.MessageRating) DTO {
	return DTO{
		ID:        r.ID,
		RoomID:    r.RoomID,
		TopicID:   r.TopicID,
		AuthorID:  r.AuthorID,
		RaterID:   r.RaterID,
		MessageID: r.MessageID,
		Value:     string(r.Value),
		UpdatedAt: r.UpdatedAt,
	}
}

func toDTOs(rows []db.MessageRating) []DTO {
	out := make([]DTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDTO(r))
	}
	return out
}

// List returns every rating in the store.
func (s *Service) List(ctx context.Context) ([]DTO, error) {
	rows, err := s.ratingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// ListByValue returns all likes or all dislikes.
func (s *Service) ListByValue(ctx context.Context, rawValue string) ([]DTO, error) {
	value, err := db.ParseRatingValue(rawValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", svcErr.ErrInvalidValue, rawValue)
	}
	rows, err := s.ratingRepo.ListByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// ListForMessage returns the ratings placed on one message.
func (s *Service) ListForMessage(ctx context.Context, messageID uint64) ([]DTO, error) {
	rows, err := s.ratingRepo.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// Get fetches a single rating by id.
func (s *Service) Get(ctx context.Context, id uint64) (*DTO, error) {
	row, err := s.ratingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

// Counts returns the store-wide like and dislike totals.
func (s *Service) Counts(ctx context.Context) (likes, dislikes int64, err error) {
	likes, err = s.ratingRepo.CountByValue(ctx, db.RatingLike)
	if err != nil {
		return 0, 0, err
	}
	dislikes, err = s.ratingRepo.CountByValue(ctx, db.RatingDislike)
	if err != nil {
		return 0, 0, err
	}
	return likes, dislikes, nil
}
