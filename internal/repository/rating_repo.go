package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/WeWe-power/DiscussionProject/internal/db"
)

// ToggleAction reports what a toggle did to the rating row.
type ToggleAction string

const (
	ToggleCreated ToggleAction = "created"
	ToggleFlipped ToggleAction = "flipped"
	ToggleRemoved ToggleAction = "removed"
)

// RatingRepository provides data access for MessageRating rows.
// It owns the one-rating-per-(rater,message) invariant together with the
// unique composite index on the table.
type RatingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a repository bound to the given DB connection.
func NewRatingRepository(database *gorm.DB) *RatingRepository {
	return &RatingRepository{db: database}
}

// Toggle applies a rate action from rater on message:
//
//   - no rating for the pair yet   → create one with the requested value
//   - rating with the other value  → flip it in place
//   - rating with the same value   → delete it (repeat cancels the vote)
//
// The whole decision runs in one transaction, so two concurrent toggles on
// the same pair serialize instead of racing the check-then-act. A racing
// insert that slips through still hits the unique index rather than
// producing a second row.
//
// Returns the action taken and the message's room id so callers can
// redirect back to the room view. Unknown rater or message aborts with
// gorm.ErrRecordNotFound and no mutation.
func (r *RatingRepository) Toggle(
	ctx context.Context,
	raterID, messageID uint64,
	value db.RatingValue,
) (ToggleAction, uint64, error) {
	var (
		action ToggleAction
		roomID uint64
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rater db.User
		if err := tx.Select("id").First(&rater, raterID).Error; err != nil {
			return err
		}

		var msg db.Message
		if err := tx.Preload("Room").First(&msg, messageID).Error; err != nil {
			return err
		}
		roomID = msg.RoomID

		var existing db.MessageRating
		err := tx.
			Where("rater_id = ? AND message_id = ?", raterID, messageID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rating := db.MessageRating{
				RoomID:    msg.RoomID,
				TopicID:   msg.Room.TopicID,
				AuthorID:  msg.AuthorID,
				RaterID:   raterID,
				MessageID: messageID,
				Value:     value,
			}
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
			action = ToggleCreated

		case err != nil:
			return err

		case existing.Value != value:
			if err := tx.Model(&existing).Update("value", value).Error; err != nil {
				return err
			}
			action = ToggleFlipped

		default:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			action = ToggleRemoved
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return action, roomID, nil
}

// Find returns the rating for a (rater, message) pair, if one exists.
func (r *RatingRepository) Find(
	ctx context.Context,
	raterID, messageID uint64,
) (*db.MessageRating, error) {
	var rating db.MessageRating
	err := r.db.WithContext(ctx).
		Where("rater_id = ? AND message_id = ?", raterID, messageID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// CountByValue returns the store-wide count of ratings with the value.
func (r *RatingRepository) CountByValue(ctx context.Context, value db.RatingValue) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.MessageRating{}).
		Where("value = ?", value).
		Count(&count).Error
	return count, err
}

// ListByMessage returns all ratings placed on one message.
func (r *RatingRepository) ListByMessage(ctx context.Context, messageID uint64) ([]db.MessageRating, error) {
	var ratings []db.MessageRating
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("id").
		Find(&ratings).Error
	return ratings, err
}

// ListByValue returns all ratings with the given value, newest first.
func (r *RatingRepository) ListByValue(ctx context.Context, value db.RatingValue) ([]db.MessageRating, error) {
	var ratings []db.MessageRating
	err := r.db.WithContext(ctx).
		Where("value = ?", value).
		Order("updated_at DESC, id DESC").
		Find(&ratings).Error
	return ratings, err
}

// List returns every rating in the store, oldest first.
func (r *RatingRepository) List(ctx context.Context) ([]db.MessageRating, error) {
	var ratings []db.MessageRating
	err := r.db.WithContext(ctx).Order("id").Find(&ratings).Error
	return ratings, err
}

// GetByID fetches a single rating row.
func (r *RatingRepository) GetByID(ctx context.Context, id uint64) (*db.MessageRating, error) {
	var rating db.MessageRating
	if err := r.db.WithContext(ctx).First(&rating, id).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}
