package db

import (
	"fmt"
	"time"
)

// RatingValue is the vote a user can place on a message.
// The store accepts exactly Like or Dislike, nothing else.
type RatingValue string

const (
	RatingLike    RatingValue = "Like"
	RatingDislike RatingValue = "Dislike"
)

// ParseRatingValue validates a raw value literal from the outside world.
func ParseRatingValue(raw string) (RatingValue, error) {
	switch RatingValue(raw) {
	case RatingLike:
		return RatingLike, nil
	case RatingDislike:
		return RatingDislike, nil
	}
	return "", fmt.Errorf("invalid rating value %q", raw)
}

// User table
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:100;not null"`
	Username     string    `gorm:"uniqueIndex;size:25;not null"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Bio          string    `gorm:"type:text"`
	Active       bool      `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Topic is a named category rooms hang off.
type Topic struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:25;not null"`
}

// Room is a discussion thread under a topic.
//
// Host and Topic are nullable: deleting either leaves the room in place
// with the reference cleared (SET NULL). Rooms list newest-created first.
type Room struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:50;not null"`
	Description  string    `gorm:"type:text"`
	HostID       *uint64   `gorm:"index"`
	Host         *User     `gorm:"foreignKey:HostID;constraint:OnDelete:SET NULL"`
	TopicID      *uint64   `gorm:"index"`
	Topic        *Topic    `gorm:"foreignKey:TopicID;constraint:OnDelete:SET NULL"`
	Participants []User    `gorm:"many2many:room_participants;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_rooms_created,sort:desc"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Message is a single post in a room. Deleting the author or the room
// deletes the message (CASCADE).
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Body      string    `gorm:"type:text;not null"`
	AuthorID  uint64    `gorm:"not null;index"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	RoomID    uint64    `gorm:"not null;index"`
	Room      Room      `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_messages_updated,sort:desc"`
}

// MessageRating is one user's Like/Dislike vote on one message.
//
// Unique composite index idx_ratings_rater_message(rater_id, message_id):
//   - At most one rating per (rater, message) pair. The toggle transaction
//     relies on this to stay duplicate-free under concurrent requests.
//
// AuthorID is denormalized from the message so user scoring can aggregate
// on a single table. TopicID follows the room's topic and is nullable for
// the same reason the room's is.
//
// Every referenced row cascades: deleting the room, topic, message or
// either user removes the rating.
type MessageRating struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement"`
	RoomID    uint64      `gorm:"not null;index"`
	Room      Room        `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	TopicID   *uint64     `gorm:"index"`
	Topic     *Topic      `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE"`
	AuthorID  uint64      `gorm:"not null;index:idx_ratings_author_value,priority:1"`
	Author    User        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	RaterID   uint64      `gorm:"not null;uniqueIndex:idx_ratings_rater_message,priority:1"`
	Rater     User        `gorm:"foreignKey:RaterID;constraint:OnDelete:CASCADE"`
	MessageID uint64      `gorm:"not null;uniqueIndex:idx_ratings_rater_message,priority:2;index"`
	Message   Message     `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	Value     RatingValue `gorm:"size:50;not null;default:'Like';index:idx_ratings_author_value,priority:2"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}
