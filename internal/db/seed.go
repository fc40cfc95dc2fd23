package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo forum data:
// a handful of topics, 10 users, a room per topic, chatter in each room
// and a spread of likes/dislikes (~70% likes) for the aggregator to chew on.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"message_ratings", "room_participants", "messages", "rooms", "topics", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 10)
	for i := 1; i <= 10; i++ {
		users = append(users, User{
			Name:         fmt.Sprintf("User %d", i),
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Printf("Seeded %d users.", len(users))

	topicNames := []string{"golang", "databases", "gaming", "music"}
	topics := make([]Topic, 0, len(topicNames))
	for _, name := range topicNames {
		topics = append(topics, Topic{Name: name})
	}
	if err := db.Create(&topics).Error; err != nil {
		return fmt.Errorf("failed to seed topics: %w", err)
	}

	var messages []Message
	for i, topic := range topics {
		host := users[i%len(users)]
		room := Room{
			Name:        fmt.Sprintf("%s talk", topic.Name),
			Description: fmt.Sprintf("Everything about %s", topic.Name),
			HostID:      &host.ID,
			TopicID:     &topic.ID,
		}
		if err := db.Create(&room).Error; err != nil {
			return fmt.Errorf("failed to seed room: %w", err)
		}

		for j := 0; j < 5; j++ {
			author := users[r.Intn(len(users))]
			msg := Message{
				Body:     fmt.Sprintf("message %d in %s", j+1, room.Name),
				AuthorID: author.ID,
				RoomID:   room.ID,
			}
			if err := db.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to seed message: %w", err)
			}
			if err := db.Model(&room).Association("Participants").Append(&User{ID: author.ID}); err != nil {
				return fmt.Errorf("failed to seed participant: %w", err)
			}
			msg.Room = room
			messages = append(messages, msg)
		}
	}
	log.Printf("Seeded %d messages.", len(messages))

	// each user rates ~half the messages, like probability 70%
	count := 0
	for _, u := range users {
		for _, msg := range messages {
			if r.Intn(100) < 50 {
				continue
			}
			value := RatingLike
			if r.Intn(100) >= 70 {
				value = RatingDislike
			}
			ratingRow := MessageRating{
				RoomID:    msg.RoomID,
				TopicID:   msg.Room.TopicID,
				AuthorID:  msg.AuthorID,
				RaterID:   u.ID,
				MessageID: msg.ID,
				Value:     value,
			}
			if err := db.Create(&ratingRow).Error; err != nil {
				return fmt.Errorf("failed to seed rating: %w", err)
			}
			count++
		}
	}
	log.Printf("Seeded %d ratings.", count)

	return nil
}

// SeedMinimalTestData inserts a small deterministic dataset: Alice, Bob
// and Carol, one topic/room, and a "hello" message by Alice rated
// Like/Like/Dislike.
func SeedMinimalTestData(db *gorm.DB) error {
	for _, table := range []string{"message_ratings", "room_participants", "messages", "rooms", "topics", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}

	users := []User{
		{ID: 1, Name: "Alice", Username: "alice", Email: "alice@test.com", PasswordHash: "x"},
		{ID: 2, Name: "Bob", Username: "bob", Email: "bob@test.com", PasswordHash: "x"},
		{ID: 3, Name: "Carol", Username: "carol", Email: "carol@test.com", PasswordHash: "x"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	topic := Topic{ID: 1, Name: "general"}
	if err := db.Create(&topic).Error; err != nil {
		return err
	}

	hostID, topicID := uint64(1), uint64(1)
	room := Room{ID: 1, Name: "lobby", Description: "the lobby", HostID: &hostID, TopicID: &topicID}
	if err := db.Create(&room).Error; err != nil {
		return err
	}

	msg := Message{ID: 1, Body: "hello", AuthorID: 1, RoomID: 1}
	if err := db.Create(&msg).Error; err != nil {
		return err
	}

	ratings := []MessageRating{
		{RoomID: 1, TopicID: &topicID, AuthorID: 1, RaterID: 1, MessageID: 1, Value: RatingLike},
		{RoomID: 1, TopicID: &topicID, AuthorID: 1, RaterID: 2, MessageID: 1, Value: RatingLike},
		{RoomID: 1, TopicID: &topicID, AuthorID: 1, RaterID: 3, MessageID: 1, Value: RatingDislike},
	}
	return db.Create(&ratings).Error
}
