package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	svcErr "github.com/WeWe-power/DiscussionProject/internal/errors"
)

// Service handles signup and profile reads/updates. Session mechanics
// live outside this service; it only owns the user rows.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// DTO is the outward shape of a user profile.
type DTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDTO(u db.User) DTO {
	return DTO{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates a user. Usernames are stored lowercase; username and
// email must be unique.
func (s *Service) Register(ctx context.Context, name, username, email, password string) (*DTO, error) {
	name = strings.TrimSpace(name)
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)

	switch {
	case name == "" || len(name) > 100:
		return nil, fmt.Errorf("%w: name", svcErr.ErrInvalidInput)
	case username == "" || len(username) > 25:
		return nil, fmt.Errorf("%w: username", svcErr.ErrInvalidInput)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: email", svcErr.ErrInvalidInput)
	case len(password) < 4 || len(password) > 128:
		return nil, fmt.Errorf("%w: password", svcErr.ErrInvalidInput)
	}

	var count int64
	err := s.appCtx.DB.WithContext(ctx).Model(&db.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username or email taken", svcErr.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.appCtx.DB.WithContext(ctx).Create(&user).Error; err != nil {
		// racing signup can still hit the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username or email taken", svcErr.ErrConflict)
		}
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "id", user.ID, "username", user.Username)
	dto := toDTO(user)
	return &dto, nil
}

// Get returns one user profile.
func (s *Service) Get(ctx context.Context, id uint64) (*DTO, error) {
	var user db.User
	if err := s.appCtx.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	dto := toDTO(user)
	return &dto, nil
}

// Update changes profile fields; nil means leave unchanged.
func (s *Service) Update(ctx context.Context, id uint64, name, bio *string) (*DTO, error) {
	var user db.User
	if err := s.appCtx.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > 100 {
			return nil, fmt.Errorf("%w: name", svcErr.ErrInvalidInput)
		}
		updates["name"] = trimmed
	}
	if bio != nil {
		updates["bio"] = strings.TrimSpace(*bio)
	}
	if len(updates) > 0 {
		if err := s.appCtx.DB.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	dto := toDTO(user)
	return &dto, nil
}
