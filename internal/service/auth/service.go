package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/store"
	"planboard/internal/util"
)

// UserStore is the user collection surface. *repository.UserRepository
// implements it.
type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id string, set bson.M) error
}

// ErrInvalidCredentials is returned by Login for any credential failure,
// including unclaimed placeholder accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	users     UserStore
	jwtSecret string
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{users: users, jwtSecret: jwtSecret, logger: logger}
}

// Register creates a new user. A placeholder user created during a plan
// import is claimed instead: same id, real password hash, flag cleared, so
// existing member and assignee references stay valid.
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("email", "a valid email is required")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password", "must be at least 8 characters")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("auth.Register", err)
	}
	if existing != nil {
		if !existing.Placeholder {
			return nil, apperr.Conflict("email already registered")
		}
		set := bson.M{
			"password_hash": hash,
			"placeholder":   false,
		}
		if name != "" {
			set["name"] = name
		}
		if err := s.users.Update(ctx, existing.ID, set); err != nil {
			return nil, apperr.Storage("auth.Register", err)
		}
		existing.PasswordHash = hash
		existing.Placeholder = false
		if name != "" {
			existing.Name = name
		}
		s.logger.Info("Placeholder user claimed", zap.String("user_id", existing.ID))
		return existing, nil
	}

	u := &model.User{
		ID:           store.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, apperr.Storage("auth.Register", err)
	}
	s.logger.Info("User registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks credentials and returns a signed token. Placeholder users
// cannot log in until claimed.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", apperr.Storage("auth.Login", err)
	}
	if u == nil || u.Placeholder || !util.CheckPassword(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return util.GenerateJWT(u.ID, s.jwtSecret)
}
