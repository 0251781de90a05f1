package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	repo "github.com/buddybloom/buddybloom/internal/domain/repository"
	"github.com/buddybloom/buddybloom/pkg/helpers"
	"github.com/buddybloom/buddybloom/pkg/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// RegistryService owns User node CRUD and the username uniqueness rule.
// Counters are never touched here; only the follow engine mutates them.
type RegistryService struct {
	Store  repo.GraphStore
	Logger *logrus.Logger
}

func NewRegistryService(store repo.GraphStore, logger *logrus.Logger) *RegistryService {
	return &RegistryService{Store: store, Logger: logger}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,uname"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
	Bio      string `json:"bio" validate:"max=280"`
	Password string `json:"password" validate:"required,pwd"`
}

// Register hashes the password, assigns a fresh userId and creates the user.
// If the username is already taken the existing record is returned unchanged
// with created=false; the caller decides whether that is a conflict.
func (s *RegistryService) Register(ctx context.Context, in RegisterInput) (*entity.User, bool, error) {
	if err := validation.Struct(in); err != nil {
		// Join keeps the field-level validator errors reachable for display.
		return nil, false, errors.Join(entity.ErrInvalidArgument, err)
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}
	u := &entity.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Bio:          in.Bio,
		PasswordHash: hash,
	}
	return s.CreateUser(ctx, u)
}

// CreateUser is the idempotent create-by-username primitive. A concurrent
// uniqueness conflict reported by the store is retried as a lookup, per the
// re-read-after-write recovery pattern.
func (s *RegistryService) CreateUser(ctx context.Context, u *entity.User) (*entity.User, bool, error) {
	stored, created, err := s.Store.UpsertUser(ctx, u)
	if errors.Is(err, entity.ErrConstraintViolation) {
		existing, lookupErr := s.Store.GetUserByUsername(ctx, u.Username)
		if lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	if created && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": stored.ID, "username": stored.Username}).Debug("user created")
	}
	return stored, created, nil
}

// GetByID returns (nil, nil) when the user does not exist.
func (s *RegistryService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.Store.GetUserByID(ctx, id)
}

// GetByUsername returns (nil, nil) when the user does not exist.
func (s *RegistryService) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.Store.GetUserByUsername(ctx, username)
}

// UpdateUserInput carries the optional fields of a partial update.
// Nil pointers are left untouched.
type UpdateUserInput struct {
	Username     *string
	Name         *string
	Email        *string
	Bio          *string
	AvatarURL    *string
	PasswordHash *string
}

func (in UpdateUserInput) fields() map[string]any {
	out := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set("username", in.Username)
	set("name", in.Name)
	set("email", in.Email)
	set("bio", in.Bio)
	set("avatarUrl", in.AvatarURL)
	set("passwordHash", in.PasswordHash)
	return out
}

// UpdateUser applies the supplied fields and returns the full updated
// record. Supplying no fields is a no-op returning (nil, nil), as is an
// unknown userId.
func (s *RegistryService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	fields := in.fields()
	if len(fields) == 0 {
		return nil, nil
	}
	return s.Store.UpdateUserFields(ctx, id, fields)
}

// DeleteUser removes the node and cascades to its incident edges and the
// surviving endpoints' counters. Returns false for an unknown id.
func (s *RegistryService) DeleteUser(ctx context.Context, id string) (bool, error) {
	removed, err := s.Store.DeleteUser(ctx, id)
	if err != nil {
		return false, err
	}
	if removed && s.Logger != nil {
		s.Logger.WithField("user_id", id).Info("user deleted")
	}
	return removed, nil
}

// Authenticate verifies a username/password pair against the stored bcrypt
// hash. Callers receive ErrInvalidCredentials for both unknown users and
// wrong passwords so the two cases are indistinguishable.
func (s *RegistryService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
