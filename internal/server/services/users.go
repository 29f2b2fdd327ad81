package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UserService is the credential store: registration and user lookups.
type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	log         logging.Logger
	now         func() time.Time
}

func NewUserService(m repomanager.RepositoryManager, hasher auth.PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "users"),
		now:         utcNow,
	}
}

// Register creates an account storing only a hash of password.
// It fails with common.ErrUsernameTaken or common.ErrWeakPassword.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.repomanager.Conn())

	exists, err := repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if exists {
		return nil, common.ErrUsernameTaken
	}
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return nil, common.ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	u, err := repo.Create(ctx, user)
	if err != nil {
		// lost a race with a concurrent registration
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// FindByUsername returns nil, nil when no such user exists.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.repomanager.Users(s.repomanager.Conn()).GetByUsername(ctx, username)
	return optional(u, err)
}

// FindByID returns nil, nil when no such user exists.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repomanager.Users(s.repomanager.Conn()).GetByID(ctx, id)
	return optional(u, err)
}

func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	exists, err := s.repomanager.Users(s.repomanager.Conn()).ExistsByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// optional turns a repository not-found into an absent value.
func optional[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
