package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
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

// AuthService verifies credentials, changes passwords and manages the
// server-side sessions behind session tokens.
type AuthService struct {
	repomanager     repomanager.RepositoryManager
	hasher          auth.PasswordHasher
	secretKey       []byte
	sessionValidity time.Duration
	log             logging.Logger
	now             func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(m repomanager.RepositoryManager, hasher auth.PasswordHasher, secretKey string, sessionValidity time.Duration, log logging.Logger) *AuthService {
	return &AuthService{
		repomanager:     m,
		hasher:          hasher,
		secretKey:       []byte(secretKey),
		sessionValidity: sessionValidity,
		log:             log.With("module", "auth"),
		now:             utcNow,
	}
}

// Authenticate returns the user when password matches, and nil, nil for an
// unknown user or a wrong password alike.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.repomanager.Conn()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// spend the same hashing time as a real mismatch
			s.hasher.Verify(s.dummy(), password)
			return nil, nil
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

// ChangePassword replaces the hash when oldPassword verifies and revokes all
// of the user's sessions in the same transaction. It returns false for an
// unknown user or a wrong old password, and common.ErrWeakPassword when the
// new password is too short.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (bool, error) {
	changed := false

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		usersRepo := s.repomanager.Users(tx)

		user, err := usersRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if !s.hasher.Verify(user.PasswordHash, oldPassword) {
			return nil
		}
		if utf8.RuneCountInString(newPassword) < common.MinPasswordLength {
			return common.ErrWeakPassword
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}
		if err := usersRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		revoked, err := s.repomanager.Sessions(tx).DeleteByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}

		s.log.Info(ctx, "password changed", "user_id", user.ID, "sessions_revoked", revoked)
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Login authenticates and opens a session, returning it together with the
// signed token the client must present. Failure is common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Session, string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		s.log.Warn(ctx, "login failed")
		return nil, "", common.ErrInvalidCredentials
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionValidity),
		CreatedAt: now,
	}

	token, err := auth.GenerateToken(session.ID, user.ID, s.secretKey, now, session.ExpiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("error signing token: %w", err)
	}
	if err := s.repomanager.Sessions(s.repomanager.Conn()).Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("error creating session: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID, "session_id", session.ID)
	return session, token, nil
}

// Logout ends the session named by token. An invalid or unknown token is
// not an error: there is nothing left to end.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.secretKey, s.now())
	if err != nil {
		return nil
	}
	if err := s.repomanager.Sessions(s.repomanager.Conn()).Delete(ctx, claims.SessionID()); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	s.log.Info(ctx, "user logged out", "user_id", claims.UserID, "session_id", claims.SessionID())
	return nil
}

// ResolveSession returns the user id bound to a live session token, or
// common.ErrUnauthenticated.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthenticated
	}

	claims, err := auth.ParseToken(token, s.secretKey, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	session, err := s.repomanager.Sessions(s.repomanager.Conn()).Find(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUnauthenticated
		}
		return "", fmt.Errorf("error loading session: %w", err)
	}
	if session.Expired(s.now()) || session.UserID != claims.UserID {
		return "", common.ErrUnauthenticated
	}
	return session.UserID, nil
}

// ResetPassword is the unauthenticated password change flow keyed by
// username. It fails with common.ErrUserNotFound, common.ErrCurrentPasswordWrong
// or common.ErrWeakPassword.
func (s *AuthService) ResetPassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := optional(s.repomanager.Users(s.repomanager.Conn()).GetByUsername(ctx, username))
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if user == nil {
		return common.ErrUserNotFound
	}

	ok, err := s.ChangePassword(ctx, user.ID, currentPassword, newPassword)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrCurrentPasswordWrong
	}
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.repomanager.Conn()).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	if n > 0 {
		s.log.Debug(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}
