// Package gateway turns the identity bound to a request context into a
// concrete user. Nothing below this layer reads identity from the context.
package gateway

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

type ctxKey struct{}

// WithUserID binds the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the bound id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// UserFinder is satisfied by services.UserService.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Gateway struct {
	users UserFinder
}

func New(users UserFinder) *Gateway {
	return &Gateway{users: users}
}

// CurrentUser resolves the bound identity. It returns common.ErrUnauthenticated
// when nothing is bound and common.ErrSessionInvalid when the id no longer
// names a user.
func (g *Gateway) CurrentUser(ctx context.Context) (*models.User, error) {
	id, ok := UserID(ctx)
	if !ok {
		return nil, common.ErrUnauthenticated
	}

	user, err := g.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error resolving user: %w", err)
	}
	if user == nil {
		return nil, common.ErrSessionInvalid
	}
	return user, nil
}
