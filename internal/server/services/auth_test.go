package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "secret1")

	got, err := f.auth.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	wrongPassword, err := f.auth.Authenticate(ctx, "alice", "wrong")
	require.NoError(t, err)
	unknownUser, err := f.auth.Authenticate(ctx, "nobody", "secret1")
	require.NoError(t, err)

	assert.Nil(t, wrongPassword)
	assert.Nil(t, unknownUser)
}

func TestAuthenticate_StoreError(t *testing.T) {
	f := newFixture(t)
	f.repos.FailWith(errors.New("connection refused"))

	u, err := f.auth.Authenticate(context.Background(), "alice", "secret1")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "secret1")

	_, _, errWrong := f.auth.Login(context.Background(), "alice", "wrong")
	_, _, errUnknown := f.auth.Login(context.Background(), "nobody", "wrong")

	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.Equal(t, errWrong, errUnknown)
}

func TestLoginResolveLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "secret1")

	session, token, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.UserID)
	assert.Equal(t, testNow.Add(time.Hour), session.ExpiresAt)
	assert.NotEmpty(t, token)

	userID, err := f.auth.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, userID)

	require.NoError(t, f.auth.Logout(ctx, token))

	_, err = f.auth.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	assert.NoError(t, f.auth.Logout(ctx, token), "second logout is harmless")
	assert.NoError(t, f.auth.Logout(ctx, "garbage"))
}

func TestResolveSession_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	_, err := f.auth.ResolveSession(ctx, "")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = f.auth.ResolveSession(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	forged, err := auth.GenerateToken("s1", "u1", []byte("other-secret"), testNow, testNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.auth.ResolveSession(ctx, forged)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	// validly signed but no server-side session
	orphan, err := auth.GenerateToken("s1", "u1", []byte("test-secret"), testNow, testNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.auth.ResolveSession(ctx, orphan)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestResolveSession_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	_, token, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	f.clock.Advance(59 * time.Minute)
	_, err = f.auth.ResolveSession(ctx, token)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.auth.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestResolveSession_StoreError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")
	_, token, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	f.repos.FailWith(errors.New("connection refused"))
	_, err = f.auth.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, common.ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "secret1")

	ok, err := f.auth.ChangePassword(ctx, alice.ID, "wrong", "newpass1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.auth.ChangePassword(ctx, "missing", "secret1", "newpass1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.auth.ChangePassword(ctx, alice.ID, "secret1", "short")
	assert.ErrorIs(t, err, common.ErrWeakPassword)
	assert.False(t, ok)

	ok, err = f.auth.ChangePassword(ctx, alice.ID, "secret1", "ééé")
	assert.ErrorIs(t, err, common.ErrWeakPassword, "three characters in six bytes")
	assert.False(t, ok)

	// a weak new password with a wrong old one reports the old one
	ok, err = f.auth.ChangePassword(ctx, alice.ID, "wrong", "short")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.auth.ChangePassword(ctx, alice.ID, "secret1", "newpass1")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := f.auth.Authenticate(ctx, "alice", "newpass1")
	require.NoError(t, err)
	assert.NotNil(t, u)
	u, err = f.auth.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestChangePassword_RevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "secret1")
	f.register(t, "bob", "secret2")

	_, aliceToken, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	_, bobToken, err := f.auth.Login(ctx, "bob", "secret2")
	require.NoError(t, err)

	ok, err := f.auth.ChangePassword(ctx, alice.ID, "secret1", "newpass1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.auth.ResolveSession(ctx, aliceToken)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	_, err = f.auth.ResolveSession(ctx, bobToken)
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	assert.ErrorIs(t, f.auth.ResetPassword(ctx, "nobody", "secret1", "newpass1"), common.ErrUserNotFound)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, "alice", "wrong", "newpass1"), common.ErrCurrentPasswordWrong)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, "alice", "secret1", "tiny"), common.ErrWeakPassword)
	require.NoError(t, f.auth.ResetPassword(ctx, "alice", "secret1", "newpass1"))

	u, err := f.auth.Authenticate(ctx, "alice", "newpass1")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestPurgeExpiredSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	_, _, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	_, _, err = f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	n, err := f.auth.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	f.clock.Advance(time.Hour)
	n, err = f.auth.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	f.repos.FailWith(errors.New("down"))
	_, err = f.auth.PurgeExpiredSessions(ctx)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
