package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	repos   *repomanager.MemoryRepositoryManager
	clock   *clock
	users   *UserService
	auth    *AuthService
	diaries *DiaryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	log := logging.Nop{}
	c := &clock{t: testNow}

	f := &fixture{
		repos:   m,
		clock:   c,
		users:   NewUserService(m, hasher, log),
		auth:    NewAuthService(m, hasher, "test-secret", time.Hour, log),
		diaries: NewDiaryService(m, log),
	}
	f.users.now = c.Now
	f.auth.now = c.Now
	f.diaries.now = c.Now
	return f
}

func (f *fixture) register(t *testing.T, username, password string) *models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), username, password)
	require.NoError(t, err)
	return u
}
