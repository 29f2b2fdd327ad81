package repomanager

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/diaries"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/exports"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/users"
	"github.com/jackc/pgx/v5/pgconn"
)

// memUniqueViolation mirrors what Postgres reports for users_username_key.
var memUniqueViolation = fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

// MemoryRepositoryManager keeps everything in process memory. It backs the
// service and HTTP tests. WithTx restores a snapshot when fn fails.
type MemoryRepositoryManager struct {
	mu    sync.Mutex
	state memoryState
	err   error
}

type memoryState struct {
	users    map[string]models.User
	diaries  map[string]models.Diary
	sessions map[string]models.Session
	exports  map[string]models.Export
}

func (s memoryState) clone() memoryState {
	return memoryState{
		users:    maps.Clone(s.users),
		diaries:  maps.Clone(s.diaries),
		sessions: maps.Clone(s.sessions),
		exports:  maps.Clone(s.exports),
	}
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{state: memoryState{
		users:    map[string]models.User{},
		diaries:  map[string]models.Diary{},
		sessions: map[string]models.Session{},
		exports:  map[string]models.Export{},
	}}
}

// FailWith makes every repository call (and Ping) return err until it is
// reset with nil. Used to simulate an unavailable store.
func (m *MemoryRepositoryManager) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryRepositoryManager) failure() error {
	if m.err != nil {
		return dbx.StoreError(m.err)
	}
	return nil
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure()
}

func (m *MemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
		if err != nil {
			m.restore(snapshot)
		}
	}()

	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) restore(s memoryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository       { return memUsers{m} }
func (m *MemoryRepositoryManager) Diaries(dbx.DBTX) diaries.Repository   { return memDiaries{m} }
func (m *MemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository { return memSessions{m} }
func (m *MemoryRepositoryManager) Exports(dbx.DBTX) exports.Repository   { return memExports{m} }

type memUsers struct{ m *MemoryRepositoryManager }

func (r memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	for _, u := range r.m.state.users {
		if u.UserName == user.UserName {
			return nil, memUniqueViolation
		}
	}
	r.m.state.users[user.ID] = *user
	return user, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	for _, u := range r.m.state.users {
		if u.UserName == username {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r memUsers) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	r.m.state.users[id] = u
	return nil
}

type memDiaries struct{ m *MemoryRepositoryManager }

func (r memDiaries) Create(_ context.Context, diary *models.Diary) (*models.Diary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	r.m.state.diaries[diary.ID] = *diary
	return diary, nil
}

func (r memDiaries) FindByIDAndUser(_ context.Context, id, userID string) (*models.Diary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	d, ok := r.m.state.diaries[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

func (r memDiaries) Update(_ context.Context, id, userID string, changes models.DiaryChanges, updatedAt time.Time) (*models.Diary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	d, ok := r.m.state.diaries[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	d.Title = changes.Title
	d.Content = changes.Content
	if changes.EntryDate != nil {
		d.EntryDate = models.DateOnly(*changes.EntryDate)
	}
	d.UpdatedAt = updatedAt
	r.m.state.diaries[id] = d
	return &d, nil
}

func (r memDiaries) Delete(_ context.Context, id, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return err
	}
	d, ok := r.m.state.diaries[id]
	if !ok || d.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.m.state.diaries, id)
	return nil
}

// filter returns the user's entries matching keep, newest first.
func (r memDiaries) filter(userID string, keep func(models.Diary) bool) ([]models.Diary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	var out []models.Diary
	for _, d := range r.m.state.diaries {
		if d.UserID == userID && keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func window(all []models.Diary, limit, offset int) []models.Diary {
	if offset < 0 || offset >= len(all) {
		return []models.Diary{}
	}
	end := len(all)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}
	return append([]models.Diary{}, all[offset:end]...)
}

func matches(keyword string) func(models.Diary) bool {
	kw := strings.ToLower(keyword)
	return func(d models.Diary) bool {
		return strings.Contains(strings.ToLower(d.Title), kw) || strings.Contains(strings.ToLower(d.Content), kw)
	}
}

func all(models.Diary) bool { return true }

func (r memDiaries) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Diary, error) {
	out, err := r.filter(userID, all)
	if err != nil {
		return nil, err
	}
	return window(out, limit, offset), nil
}

func (r memDiaries) CountByUser(_ context.Context, userID string) (int64, error) {
	out, err := r.filter(userID, all)
	return int64(len(out)), err
}

func (r memDiaries) SearchByUser(_ context.Context, userID, keyword string, limit, offset int) ([]models.Diary, error) {
	out, err := r.filter(userID, matches(keyword))
	if err != nil {
		return nil, err
	}
	return window(out, limit, offset), nil
}

func (r memDiaries) CountSearch(_ context.Context, userID, keyword string) (int64, error) {
	out, err := r.filter(userID, matches(keyword))
	return int64(len(out)), err
}

type memSessions struct{ m *MemoryRepositoryManager }

func (r memSessions) Create(_ context.Context, session *models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return err
	}
	r.m.state.sessions[session.ID] = *session
	return nil
}

func (r memSessions) Find(_ context.Context, id string) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	s, ok := r.m.state.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return err
	}
	delete(r.m.state.sessions, id)
	return nil
}

func (r memSessions) deleteWhere(pred func(models.Session) bool) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range r.m.state.sessions {
		if pred(s) {
			delete(r.m.state.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r memSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(s models.Session) bool { return s.UserID == userID })
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(s models.Session) bool { return !s.ExpiresAt.After(now) })
}

type memExports struct{ m *MemoryRepositoryManager }

func (r memExports) Create(_ context.Context, export *models.Export) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return err
	}
	e := *export
	e.URL = ""
	r.m.state.exports[e.ID] = e
	return nil
}

func (r memExports) ListByUser(_ context.Context, userID string, limit int) ([]models.Export, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure(); err != nil {
		return nil, err
	}
	out := []models.Export{}
	for _, e := range r.m.state.exports {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
