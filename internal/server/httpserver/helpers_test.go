package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/dmitrijs2005/dailydiary/internal/server/config"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dailydiary/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv     *Server
	config  *config.Config
	repos   *repomanager.MemoryRepositoryManager
	users   *services.UserService
	diaries *services.DiaryService
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SessionValidity = time.Hour
	cfg.LoginRatePerMinute = 0
	for _, fn := range tweak {
		fn(cfg)
	}

	m := repomanager.NewMemoryRepositoryManager()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	log := logging.Nop{}

	users := services.NewUserService(m, hasher, log)
	diaries := services.NewDiaryService(m, log)
	svc := Services{
		Users:   users,
		Auth:    services.NewAuthService(m, hasher, cfg.SecretKey, cfg.SessionValidity, log),
		Diaries: diaries,
		Exports: services.NewExportService(m, diaries, cfg, log),
		Health:  m,
	}

	return &testEnv{
		srv:     NewServer(cfg, log, svc),
		config:  cfg,
		repos:   m,
		users:   users,
		diaries: diaries,
	}
}

// do sends body as JSON (nil for no body) with the optional session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body map[string]string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(buf))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) form(t *testing.T, path string, values url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/register", map[string]string{
		"username":         username,
		"password":         password,
		"confirm_password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec, e.config.CookieName)
	require.NotNil(t, c)
	return c
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.users.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	msg, _ := e["message"].(string)
	return msg
}
