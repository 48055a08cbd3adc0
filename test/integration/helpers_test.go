package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/database"
	"github.com/dashkit/admin-dashboard/internal/http/handler"
	"github.com/dashkit/admin-dashboard/internal/http/router"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testStack struct {
	redis  *miniredis.Miniredis
	client *redis.Client
	todos  *service.TodoService
}

// newAuthTestServer runs the full router over a file-backed SQLite database
// and an in-process Redis.
func newAuthTestServer(t *testing.T) (string, *http.Client, *testStack, func()) {
	t.Helper()
	cfg := &config.Config{
		AppEnv:            config.EnvDevelopment,
		DatabaseURL:       "sqlite://" + filepath.Join(t.TempDir(), "itest.db"),
		SessionKeyPrefix:  "itest",
		SecretToken:       "abcdefghijklmnopqrstuvwxyz123456",
		JWTIssuer:         "admin-dashboard",
		JWTAudience:       "admin-dashboard",
		SessionTTL:        7 * 24 * time.Hour,
		LoginRateLimitRPM: 1000,
		APIRateLimitRPM:   1000,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := service.NewTokenService(
		security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.SecretToken),
		repository.NewRedisSessionStore(rdb, cfg.SessionKeyPrefix),
		cfg.SessionTTL,
	)
	auth := service.NewAuthService(repository.NewUserRepository(db), tokens)
	todos := service.NewTodoService(repository.NewTodoRepository(db))
	onboarding := service.NewOnboardingService(repository.NewOnboardingRepository(db))

	h := router.NewRouter(router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(auth, logger, false),
		TodoHandler:       handler.NewTodoHandler(todos, logger),
		OnboardingHandler: handler.NewOnboardingHandler(onboarding, logger),
		Verifier:          auth,
		Logger:            logger,
		LoginRateLimitRPM: cfg.LoginRateLimitRPM,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
	})
	srv := httptest.NewServer(h)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	closeFn := func() {
		srv.Close()
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return srv.URL, client, &testStack{redis: mr, client: rdb, todos: todos}, closeFn
}

func doJSON(t *testing.T, client *http.Client, method, target string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, target, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func cookieValue(t *testing.T, client *http.Client, baseURL, name string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeTodo(t *testing.T, env envelope) service.TodoView {
	t.Helper()
	var view service.TodoView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode todo view: %v", err)
	}
	return view
}
