package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/http/middleware"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type testEnv struct {
	router http.Handler
	tokens *service.TokenService
	todos  *service.TodoService
	redis  *miniredis.Miniredis
	userID uint
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := repository.NewUserRepository(db)
	hash, _ := security.HashPassword("s3cret-pass")
	admin := &domain.User{Username: "admin", PasswordHash: hash}
	if err := users.Create(ctx, admin); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	jwtMgr := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	tokens := service.NewTokenService(jwtMgr, repository.NewRedisSessionStore(client, "session"), 7*24*time.Hour)
	auth := service.NewAuthService(users, tokens)
	todos := service.NewTodoService(repository.NewTodoRepository(db))
	if _, err := todos.EnsureList(ctx, "dashboard", "Dashboard"); err != nil {
		t.Fatalf("ensure list: %v", err)
	}
	onboarding := service.NewOnboardingService(repository.NewOnboardingRepository(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authH := NewAuthHandler(auth, log, false)
	todoH := NewTodoHandler(todos, log)
	onbH := NewOnboardingHandler(onboarding, log)

	r := chi.NewRouter()
	r.Post("/login", authH.Login)
	r.Get("/verify-token", authH.VerifyToken)
	r.Get("/onboarding", onbH.Status)
	r.Put("/onboarding", onbH.Complete)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(auth, log))
		r.Post("/logout", authH.Logout)
		r.Post("/logout/all", authH.LogoutAll)
		r.Post("/page/todo/reorder", todoH.Reorder)
		r.Get("/page/todo/{name}", todoH.Get)
		r.Put("/page/todo/{name}", todoH.Append)
		r.Patch("/page/todo/{name}", todoH.Toggle)
	})
	return &testEnv{router: r, tokens: tokens, todos: todos, redis: server, userID: admin.ID}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	raw, _, err := e.tokens.Issue(context.Background(), e.userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return raw
}

func (e *testEnv) do(t *testing.T, method, target, token, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "10.1.1.1:1234"
	if token != "" {
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope (%d): %v body=%s", rr.Code, err, rr.Body.String())
	}
	return rr, env
}

func decodeView(t *testing.T, env envelope) service.TodoView {
	t.Helper()
	var view service.TodoView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode todo view: %v", err)
	}
	return view
}
