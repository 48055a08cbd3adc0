package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/dashkit/admin-dashboard/internal/security"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"username":`, http.StatusBadRequest},
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"s3cret-pass"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, _ := env.do(t, http.MethodPost, "/login", "", tc.body, nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if len(rr.Result().Cookies()) != 0 {
				t.Fatal("no cookie may be set on a failed login")
			}
		})
	}

	rr, body := env.do(t, http.MethodPost, "/login", "", `{"username":"admin","password":"s3cret-pass"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}
	var data struct {
		UserID uint `json:"userId"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil || data.UserID != env.userID {
		t.Fatalf("expected userId %d, got %+v err=%v", env.userID, data, err)
	}

	rr, _ = env.do(t, http.MethodGet, "/verify-token", cookie.Value, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected issued cookie to verify, got %d", rr.Code)
	}
}

func TestVerifyTokenStatuses(t *testing.T) {
	env := newTestEnv(t)
	valid := env.token(t)
	revoked := env.token(t)
	if err := env.tokens.Revoke(t.Context(), revoked, env.userID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusBadRequest},
		{"forged", valid + "x", http.StatusUnauthorized},
		{"signature padding altered", paddingFlipped(valid), http.StatusUnauthorized},
		{"absent from store", revoked, http.StatusNotFound},
		{"valid", valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, body := env.do(t, http.MethodGet, "/verify-token", tc.token, "", nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if tc.status == http.StatusOK {
				var data struct {
					UserID uint `json:"userId"`
				}
				if err := json.Unmarshal(body.Data, &data); err != nil || data.UserID != env.userID {
					t.Fatalf("expected userId %d, got %s", env.userID, body.Data)
				}
			}
		})
	}
}

func TestVerifyTokenStoreDownIsOpaque500(t *testing.T) {
	env := newTestEnv(t)
	raw := env.token(t)
	env.redis.Close()

	rr, body := env.do(t, http.MethodGet, "/verify-token", raw, "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body.Error == nil || body.Error.Message != "internal server error" {
		t.Fatalf("expected generic error, got %+v", body.Error)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	raw := env.token(t)
	other := env.token(t)

	rr, _ := env.do(t, http.MethodPost, "/logout", raw, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr, _ := env.do(t, http.MethodGet, "/page/todo/dashboard", raw, "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected logged-out token to be rejected, got %d", rr.Code)
	}
	if rr, _ := env.do(t, http.MethodGet, "/page/todo/dashboard", other, "", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected other session to survive, got %d", rr.Code)
	}

	if rr, _ := env.do(t, http.MethodPost, "/logout/all", other, "", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr, _ := env.do(t, http.MethodGet, "/page/todo/dashboard", other, "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected every session revoked, got %d", rr.Code)
	}
}

// paddingFlipped alters only the low bit of the final base64url character,
// which lenient decoders silently drop.
func paddingFlipped(raw string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := len(raw) - 1
	idx := strings.IndexByte(alphabet, raw[last])
	return raw[:last] + string(alphabet[idx^1])
}
