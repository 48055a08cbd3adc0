package domain

import "time"

// Session is the server-side record that makes a signed token revocable.
// It lives in the key-value session store under the token string itself.
type Session struct {
	Token     string    `json:"-"`
	UserID    uint      `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Identity is what a verified session resolves to.
type Identity struct {
	UserID uint `json:"userId"`
}
