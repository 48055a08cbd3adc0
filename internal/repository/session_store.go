package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"
)

// SessionStore is the revocation source of truth: a token is only valid
// while its record is present.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string, userID uint) error
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
	Ping(ctx context.Context) error
}

type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisSessionStore{client: client, prefix: prefix, now: time.Now}
}

// Create writes the record with a TTL matching the token validity, and
// indexes it under its user so every session of an identity can be revoked.
func (s *RedisSessionStore) Create(ctx context.Context, session *domain.Session) error {
	ttl := session.TTL(s.now())
	if ttl <= 0 {
		return errSessionExpired
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	dataKey := s.dataKey(session.Token)
	userIndex := s.userIndexKey(session.UserID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, payload, ttl)
	pipe.SAdd(ctx, userIndex, dataKey)
	pipe.Expire(ctx, userIndex, ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return storeErr("redis", "session create", err)
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.dataKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordRepositoryOperation(ctx, "session", "get", "not_found")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "get", "error")
		return nil, storeErr("redis", "session get", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "get", "corrupt")
		return nil, ErrSessionCorrupt
	}
	session.Token = token
	observability.RecordRepositoryOperation(ctx, "session", "get", "success")
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string, userID uint) error {
	dataKey := s.dataKey(token)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, dataKey)
	pipe.SRem(ctx, s.userIndexKey(userID), dataKey)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete", "error")
		return storeErr("redis", "session delete", err)
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete", "success")
	return nil
}

func (s *RedisSessionStore) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	userIndex := s.userIndexKey(userID)
	keys, err := s.client.SMembers(ctx, userIndex).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_user_id", "error")
		return 0, storeErr("redis", "session index read", err)
	}
	pipe := s.client.TxPipeline()
	var delCmd *redis.IntCmd
	if len(keys) > 0 {
		delCmd = pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, userIndex)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_user_id", "error")
		return 0, storeErr("redis", "session delete by user", err)
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_user_id", "success")
	if delCmd == nil {
		return 0, nil
	}
	return delCmd.Val(), nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return storeErr("redis", "ping", s.client.Ping(ctx).Err())
}

func (s *RedisSessionStore) dataKey(token string) string {
	return fmt.Sprintf("%s:token:%s", s.prefix, token)
}

func (s *RedisSessionStore) userIndexKey(userID uint) string {
	return fmt.Sprintf("%s:user:%d", s.prefix, userID)
}
