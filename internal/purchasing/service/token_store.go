package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound 刷新令牌不存在或已被使用
var ErrTokenNotFound = errors.New("refresh token not found")

// RefreshTokenStore 刷新令牌存储，每个令牌只能使用一次
type RefreshTokenStore interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	Take(ctx context.Context, jti string) (string, error)
}

// RedisTokenStore 基于Redis的令牌存储
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func refreshKey(jti string) string {
	return "token:refresh:" + jti
}

func (s *RedisTokenStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, refreshKey(jti), userID, ttl).Err()
}

// Take 读取并删除令牌
func (s *RedisTokenStore) Take(ctx context.Context, jti string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, refreshKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return userID, err
}

// MemoryTokenStore 进程内令牌存储，未配置Redis时使用
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

type memoryToken struct {
	userID    string
	expiresAt time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryToken), now: time.Now}
}

func (s *MemoryTokenStore) Save(_ context.Context, jti, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = memoryToken{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Take(_ context.Context, jti string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[jti]
	delete(s.tokens, jti)
	if !ok || s.now().After(tok.expiresAt) {
		return "", ErrTokenNotFound
	}
	return tok.userID, nil
}
