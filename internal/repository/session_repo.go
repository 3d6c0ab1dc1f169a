package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/agency-portal/internal/common/cache"
	"github.com/dumeirei/agency-portal/internal/common/crypto"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = stderrors.New("session not found")

// Session 管理端会话
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository 基于 Redis 的会话与上游令牌存储
type SessionRepository struct {
	rdb    *redis.Client
	cipher *crypto.AES
	ttl    time.Duration
}

// NewSessionRepository 创建会话仓储；令牌以 AES-GCM 加密后保存
func NewSessionRepository(rdb *redis.Client, cipher *crypto.AES, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{rdb: rdb, cipher: cipher, ttl: ttl}
}

func sessionKey(id string) string {
	return cache.BuildKey(cache.KeyPrefixSession, id)
}

func tokensKey(id string) string {
	return cache.BuildKey(cache.KeyPrefixTokens, id)
}

// Save 保存会话
func (r *SessionRepository) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(s.ID), data, r.ttl).Err()
}

// Get 读取会话
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch 续期会话与令牌
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	exists := pipe.Expire(ctx, sessionKey(id), r.ttl)
	pipe.Expire(ctx, tokensKey(id), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if !exists.Val() {
		return ErrSessionNotFound
	}
	return nil
}

// Delete 删除会话及其令牌
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id), tokensKey(id)).Err()
}

// TokenStore 返回会话的上游令牌存储
func (r *SessionRepository) TokenStore(id string) apiclient.TokenStore {
	return &sealedTokenStore{repo: r, key: tokensKey(id)}
}

// sealedTokenStore 加密保存 token 与 refresh_token
type sealedTokenStore struct {
	repo *SessionRepository
	key  string
}

func (s *sealedTokenStore) Load(ctx context.Context) (apiclient.Tokens, error) {
	var t apiclient.Tokens
	sealed, err := s.repo.rdb.Get(ctx, s.key).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return t, nil
		}
		return t, err
	}
	plain, err := s.repo.cipher.Decrypt(sealed)
	if err != nil {
		return t, err
	}
	err = json.Unmarshal([]byte(plain), &t)
	return t, err
}

func (s *sealedTokenStore) Save(ctx context.Context, t apiclient.Tokens) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	sealed, err := s.repo.cipher.Encrypt(string(data))
	if err != nil {
		return err
	}
	return s.repo.rdb.Set(ctx, s.key, sealed, s.repo.ttl).Err()
}

func (s *sealedTokenStore) Clear(ctx context.Context) error {
	return s.repo.rdb.Del(ctx, s.key).Err()
}
