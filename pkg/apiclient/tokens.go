package apiclient

import (
	"context"
	"sync"
)

// Tokens 上游颁发的访问令牌与刷新令牌
type Tokens struct {
	Access  string `json:"token"`
	Refresh string `json:"refresh_token"`
}

// Empty 是否没有任何令牌
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}

// TokenStore 令牌存储
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore 进程内令牌存储
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

// NewMemoryTokenStore 创建进程内令牌存储
func NewMemoryTokenStore(initial Tokens) *MemoryTokenStore {
	return &MemoryTokenStore{tokens: initial}
}

// Load 读取令牌
func (s *MemoryTokenStore) Load(_ context.Context) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

// Save 保存令牌
func (s *MemoryTokenStore) Save(_ context.Context, t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	return nil
}

// Clear 清空令牌
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
	return nil
}
