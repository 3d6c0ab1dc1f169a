// Package jwt 会话令牌单元测试
package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager() *Manager {
	return NewManager(&Config{
		Secret:     "test-secret-key-for-portal-sessions",
		ExpireTime: time.Hour,
		Issuer:     "agency-portal",
	})
}

func TestManager_IssueAndParse(t *testing.T) {
	manager := setupTestManager()

	token, expiresAt, err := manager.Issue(Subject{
		SessionID: "4b8f0c9e",
		UserID:    7,
		Username:  "marie",
		Role:      "moderator",
	})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "4b8f0c9e", claims.SessionID)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "marie", claims.Username)
	assert.Equal(t, "moderator", claims.Role)
	assert.Equal(t, "agency-portal", claims.Issuer)
}

func TestManager_Issue_RequiresSession(t *testing.T) {
	_, _, err := setupTestManager().Issue(Subject{Username: "marie"})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestManager_ParseToken_Errors(t *testing.T) {
	manager := setupTestManager()
	valid, _, err := manager.Issue(Subject{SessionID: "s1", Username: "a"})
	require.NoError(t, err)

	t.Run("格式错误", func(t *testing.T) {
		_, err := manager.ParseToken("not-a-jwt")
		assert.Equal(t, ErrTokenMalformed, err)
	})

	t.Run("密钥不一致", func(t *testing.T) {
		other := NewManager(&Config{Secret: "another", ExpireTime: time.Hour, Issuer: "agency-portal"})
		_, err := other.ParseToken(valid)
		assert.Equal(t, ErrTokenInvalid, err)
	})

	t.Run("签发者不一致", func(t *testing.T) {
		other := NewManager(&Config{Secret: "test-secret-key-for-portal-sessions", ExpireTime: time.Hour, Issuer: "someone-else"})
		_, err := other.ParseToken(valid)
		assert.Equal(t, ErrTokenInvalid, err)
	})

	t.Run("已过期", func(t *testing.T) {
		expired := NewManager(&Config{Secret: "k", ExpireTime: -time.Minute, Issuer: "agency-portal"})
		token, _, err := expired.Issue(Subject{SessionID: "s2"})
		require.NoError(t, err)

		claims, err := expired.ParseToken(token)
		assert.Equal(t, ErrTokenExpired, err)
		assert.Nil(t, claims)
	})
}
