// Package errors 错误码和错误处理单元测试
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "[1001] 参数错误", New(1001, "参数错误").Error())
	assert.Equal(t, "[6000] 上游服务不可用: dial tcp: refused",
		Wrap(6000, "上游服务不可用", stderrors.New("dial tcp: refused")).Error())
}

func TestAppError_Modifiers(t *testing.T) {
	original := ErrValidation
	modified := original.WithMessage("缺少必填字段: title").WithError(stderrors.New("missing"))

	assert.Equal(t, 1010, modified.Code)
	assert.Equal(t, "缺少必填字段: title", modified.Message)
	assert.NotNil(t, modified.Err)

	assert.Equal(t, "必填字段缺失", original.Message)
	assert.Nil(t, original.Err)
}

func TestCodeRanges(t *testing.T) {
	tests := []struct {
		err      *AppError
		min, max int
	}{
		{ErrConfirmRequired, 1000, 1999},
		{ErrSessionExpired, 2000, 2999},
		{ErrInvalidPoints, 3000, 3999},
		{ErrInvalidDays, 4000, 4999},
		{ErrMediaTooLarge, 5000, 5999},
		{ErrUpstreamTimeout, 6000, 6999},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.GreaterOrEqual(t, tt.err.Code, tt.min)
			assert.LessOrEqual(t, tt.err.Code, tt.max)
		})
	}
}

func TestGetAppError(t *testing.T) {
	t.Run("直接返回", func(t *testing.T) {
		assert.Equal(t, ErrInvalidParams, GetAppError(ErrInvalidParams))
	})

	t.Run("穿透 fmt 包装", func(t *testing.T) {
		wrapped := fmt.Errorf("list articles: %w", ErrUpstreamRejected)
		got := GetAppError(wrapped)
		assert.Equal(t, ErrUpstreamRejected.Code, got.Code)
		assert.True(t, IsAppError(wrapped))
	})

	t.Run("普通错误", func(t *testing.T) {
		plain := stderrors.New("boom")
		got := GetAppError(plain)
		require.NotNil(t, got)
		assert.Equal(t, ErrUnknown.Code, got.Code)
		assert.Equal(t, plain, got.Err)
		assert.False(t, IsAppError(plain))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("refresh: %w", ErrSessionExpired.WithError(stderrors.New("401")))

	assert.True(t, Is(err, ErrSessionExpired))
	assert.False(t, Is(err, ErrTokenInvalid))
	assert.False(t, Is(stderrors.New("x"), ErrSessionExpired))
}
