package apiclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID int64 `json:"id"`
}

func TestDecodePage_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ids     []int64
		total   int64
		hasMore bool
	}{
		{"裸数组", `[{"id":1},{"id":2}]`, []int64{1, 2}, 2, false},
		{"success 包装数组", `{"success":true,"data":[{"id":3}]}`, []int64{3}, 1, false},
		{"items 对象", `{"success":true,"data":{"items":[{"id":1}],"total":41,"hasMore":true}}`, []int64{1}, 41, true},
		{"notifications 对象", `{"success":true,"data":{"notifications":[{"id":5}],"total":1,"has_more":false}}`, []int64{5}, 1, false},
		{"顶层分页字段", `{"success":true,"data":[{"id":9}],"total":30,"hasMore":true}`, []int64{9}, 30, true},
		{"无包装对象", `{"results":[{"id":4}],"count":12}`, []int64{4}, 12, false},
		{"空 data", `{"success":true,"data":null}`, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := decodePage[item]("test", []byte(tt.body))
			require.NoError(t, err)

			ids := make([]int64, 0, len(page.Items))
			for _, it := range page.Items {
				ids = append(ids, it.ID)
			}
			if tt.ids == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.ids, ids)
			}
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.hasMore, page.HasMore)
		})
	}
}

func TestDecodePage_Failures(t *testing.T) {
	_, err := decodePage[item]("news", []byte(`{"success":false,"message":"db down"}`))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "db down", apiErr.Message)
	assert.Equal(t, "news", apiErr.Resource)

	_, err = decodePage[item]("news", []byte(`{"success":true,"data":{"foo":1}}`))
	assert.ErrorIs(t, err, ErrBadEnvelope)

	_, err = decodePage[item]("news", []byte(`"hello"`))
	assert.ErrorIs(t, err, ErrBadEnvelope)
}

func TestDecodeOne(t *testing.T) {
	var got item
	require.NoError(t, decodeOne("x", []byte(`{"success":true,"data":{"id":8}}`), &got))
	assert.Equal(t, int64(8), got.ID)

	got = item{}
	require.NoError(t, decodeOne("x", []byte(`{"id":6}`), &got))
	assert.Equal(t, int64(6), got.ID)

	require.NoError(t, decodeOne("x", []byte(``), &got))
	require.NoError(t, decodeOne("x", []byte(`{"id":1}`), nil))
}

func TestNewAPIError_Message(t *testing.T) {
	assert.Equal(t, "bad", newAPIError("r", 400, []byte(`{"error":"bad"}`)).Message)
	assert.Equal(t, "plain text", newAPIError("r", 502, []byte("plain text")).Message)
	assert.Contains(t, newAPIError("r", 503, nil).Error(), "Service Unavailable")
}
