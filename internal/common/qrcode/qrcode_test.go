// Package qrcode 二维码生成功能单元测试
package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultSize},
		{-5, DefaultSize},
		{10, MinSize},
		{300, 300},
		{5000, MaxSize},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampSize(tt.in), tt.in)
	}
	assert.Equal(t, 512, NewGenerator(WithSize(512)).Size())
}

func TestGenerator_PNG(t *testing.T) {
	gen := NewGenerator(WithSize(200), WithHighRecovery())

	data, err := gen.PNG("https://www.example.fr/actualites/12")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	_, err = gen.PNG("")
	assert.Error(t, err)
}

func TestGenerator_DataURL(t *testing.T) {
	gen := NewGenerator()

	dataURL, err := gen.DataURL("Bonjour")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestShareURL(t *testing.T) {
	u, err := ShareURL("https://www.example.fr/", "/actualites/12", "portal")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.fr/actualites/12?utm_medium=qrcode&utm_source=portal", u)

	u, err = ShareURL("https://www.example.fr", "actualites/3", "")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.fr/actualites/3", u)

	_, err = ShareURL("not a url", "x", "")
	assert.Error(t, err)
}
