package qr

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestDataURL_ProducesPNG(t *testing.T) {
	r := NewRenderer()

	url, err := r.DataURL("https://10.0.0.5:5000/pair-confirm?token=abc", DefaultBoxSize)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))
}

func TestDataURL_Memoises(t *testing.T) {
	r := NewRenderer()

	first, err := r.DataURL("hello", 4)
	require.NoError(t, err)
	second, err := r.DataURL("hello", 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.Cached())

	_, err = r.DataURL("hello", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Cached())
}

func TestDataURL_EmptyText(t *testing.T) {
	_, err := NewRenderer().DataURL("", DefaultBoxSize)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClampBoxSize(t *testing.T) {
	v := func(i int) *int { return &i }

	assert.Equal(t, DefaultBoxSize, ClampBoxSize(nil))
	assert.Equal(t, MinBoxSize, ClampBoxSize(v(0)))
	assert.Equal(t, MaxBoxSize, ClampBoxSize(v(100)))
	assert.Equal(t, 7, ClampBoxSize(v(7)))
}
