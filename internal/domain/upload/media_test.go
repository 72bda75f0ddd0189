package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]MediaType{
		"IMG_0001.JPG":   MediaImage,
		"photo.heic":     MediaImage,
		"clip.mp4":       MediaVideo,
		"movie.3gp":      MediaVideo,
		"notes.txt":      MediaOther,
		"archive.tar.gz": MediaOther,
		"noext":          MediaOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), name)
	}
}

func TestParseMediaType(t *testing.T) {
	mt, ok := ParseMediaType("")
	assert.True(t, ok)
	assert.Equal(t, MediaType(""), mt)

	mt, ok = ParseMediaType("Video")
	assert.True(t, ok)
	assert.Equal(t, MediaVideo, mt)

	_, ok = ParseMediaType("other")
	assert.False(t, ok)
}

func TestGroupByMonth(t *testing.T) {
	groups := GroupByMonth([]FileDescriptor{
		{Name: "IMG_20250122_143022.jpg"},
		{Name: "VID_20250130_101010.mp4"},
		{Name: "IMG_20241201_000000.png"},
		{Name: "holiday.jpg"},
		{Name: "IMG_abcdefgh.jpg"},
	})

	assert.Len(t, groups["2025-01"], 2)
	assert.Len(t, groups["2024-12"], 1)
	assert.Len(t, groups["Other"], 2)
}
