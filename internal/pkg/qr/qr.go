package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultBoxSize = 10
	MinBoxSize     = 1
	MaxBoxSize     = 40

	cacheTTL      = 10 * time.Minute
	cacheCapacity = 256
)

var ErrEmptyText = errors.New("no text provided")

// Renderer produces PNG data URLs for QR codes. Identical (text, size)
// requests inside the cache TTL reuse the previously rendered image.
type Renderer struct {
	cache *ttlcache.Cache[string, string]
}

func NewRenderer() *Renderer {
	return &Renderer{
		cache: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](cacheTTL),
			ttlcache.WithCapacity[string, string](cacheCapacity),
		),
	}
}

// ClampBoxSize maps an optional requested module size onto the allowed range.
func ClampBoxSize(size *int) int {
	if size == nil {
		return DefaultBoxSize
	}
	if *size < MinBoxSize {
		return MinBoxSize
	}
	if *size > MaxBoxSize {
		return MaxBoxSize
	}
	return *size
}

// PNG renders text with fixed-width modules of boxSize pixels and the
// standard four-module quiet zone.
func PNG(text string, boxSize int) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	// go-qrcode treats a negative size as a per-module pixel width.
	png, err := qrcode.Encode(text, qrcode.Medium, -boxSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func (r *Renderer) DataURL(text string, boxSize int) (string, error) {
	key := strconv.Itoa(boxSize) + "|" + text
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	png, err := PNG(text, boxSize)
	if err != nil {
		return "", err
	}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	r.cache.Set(key, url, ttlcache.DefaultTTL)
	return url, nil
}

// Cached reports how many rendered images are currently memoised.
func (r *Renderer) Cached() int {
	return r.cache.Len()
}
