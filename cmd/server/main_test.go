package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewServer(t *testing.T) {
	h := http.NewServeMux()
	srv := newServer(":5000", h)

	assert.Equal(t, ":5000", srv.Addr)
	assert.Equal(t, h, srv.Handler)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
}
