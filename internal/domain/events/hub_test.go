package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonestorage/internal/pkg/clock"
)

var hubStart = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, hub)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/admin"
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	hub := NewHub(clock.NewFake(hubStart), nil, zerolog.Nop())
	url := newTestServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: PairingConfirmed, DeviceID: "dev-1", Payload: map[string]string{"phone_device_name": "Pixel"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, PairingConfirmed, ev["type"])
	assert.Equal(t, "dev-1", ev["device_id"])
	assert.Equal(t, hubStart.Format(time.RFC3339), ev["at"])
	assert.NotContains(t, ev, "token")

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil, []string{"http://localhost:5173"}, zerolog.Nop())
	url := newTestServer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestHub_AcceptsAllowedOrigins(t *testing.T) {
	hub := NewHub(nil, []string{"http://localhost:5173"}, zerolog.Nop())
	url := newTestServer(t, hub)
	host := strings.TrimPrefix(url, "ws://")
	host = strings.TrimSuffix(host, "/ws/admin")

	for _, origin := range []string{"http://localhost:5173", "https://" + host, ""} {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err, origin)
		conn.Close()
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil, nil, zerolog.Nop())
	assert.NotPanics(t, func() { hub.Publish(Event{Type: FileUploaded}) })

	var nilHub *Hub
	assert.NotPanics(t, func() { nilHub.Publish(Event{Type: FileUploaded}) })
}
