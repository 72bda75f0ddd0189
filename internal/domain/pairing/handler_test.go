package pairing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonestorage/internal/domain/events"
	"phonestorage/internal/pkg/clock"
	"phonestorage/internal/pkg/jwt"
	"phonestorage/internal/pkg/qr"
)

type testEnv struct {
	router   *gin.Engine
	registry *Registry
	clock    *clock.Fake
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFake(testStart)
	store := NewFileStore(filepath.Join(t.TempDir(), "paired_devices.json"))
	reg := NewRegistry(store, nil, clk, DefaultPolicy(), nil, zerolog.Nop())
	tickets := jwt.New("test-secret").WithNow(clk.Now)

	h := NewHandler(reg, tickets, qr.NewRenderer(), HostInfo{IP: "10.0.0.5", Port: 5000}, events.NewHub(nil, nil, zerolog.Nop()), zerolog.Nop())
	r := gin.New()
	RegisterRoutes(r, h)
	return &testEnv{router: r, registry: reg, clock: clk}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rr)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, rr.Body.String())
	return errObj["code"].(string)
}

func (e *testEnv) generate(t *testing.T, name string) map[string]any {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/pairing/generate", map[string]string{"device_name": name})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode(t, rr)
}

func TestGenerate(t *testing.T) {
	env := setupTestRouter(t)

	body := env.generate(t, "PC")

	tok := body["pairing_token"].(string)
	assert.Len(t, tok, 32)
	assert.True(t, strings.HasPrefix(body["qr_data_url"].(string), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(body["pairing_url"].(string), "https://10.0.0.5:5000/pair-confirm?token="+tok))
	assert.NotEmpty(t, body["pairing_ticket"])
	assert.Equal(t, body["device_id"], body["pairing_data"].(map[string]any)["device_id"])
	assert.Equal(t, "PC", body["pairing_data"].(map[string]any)["device_name"])

	assert.True(t, env.registry.Verify(tok))
}

func TestGenerate_EmptyBody(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do(t, http.MethodPost, "/api/pairing/generate", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, DefaultDeviceName, decode(t, rr)["pairing_data"].(map[string]any)["device_name"])
}

func TestPairingFlow_EndToEnd(t *testing.T) {
	env := setupTestRouter(t)
	gen := env.generate(t, "PC")
	tok := gen["pairing_token"].(string)

	rr := env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{
		"pairing_token":     tok,
		"phone_device_id":   "abc123",
		"phone_device_name": "Pixel 8",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	confirm := decode(t, rr)
	assert.Equal(t, true, confirm["ok"])
	assert.Equal(t, tok, confirm["pairing_token"])

	rr = env.do(t, http.MethodGet, "/api/pairing/devices", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	devices := decode(t, rr)["devices"].([]any)
	require.Len(t, devices, 1)
	d := devices[0].(map[string]any)
	assert.Equal(t, "confirmed", d["status"])
	assert.Equal(t, "PC", d["device_name"])
	assert.Equal(t, "Pixel 8", d["phone_device_name"])
	assert.Equal(t, "abc123", d["phone_device_id"])
	assert.Equal(t, true, d["active"])
	assert.NotContains(t, d, "token")
}

func TestConfirm_RejectsUnknownOrMissingToken(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{"pairing_token": "missing", "phone_device_id": "abc"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rr))

	rr = env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{"phone_device_id": "abc"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestConfirm_Ticket(t *testing.T) {
	env := setupTestRouter(t)
	first := env.generate(t, "PC")
	second := env.generate(t, "PC")
	tok := first["pairing_token"].(string)

	// ticket minted for a different pairing
	rr := env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{
		"pairing_token":   tok,
		"phone_device_id": "abc123",
		"pairing_ticket":  second["pairing_ticket"].(string),
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{
		"pairing_token":   tok,
		"phone_device_id": "abc123",
		"pairing_ticket":  "garbage",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{
		"pairing_token":   tok,
		"phone_device_id": "abc123",
		"pairing_ticket":  first["pairing_ticket"].(string),
	})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestConfirm_ExpiredTicket(t *testing.T) {
	env := setupTestRouter(t)
	gen := env.generate(t, "PC")

	env.clock.Advance(16 * time.Minute)

	rr := env.do(t, http.MethodPost, "/api/pairing/confirm", map[string]string{
		"pairing_token":   gen["pairing_token"].(string),
		"phone_device_id": "abc123",
		"pairing_ticket":  gen["pairing_ticket"].(string),
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// the pairing record itself lives for 30 days
	assert.True(t, env.registry.Verify(gen["pairing_token"].(string)))
}

func TestRevokeEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	tok := env.generate(t, "PC")["pairing_token"].(string)

	rr := env.do(t, http.MethodPost, "/api/pairing/revoke/"+tok, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/pairing/revoke/"+tok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rr))
}

func TestStatsEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	rr := env.do(t, http.MethodGet, "/api/pairing/stats/unknown", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())

	tok := env.generate(t, "PC")["pairing_token"].(string)
	rr = env.do(t, http.MethodGet, "/api/pairing/stats/"+tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, UnknownDeviceName, body["device_name"])
	assert.Equal(t, float64(0), body["total_files"])
}

func TestSyncEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	tok := env.generate(t, "PC")["pairing_token"].(string)

	rr := env.do(t, http.MethodPost, "/api/sync/unknown", map[string]any{"files": []any{}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	env.clock.Advance(time.Minute)
	rr = env.do(t, http.MethodPost, "/api/sync/"+tok, map[string]any{
		"files": []any{map[string]any{"name": "IMG_1.jpg", "size": 10}, "raw-entry"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, float64(2), body["synced"])
	assert.Equal(t, "Synced 2 files", body["message"])

	d, ok := env.registry.Device(tok)
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"name": "IMG_1.jpg", "size": json.Number("10")}, "raw-entry"}, d.SyncedFiles)
	require.NotNil(t, d.LastSync)
	require.NotNil(t, d.LastSeen)
	assert.Equal(t, env.clock.Now(), *d.LastSync)

	rr = env.do(t, http.MethodPost, "/api/sync/"+tok, map[string]any{"files": "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSyncedFiles(t *testing.T) {
	files, err := syncedFiles(nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = syncedFiles([]byte(`{"other": 1}`))
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = syncedFiles([]byte(`{"files": [1, true, null]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1"), true, nil}, files)

	_, err = syncedFiles([]byte(`{"files": [`))
	assert.Error(t, err)

	_, err = syncedFiles([]byte(`{"files": {"a": 1}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestAdminEndpoints(t *testing.T) {
	env := setupTestRouter(t)
	oldTok := env.generate(t, "PC")["pairing_token"].(string)
	require.True(t, env.registry.Confirm(oldTok, "p1", "Old"))

	env.clock.Advance(40 * 24 * time.Hour)
	newTok := env.generate(t, "PC")["pairing_token"].(string)
	require.True(t, env.registry.Confirm(newTok, "p2", "New"))

	rr := env.do(t, http.MethodGet, "/api/admin/paired-devices", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Len(t, body["devices"], 2)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_devices"])
	assert.Equal(t, float64(1), summary["active_devices"])

	rr = env.do(t, http.MethodPost, "/api/admin/cleanup-inactive", map[string]int{"days": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/admin/cleanup-inactive", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decode(t, rr)["removed"])

	_, ok := env.registry.Device(oldTok)
	assert.False(t, ok)
}
