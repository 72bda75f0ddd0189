package permission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	assert.Len(t, All(Android), 5)
	assert.Len(t, All(IOS), 3)
	assert.Empty(t, All("windows"))
}

func TestDangerous(t *testing.T) {
	android := Dangerous(Android)
	assert.Len(t, android, 4)
	assert.NotContains(t, android, "INTERNET")

	ios := Dangerous(IOS)
	assert.Len(t, ios, 3)
	for _, p := range ios {
		assert.Equal(t, LevelSensitive, p.Level)
	}

	assert.Empty(t, Dangerous("windows"))
}

func TestGet(t *testing.T) {
	p, err := Get(Android, "CAMERA")
	require.NoError(t, err)
	assert.Equal(t, "Camera", p.Name)

	_, err = Get(IOS, "CAMERA")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, Android, ParsePlatform(""))
	assert.Equal(t, IOS, ParsePlatform("ios"))
}

func TestTipsReturnsCopy(t *testing.T) {
	got := Tips()
	require.Len(t, got, 8)
	got[0] = "changed"
	assert.NotEqual(t, "changed", Tips()[0])
}

func TestRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewHandler())

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	rr := get("/api/permissions/all?platform=ios")
	require.Equal(t, http.StatusOK, rr.Code)
	var all map[string]Permission
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Contains(t, all, "Photos")

	rr = get("/api/permissions/dangerous")
	require.Equal(t, http.StatusOK, rr.Code)
	var dangerous map[string]Permission
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dangerous))
	assert.Len(t, dangerous, 4)

	rr = get("/api/permissions/tips")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Avoid installing apps from untrusted sources.")

	rr = get("/api/permissions/detail/READ_EXTERNAL_STORAGE")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"risk":"high"`)

	rr = get("/api/permissions/detail/Contacts")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = get("/api/permissions/detail/Contacts?platform=ios")
	assert.Equal(t, http.StatusOK, rr.Code)
}
