package session

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonestorage/internal/domain/upload"
	"phonestorage/internal/pkg/clock"
)

var testStart = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func newTestUploads(t *testing.T) *upload.Store {
	t.Helper()
	s, err := upload.NewStore(t.TempDir(), 0, clock.NewFake(testStart), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestCreate_SetsPrimary(t *testing.T) {
	r := New(nil, clock.NewFake(testStart), zerolog.Nop())

	s := r.Create()
	assert.Len(t, s.Token, 22)
	assert.Equal(t, s.Token, r.Primary())
	assert.True(t, r.Exists(s.Token))
	assert.False(t, s.Granted)
	assert.Equal(t, testStart, s.CreatedAt)
}

func TestGrant_CreatesOnDemand(t *testing.T) {
	r := New(nil, clock.NewFake(testStart), zerolog.Nop())

	assert.False(t, r.Exists("phone-1"))
	r.Grant("phone-1")
	got, ok := r.Get("phone-1")
	require.True(t, ok)
	assert.True(t, got.Granted)
	assert.Empty(t, got.Files)

	r.Grant("phone-1")
	assert.Len(t, r.ListAll(), 1)
}

func TestRecordUpload(t *testing.T) {
	r := New(nil, clock.NewFake(testStart), zerolog.Nop())

	r.RecordUpload("tok", "a.jpg", 10)
	r.RecordUpload("tok", "b.mp4", 20)

	got, ok := r.Get("tok")
	require.True(t, ok)
	assert.False(t, got.Granted)
	assert.Equal(t, []FileRecord{{Name: "a.jpg", Size: 10}, {Name: "b.mp4", Size: 20}}, got.Files)

	// returned copies are detached from the registry
	got.Files[0].Name = "changed"
	again, _ := r.Get("tok")
	assert.Equal(t, "a.jpg", again.Files[0].Name)
}

func TestListAll_MergesDiskListing(t *testing.T) {
	uploads := newTestUploads(t)
	r := New(uploads, clock.NewFake(testStart), zerolog.Nop())

	primary := r.Create()
	r.Grant("second")
	_, err := uploads.Save(primary.Token, "b.png", strings.NewReader("bb"))
	require.NoError(t, err)
	_, err = uploads.Save(primary.Token, "a.jpg", strings.NewReader("a"))
	require.NoError(t, err)

	views := r.ListAll()
	require.Len(t, views, 2)
	assert.Equal(t, primary.Token, views[0].Token)
	assert.Equal(t, 2, views[0].FileCount)
	assert.Equal(t, []FileRecord{{Name: "a.jpg", Size: 1}, {Name: "b.png", Size: 2}}, views[0].Files)

	assert.Equal(t, "second", views[1].Token)
	assert.True(t, views[1].Granted)
	assert.Equal(t, 0, views[1].FileCount)
	assert.NotNil(t, views[1].Files)
}
