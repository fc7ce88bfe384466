package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textjournal/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestEntries_CRUD(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com", nil)
	token := ts.login(t, "jane@example.com")

	rec := ts.do(t, http.MethodPost, "/entries", entryRequest{
		Title:   strPtr("Morning"),
		Content: strPtr("Walked to the lake."),
		Tags:    &[]string{"Outdoors", "walk"},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryResponse](t, rec)
	require.NotNil(t, created.Entry)
	assert.Equal(t, "Morning", created.Entry.Title)
	assert.Equal(t, []string{"outdoors", "walk"}, created.Entry.Tags)
	assert.Equal(t, "2024-03-10", created.Entry.EntryDate)
	assert.Equal(t, models.SourceWeb, created.Entry.Source)
	id := created.Entry.ID

	// stored encrypted
	var row models.JournalEntry
	require.NoError(t, ts.srv.DB.First(&row, "id = ?", id).Error)
	assert.NotContains(t, row.Content, "lake")

	rec = ts.do(t, http.MethodPost, "/entries", entryRequest{Content: strPtr("Rainy afternoon, read a book.")}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/entries", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[entriesResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/entries?tag=walk", nil, token)
	list := decode[entriesResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, id, list.Entries[0].ID)

	rec = ts.do(t, http.MethodGet, "/entries?q=BOOK", nil, token)
	assert.Equal(t, 1, decode[entriesResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/entries?from=2024-03-11", nil, token)
	assert.Equal(t, 0, decode[entriesResponse](t, rec).Count)

	rec = ts.do(t, http.MethodPut, "/entries/"+id, entryRequest{Content: strPtr("Walked around the lake twice.")}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[entryResponse](t, rec)
	assert.Equal(t, "Morning", updated.Entry.Title)
	assert.Equal(t, "Walked around the lake twice.", updated.Entry.Content)
	assert.Equal(t, []string{"outdoors", "walk"}, updated.Entry.Tags)

	rec = ts.do(t, http.MethodGet, "/entries/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Walked around the lake twice.", decode[entryResponse](t, rec).Entry.Content)

	rec = ts.do(t, http.MethodDelete, "/entries/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/entries/"+id, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntries_BadInput(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com", nil)
	token := ts.login(t, "jane@example.com")

	rec := ts.do(t, http.MethodPost, "/entries", entryRequest{Title: strPtr("Empty")}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content is required", decode[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/entries?from=03/01/2024", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/entries?limit=zero", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/entries", `{"content":`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntries_OwnedByUser(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com", nil)
	ts.signUp(t, "john@example.com", nil)
	jane := ts.login(t, "jane@example.com")
	john := ts.login(t, "john@example.com")

	rec := ts.do(t, http.MethodPost, "/entries", entryRequest{Content: strPtr("private")}, jane)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[entryResponse](t, rec).Entry.ID

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/entries/"+id, nil, john).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/entries/"+id, nil, john).Code)
	assert.Equal(t, 0, decode[entriesResponse](t, ts.do(t, http.MethodGet, "/entries", nil, john)).Count)
}

func TestEntries_MultipartPhotos(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com", nil)
	token := ts.login(t, "jane@example.com")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Beach"))
	require.NoError(t, w.WriteField("content", "Sand everywhere."))
	require.NoError(t, w.WriteField("tags", "trip, sea"))
	fw, err := w.CreateFormFile("photos", "shore.JPG")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/entries", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[entryResponse](t, rec)
	assert.Empty(t, created.Warnings)
	assert.Equal(t, []string{"sea", "trip"}, created.Entry.Tags)
	require.Len(t, created.Entry.Photos, 1)
	photo := created.Entry.Photos[0]
	assert.Equal(t, "shore.JPG", photo.FileName)
	assert.Contains(t, photo.URL, "http://photos.test/users/")
	assert.Equal(t, 1, ts.photos.Len())

	rec = ts.do(t, http.MethodDelete, "/entries/"+created.Entry.ID+"/photos/"+photo.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, ts.photos.Len())

	rec = ts.do(t, http.MethodGet, "/entries/"+created.Entry.ID, nil, token)
	assert.Empty(t, decode[entryResponse](t, rec).Entry.Photos)
}

func TestDashboardStats(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com", map[string]any{"phoneNumber": "555-123-4567"})
	token := ts.login(t, "jane@example.com")

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/entries", entryRequest{Content: strPtr("one")}, token).Code)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sms-inbound", jsonBody(t, smsInboundRequest{From: "(555) 123-4567", Body: "two"}))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-API-Key", "hook-key")
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/dashboard/stats", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Stats struct {
			TotalEntries  int64            `json:"total_entries"`
			BySource      map[string]int64 `json:"by_source"`
			DistinctDays  int64            `json:"distinct_days"`
			CurrentStreak int              `json:"current_streak"`
			Today         string           `json:"today"`
		} `json:"stats"`
	}](t, rec).Stats
	assert.Equal(t, int64(2), stats.TotalEntries)
	assert.Equal(t, map[string]int64{"web": 1, "sms": 1}, stats.BySource)
	assert.Equal(t, int64(1), stats.DistinctDays)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, "2024-03-10", stats.Today)
}
