package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bandsite-backend/internal/media"
	"bandsite-backend/internal/metrics"
	"bandsite-backend/internal/middleware"
	"bandsite-backend/internal/models"
	"bandsite-backend/internal/repository"
	"bandsite-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "stage-door"

type testServer struct {
	handler  http.Handler
	db       *repository.DB
	mediaDir string
	hub      *services.WSHub
}

type serverOption func(*RouterConfig)

func withSecret(secret string) serverOption {
	return func(c *RouterConfig) { c.AdminPassword = secret }
}

func withLimit(n int) serverOption {
	return func(c *RouterConfig) {
		c.Limiter = middleware.NewRateLimiter(n, 15*time.Minute, time.Now)
	}
}

func withMaxUpload(n int64) serverOption {
	return func(c *RouterConfig) { c.MaxUploadBytes = n }
}

func withTrustProxy() serverOption {
	return func(c *RouterConfig) { c.TrustProxy = true }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	dir := t.TempDir()
	db, err := repository.Open(context.Background(), filepath.Join(dir, "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := media.NewStorage(filepath.Join(dir, "media"))
	require.NoError(t, err)

	settings := repository.NewSettingsRepository(db)
	hub := services.NewWSHub(nil)
	t.Cleanup(hub.Close)

	cfg := RouterConfig{
		Tours:          services.NewTourService(repository.NewTourRepository(db), hub),
		Countdown:      services.NewCountdownService(settings, hub),
		Gallery:        services.NewGalleryService(repository.NewGalleryRepository(db), settings, files, hub, 32),
		Backup:         services.NewBackupService(db, filepath.Join(dir, "backups"), nil, "", ""),
		Hub:            hub,
		DB:             db,
		Metrics:        metrics.New(),
		Limiter:        middleware.NewRateLimiter(1000, 15*time.Minute, time.Now),
		AdminPassword:  testSecret,
		MediaDir:       files.Dir(),
		MaxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{
		handler:  NewRouter(cfg),
		db:       db,
		mediaDir: files.Dir(),
		hub:      hub,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) send(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mediaFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.mediaDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for x := 0; x < 80; x++ {
		img.Set(x, x%60, color.RGBA{B: 180, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func mp4Bytes() []byte {
	header := []byte{0x00, 0x00, 0x00, 0x18}
	header = append(header, []byte("ftypmp42")...)
	header = append(header, 0x00, 0x00, 0x00, 0x00)
	header = append(header, []byte("mp42isom")...)
	return append(header, bytes.Repeat([]byte{0x00}, 64)...)
}

type filePart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func uploadRequest(t *testing.T, token string, parts []filePart, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/add-photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestTourLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date":       "2025-06-01",
		"city":       "  <b>Berlin</b> ",
		"venue":      "SO36",
		"ticketLink": "https://tickets.example/so36",
	}, testSecret)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[models.Tour](t, rec)
	assert.Positive(t, first.ID)
	assert.Equal(t, "Berlin", first.City)

	rec = s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date": "2025-07-15", "city": "Hamburg", "venue": "Knust",
	}, testSecret)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decodeBody[models.Tour](t, rec)

	rec = s.do(t, http.MethodGet, "/api/tours", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Tours []models.Tour `json:"tours"`
	}](t, rec)
	require.Len(t, list.Tours, 2)
	assert.Equal(t, second.ID, list.Tours[0].ID)
	assert.Equal(t, first.ID, list.Tours[1].ID)

	target := "/api/tours/" + strconv.FormatInt(first.ID, 10)
	rec = s.do(t, http.MethodPut, target, map[string]string{
		"date": "2025-06-02", "city": "Berlin", "venue": "Lido",
	}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[models.Tour](t, rec)
	assert.Equal(t, "Lido", updated.Venue)
	assert.Empty(t, updated.TicketLink)

	rec = s.do(t, http.MethodDelete, target, nil, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = s.do(t, http.MethodDelete, target, nil, testSecret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPut, "/api/tours/abc", map[string]string{
		"date": "2025-06-02", "city": "Berlin", "venue": "Lido",
	}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTourValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tours", map[string]string{"date": "2025-06-01", "venue": "SO36"}, testSecret)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error)
	assert.Contains(t, resp.Message, "city")

	rec = s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date": "2025-06-01", "city": "<script></script>", "venue": "SO36",
	}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/tours", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec = s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tours", nil, "")
	assert.JSONEq(t, `{"tours":[]}`, rec.Body.String())
}

func TestMutationsRequireSecret(t *testing.T) {
	s := newTestServer(t)
	tour := map[string]string{"date": "2025-06-01", "city": "Berlin", "venue": "SO36"}

	for _, token := range []string{"", "wrong"} {
		rec := s.do(t, http.MethodPost, "/api/tours", tour, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeBody[ErrorResponse](t, rec).Error)
	}

	rec := s.do(t, http.MethodPost, "/api/countdown", map[string]any{"enabled": true}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodDelete, "/admin/delete-photo", map[string]string{"photoId": "x"}, "nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tours", nil, "")
	assert.JSONEq(t, `{"tours":[]}`, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/api/countdown", nil, "")
	release := decodeBody[CountdownResponse](t, rec).Release
	assert.False(t, release.Enabled)
}

func TestMutationsRefusedWithoutConfiguredSecret(t *testing.T) {
	s := newTestServer(t, withSecret(""))

	rec := s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date": "2025-06-01", "city": "Berlin", "venue": "SO36",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_misconfigured", decodeBody[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/admin/?password=", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tours", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCountdownMerge(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/countdown", map[string]any{
		"enabled":     true,
		"releaseDate": "2020-01-01T00:00:00Z",
		"title":       "New Album",
	}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	release := decodeBody[CountdownResponse](t, rec).Release
	assert.True(t, release.Enabled)
	assert.True(t, release.Released)
	require.NotNil(t, release.ReleaseDate)

	rec = s.do(t, http.MethodPost, "/api/countdown", map[string]any{"description": "Out soon"}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/countdown", nil, "")
	release = decodeBody[CountdownResponse](t, rec).Release
	assert.Equal(t, "New Album", release.Title)
	assert.Equal(t, "Out soon", release.Description)
	assert.True(t, release.Enabled)

	rec = s.do(t, http.MethodPost, "/api/countdown", map[string]any{"releaseDate": "next friday"}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t)

	rec := s.send(t, uploadRequest(t, testSecret, []filePart{
		{field: "media", filename: "crowd.png", contentType: "image/png", content: pngBytes(t)},
	}, map[string]string{"title": "Crowd", "description": "Front row"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	item := decodeBody[models.GalleryItem](t, rec)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.MediaTypePhoto, item.MediaType)
	assert.Equal(t, "image/png", item.MimeType)
	assert.Equal(t, 1, item.Order)
	assert.Equal(t, media.ThumbnailName(item.Filename, media.ThumbnailExt), item.Thumbnail)
	assert.ElementsMatch(t, []string{item.Filename, item.Thumbnail}, s.mediaFiles(t))

	rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	g := decodeBody[struct {
		Gallery models.Gallery `json:"gallery"`
	}](t, rec).Gallery
	assert.True(t, g.Enabled)
	require.Len(t, g.Photos, 1)
	assert.Equal(t, item.ID, g.Photos[0].ID)

	rec = s.do(t, http.MethodGet, "/media/"+item.Filename, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes(t), rec.Body.Bytes())

	rec = s.do(t, http.MethodGet, "/media/.hidden", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadVideoWithThumbnail(t *testing.T) {
	s := newTestServer(t)

	rec := s.send(t, uploadRequest(t, testSecret, []filePart{
		{field: "media", filename: "live.mp4", contentType: "video/mp4", content: mp4Bytes()},
		{field: "thumbnail", filename: "live.png", contentType: "image/png", content: pngBytes(t)},
	}, map[string]string{"order": "7"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	item := decodeBody[models.GalleryItem](t, rec)
	assert.Equal(t, models.MediaTypeVideo, item.MediaType)
	assert.Equal(t, "video/mp4", item.MimeType)
	assert.Equal(t, 7, item.Order)
	assert.Equal(t, media.ThumbnailName(item.Filename, ".png"), item.Thumbnail)
	assert.Len(t, s.mediaFiles(t), 2)
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name   string
		parts  []filePart
		fields map[string]string
	}{
		{
			name:  "text declared as image",
			parts: []filePart{{field: "media", filename: "notes.png", contentType: "image/png", content: []byte("these are my tour notes, not a picture")}},
		},
		{
			name:  "non media declared type",
			parts: []filePart{{field: "media", filename: "doc.pdf", contentType: "application/pdf", content: pngBytes(t)}},
		},
		{
			name:  "unexpected file field",
			parts: []filePart{{field: "avatar", filename: "a.png", contentType: "image/png", content: pngBytes(t)}},
		},
		{
			name: "two primary files",
			parts: []filePart{
				{field: "media", filename: "a.png", contentType: "image/png", content: pngBytes(t)},
				{field: "photo", filename: "b.png", contentType: "image/png", content: pngBytes(t)},
			},
		},
		{
			name:   "no file",
			fields: map[string]string{"title": "Nothing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.send(t, uploadRequest(t, testSecret, tt.parts, tt.fields))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "upload_rejected", decodeBody[ErrorResponse](t, rec).Error)
			assert.Empty(t, s.mediaFiles(t))

			rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
			assert.Contains(t, rec.Body.String(), `"photos":[]`)
		})
	}
}

func TestUploadInvalidMetadata(t *testing.T) {
	s := newTestServer(t)

	for _, fields := range []map[string]string{
		{"order": "first"},
		{"order": "-1"},
		{"mediaType": "audio"},
	} {
		rec := s.send(t, uploadRequest(t, testSecret, []filePart{
			{field: "media", filename: "a.png", contentType: "image/png", content: pngBytes(t)},
		}, fields))
		assert.Equal(t, http.StatusBadRequest, rec.Code, fields)
		assert.Equal(t, "validation_error", decodeBody[ErrorResponse](t, rec).Error)
	}
	assert.Empty(t, s.mediaFiles(t))
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, withMaxUpload(1024))

	big := append(pngBytes(t), bytes.Repeat([]byte{0}, 4096)...)
	rec := s.send(t, uploadRequest(t, testSecret, []filePart{
		{field: "media", filename: "huge.png", contentType: "image/png", content: big},
	}, nil))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeBody[ErrorResponse](t, rec).Error)
	assert.Empty(t, s.mediaFiles(t))
}

func TestUploadTooLargeStreamed(t *testing.T) {
	s := newTestServer(t, withMaxUpload(1024))

	big := append(pngBytes(t), bytes.Repeat([]byte{0}, 4096)...)
	req := uploadRequest(t, testSecret, []filePart{
		{field: "media", filename: "huge.png", contentType: "image/png", content: big},
	}, nil)
	req.ContentLength = -1

	rec := s.send(t, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "payload_too_large", decodeBody[ErrorResponse](t, rec).Error)
	assert.Empty(t, s.mediaFiles(t))

	rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
	assert.Contains(t, rec.Body.String(), `"photos":[]`)
}

func TestUploadWithoutContentLength(t *testing.T) {
	s := newTestServer(t)

	req := uploadRequest(t, testSecret, []filePart{
		{field: "media", filename: "encore.png", contentType: "image/png", content: pngBytes(t)},
	}, map[string]string{"title": "Encore"})
	req.ContentLength = -1

	rec := s.send(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeBody[models.GalleryItem](t, rec)
	assert.Equal(t, "Encore", item.Title)
	assert.ElementsMatch(t, []string{item.Filename, item.Thumbnail}, s.mediaFiles(t))

	rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
	g := decodeBody[struct {
		Gallery models.Gallery `json:"gallery"`
	}](t, rec).Gallery
	require.Len(t, g.Photos, 1)
	assert.Equal(t, item.ID, g.Photos[0].ID)
}

func uploadPNG(t *testing.T, s *testServer, title string) models.GalleryItem {
	t.Helper()
	rec := s.send(t, uploadRequest(t, testSecret, []filePart{
		{field: "photo", filename: title + ".png", contentType: "image/png", content: pngBytes(t)},
	}, map[string]string{"title": title}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[models.GalleryItem](t, rec)
}

func TestReorderPhotos(t *testing.T) {
	s := newTestServer(t)
	a := uploadPNG(t, s, "a")
	b := uploadPNG(t, s, "b")
	c := uploadPNG(t, s, "c")

	rec := s.do(t, http.MethodPost, "/admin/reorder-photos", map[string]any{"photoId": c.ID, "targetIndex": 0}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
	g := decodeBody[struct {
		Gallery models.Gallery `json:"gallery"`
	}](t, rec).Gallery
	require.Len(t, g.Photos, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{g.Photos[0].ID, g.Photos[1].ID, g.Photos[2].ID})
	for i, p := range g.Photos {
		assert.Equal(t, i, p.Order)
	}

	rec = s.do(t, http.MethodPost, "/admin/reorder-photos", map[string]any{"photoId": a.ID, "targetIndex": 3}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/admin/reorder-photos", map[string]any{"photoId": "missing", "targetIndex": 0}, testSecret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/admin/reorder-photos", map[string]any{"photoId": a.ID}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeletePhoto(t *testing.T) {
	s := newTestServer(t)
	item := uploadPNG(t, s, "soundcheck")

	rec := s.do(t, http.MethodPut, "/admin/update-photo", map[string]any{
		"photoId": item.ID, "title": "Soundcheck", "description": "Afternoon",
	}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[models.GalleryItem](t, rec)
	assert.Equal(t, "Soundcheck", updated.Title)
	assert.Equal(t, "Afternoon", updated.Description)
	assert.Equal(t, item.Filename, updated.Filename)

	rec = s.do(t, http.MethodDelete, "/admin/delete-photo", map[string]string{"photoId": item.ID}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.mediaFiles(t))

	rec = s.do(t, http.MethodDelete, "/admin/delete-photo", map[string]string{"photoId": item.ID}, testSecret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/admin/delete-photo", map[string]string{}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGallerySettings(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/admin/gallery-settings", map[string]bool{"enabled": false}, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/gallery", nil, "")
	assert.JSONEq(t, `{"gallery":{"enabled":false,"photos":[]}}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/admin/gallery-settings", map[string]any{}, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrphans(t *testing.T) {
	s := newTestServer(t)
	item := uploadPNG(t, s, "kept")
	require.NoError(t, os.WriteFile(filepath.Join(s.mediaDir, "stray.jpg"), []byte("x"), 0o644))

	rec := s.do(t, http.MethodGet, "/admin/orphans", nil, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	orphans := decodeBody[map[string][]string](t, rec)["orphans"]
	assert.Equal(t, []string{"stray.jpg"}, orphans)
	assert.NotContains(t, orphans, item.Filename)
}

func TestBackup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/backup", nil, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[services.BackupResult](t, rec)
	assert.FileExists(t, result.Path)
	assert.Empty(t, result.S3Key)

	rec = s.do(t, http.MethodPost, "/api/backup", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminPage(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date": "2025-06-01", "city": "Leipzig", "venue": "Conne Island",
	}, testSecret)

	rec := s.do(t, http.MethodGet, "/admin/?password=wrong", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/?password="+testSecret, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Leipzig")
}

func TestHealthProbes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.db.Close())
	rec = s.do(t, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, withLimit(2))

	for range 2 {
		rec := s.do(t, http.MethodGet, "/api/tours", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/tours", nil, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_requests", decodeBody[ErrorResponse](t, rec).Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func forwardedRequest(i int) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/tours", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
	req.Header.Set("X-Real-IP", "10.0.1."+strconv.Itoa(i))
	return req
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t, withLimit(2))

	refused := 0
	for i := range 20 {
		if s.send(t, forwardedRequest(i)).Code == http.StatusTooManyRequests {
			refused++
		}
	}
	assert.Equal(t, 18, refused)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	s := newTestServer(t, withLimit(2), withTrustProxy())

	for i := 1; i <= 5; i++ {
		rec := s.send(t, forwardedRequest(i))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	for range 2 {
		require.Equal(t, http.StatusOK, s.send(t, forwardedRequest(0)).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, s.send(t, forwardedRequest(0)).Code)
}

func TestWebSocketBroadcast(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg services.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	require.NoError(t, conn.WriteJSON(services.WSMessage{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)

	rec := s.do(t, http.MethodPost, "/api/tours", map[string]string{
		"date": "2025-09-09", "city": "Dresden", "venue": "Beatpol",
	}, testSecret)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "content_updated", msg.Type)
	assert.Equal(t, services.ResourceTours, msg.Resource)
	assert.Positive(t, msg.Timestamp)
}
