package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/filestore/service/internal/provider"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Service, *fakeStore, *fakeProvider) {
	t.Helper()
	store := newFakeStore()
	prov := &fakeProvider{id: provider.Minio}
	svc := NewService(store, []provider.Provider{prov}, nil, zap.NewNop())
	h := NewHandler(svc, 10, 5<<20)

	r := chi.NewRouter()
	r.Route("/files", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Upload)
		r.Delete("/", h.Delete)
		r.Get("/{fileID}", h.Get)
	})
	return r, svc, store, prov
}

func multipartBody(t *testing.T, providerID, location string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("provider", providerID))
	if location != "" {
		require.NoError(t, w.WriteField("path", location))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// decodeEnvelope unwraps the response envelope and returns the raw data.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestUploadEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "minio", "docs", map[string][]byte{
		"a.txt": []byte("aaa"),
		"b.pdf": []byte("bbbb"),
	})
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data UploadResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec), &data))
	assert.Len(t, data.Files, 2)
	assert.Empty(t, data.Failed)
	for _, f := range data.Files {
		assert.Equal(t, "docs", f.Path)
		assert.NotEmpty(t, f.URL)
	}
}

func TestUploadEndpointUnknownProvider(t *testing.T) {
	router, _, store, prov := newTestRouter(t)

	body, contentType := multipartBody(t, "dropbox", "", map[string][]byte{"a.txt": []byte("aaa")})
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, prov.uploadCalls)
	assert.Zero(t, store.insertCalls)
}

func TestUploadEndpointNoFiles(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "minio", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEndpointTooManyFiles(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	files := map[string][]byte{}
	for i := 0; i < 11; i++ {
		files[fmt.Sprintf("f%d.txt", i)] = []byte("x")
	}
	body, contentType := multipartBody(t, "minio", "", files)
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	router, svc, _, _ := newTestRouter(t)
	seedFiles(t, svc, "one.txt", "two.txt")

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data ListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec), &data))
	assert.Len(t, data.Files, 2)
}

func TestListEndpointWithFilters(t *testing.T) {
	router, svc, _, _ := newTestRouter(t)
	seedFiles(t, svc, "report.pdf", "photo.jpg")

	q := url.Values{}
	q.Set("name", "REPORT")
	q.Set("limit", "5")
	q.Set("order", "asc")
	req := httptest.NewRequest(http.MethodGet, "/files?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data ListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec), &data))
	require.Len(t, data.Files, 1)
	assert.Equal(t, "report.pdf", data.Files[0].Name)
}

func TestListEndpointRejectsBadParams(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	for _, rawQuery := range []string{
		"id=not-a-uuid",
		"provider=dropbox",
		"order=sideways",
		"limit=-1",
		"createdAtFrom=yesterday",
		"sizeFrom=big",
	} {
		req := httptest.NewRequest(http.MethodGet, "/files?"+rawQuery, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", rawQuery)
	}
}

func TestGetEndpoint(t *testing.T) {
	router, svc, _, _ := newTestRouter(t)
	seeded := seedFiles(t, svc, "single.txt")

	req := httptest.NewRequest(http.MethodGet, "/files/"+seeded[0].ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data FileResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec), &data))
	assert.Equal(t, seeded[0].ID, data.File.ID)
	assert.NotEmpty(t, data.File.URL)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec), &raw))
	assert.NotContains(t, raw["file"], "referenceId")
}

func TestGetEndpointNotFound(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/files/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEndpointInvalidID(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/files/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router, svc, _, _ := newTestRouter(t)
	seeded := seedFiles(t, svc, "del.txt")

	req := httptest.NewRequest(http.MethodDelete, "/files?id="+seeded[0].ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	files, err := svc.FetchFiles(context.Background(), Filter{IDs: []string{seeded[0].ID}}, false)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteEndpointValidation(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing id")

	req = httptest.NewRequest(http.MethodDelete, "/files?id=not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed id")
}
