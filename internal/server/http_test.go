package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/async"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/export"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/store"
)

type captureQueue struct {
	jobs []async.Job
	err  error
}

func (q *captureQueue) Enqueue(_ context.Context, job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newTestHandler(t *testing.T, queue async.Queue) (*Handler, *store.MemoryRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := store.NewMemoryRepository()
	svc := NewService(repo, files, queue, logger)
	return NewHandler(svc, export.NewService(repo, logger), logger), repo
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSubmitAndPoll(t *testing.T) {
	queue := &captureQueue{}
	h, _ := newTestHandler(t, queue)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, contentType := multipartUpload(t, "file", "homework.png", []byte("image bytes"))
	resp, err := http.Post(srv.URL+"/v1/problems", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created entity.Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, constants.StatusQueued, created.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, created.ID, queue.jobs[0].ProblemID)

	get, err := http.Get(srv.URL + "/v1/problems/" + created.ID.String())
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var fetched entity.Problem
	require.NoError(t, json.NewDecoder(get.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestSubmitUnsupportedType(t *testing.T) {
	h, _ := newTestHandler(t, &captureQueue{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, contentType := multipartUpload(t, "file", "essay.docx", []byte("text"))
	resp, err := http.Post(srv.URL+"/v1/problems", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestSubmitQueueFull(t *testing.T) {
	h, _ := newTestHandler(t, &captureQueue{err: async.ErrQueueFull})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, contentType := multipartUpload(t, "file", "homework.png", []byte("image bytes"))
	resp, err := http.Post(srv.URL+"/v1/problems", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSubmitMissingFileField(t *testing.T) {
	h, _ := newTestHandler(t, &captureQueue{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	body, contentType := multipartUpload(t, "wrong_field", "homework.png", []byte("image bytes"))
	resp, err := http.Post(srv.URL+"/v1/problems", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetProblemErrors(t *testing.T) {
	h, _ := newTestHandler(t, &captureQueue{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/problems/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/problems/00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	h, repo := newTestHandler(t, &captureQueue{})
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	_, err := repo.Create(context.Background(), "uploads/a.png")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/v1/export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}
