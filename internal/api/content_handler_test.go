package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentRouter(svc *stubJobService, uploadDir string) http.Handler {
	h := NewContentHandler(svc, uploadDir, testLogger())
	r := chi.NewRouter()
	r.Post("/api/content/process", h.ProcessContent)
	r.Post("/api/content/upload", h.UploadContent)
	return r
}

func TestProcessContent(t *testing.T) {
	t.Run("explicit kind is used as-is", func(t *testing.T) {
		var gotKind domain.SourceKind
		svc := &stubJobService{
			submitFn: func(ctx context.Context, userID *uuid.UUID, kind domain.SourceKind, source string, params domain.ProcessingParams) (*domain.Job, bool, error) {
				gotKind = kind
				return testJob(t, domain.JobStatusPending), true, nil
			},
		}

		rec := doJSON(t, contentRouter(svc, t.TempDir()), http.MethodPost, "/api/content/process",
			map[string]any{"source": "/data/sources.txt", "source_kind": "collection"})

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, domain.SourceKindCollection, gotKind)
	})

	t.Run("kind is inferred from the source", func(t *testing.T) {
		var gotKind domain.SourceKind
		svc := &stubJobService{
			submitFn: func(ctx context.Context, userID *uuid.UUID, kind domain.SourceKind, source string, params domain.ProcessingParams) (*domain.Job, bool, error) {
				gotKind = kind
				return testJob(t, domain.JobStatusPending), true, nil
			},
		}

		rec := doJSON(t, contentRouter(svc, t.TempDir()), http.MethodPost, "/api/content/process",
			map[string]any{"source": "https://example.com/article"})

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, domain.SourceKindWeb, gotKind)
	})

	t.Run("undeterminable kind returns 400", func(t *testing.T) {
		rec := doJSON(t, contentRouter(&stubJobService{}, t.TempDir()), http.MethodPost, "/api/content/process",
			map[string]any{"source": "mystery.bin"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing source fails validation", func(t *testing.T) {
		rec := doJSON(t, contentRouter(&stubJobService{}, t.TempDir()), http.MethodPost, "/api/content/process",
			map[string]any{"source_kind": "pdf"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadContent(t *testing.T) {
	t.Run("stores the file and submits a job", func(t *testing.T) {
		uploadDir := t.TempDir()
		var gotSource string
		var gotKind domain.SourceKind
		svc := &stubJobService{
			submitFn: func(ctx context.Context, userID *uuid.UUID, kind domain.SourceKind, source string, params domain.ProcessingParams) (*domain.Job, bool, error) {
				gotSource = source
				gotKind = kind
				return testJob(t, domain.JobStatusPending), true, nil
			},
		}

		body, contentType := multipartUpload(t, "lecture.pdf", []byte("%PDF-1.4 fake"))
		req := httptest.NewRequest(http.MethodPost, "/api/content/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		contentRouter(svc, uploadDir).ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, domain.SourceKindPDF, gotKind)
		assert.Equal(t, ".pdf", filepath.Ext(gotSource))

		data, err := os.ReadFile(gotSource)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 fake"), data)

		var resp JobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("rejects files over the size limit", func(t *testing.T) {
		uploadDir := t.TempDir()
		submitted := false
		svc := &stubJobService{
			submitFn: func(ctx context.Context, userID *uuid.UUID, kind domain.SourceKind, source string, params domain.ProcessingParams) (*domain.Job, bool, error) {
				submitted = true
				return testJob(t, domain.JobStatusPending), true, nil
			},
		}

		oversized := bytes.Repeat([]byte("a"), maxUploadBytes+1024)
		body, contentType := multipartUpload(t, "huge.pdf", oversized)
		req := httptest.NewRequest(http.MethodPost, "/api/content/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		contentRouter(svc, uploadDir).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "upload limit")
		assert.False(t, submitted, "oversized uploads must not become jobs")

		entries, err := os.ReadDir(uploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "rejected uploads must not leave files behind")
	})

	t.Run("rejects legacy doc files", func(t *testing.T) {
		body, contentType := multipartUpload(t, "old.doc", []byte{0xd0, 0xcf, 0x11, 0xe0})
		req := httptest.NewRequest(http.MethodPost, "/api/content/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		contentRouter(&stubJobService{}, t.TempDir()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		body, contentType := multipartUpload(t, "malware.exe", []byte("MZ"))
		req := httptest.NewRequest(http.MethodPost, "/api/content/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		contentRouter(&stubJobService{}, t.TempDir()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file field returns 400", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("difficulty_level", "hard"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/content/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		contentRouter(&stubJobService{}, t.TempDir()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
