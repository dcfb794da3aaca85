package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/archive"
	"github.com/h4dihastam/archive/internal/config"
	"github.com/h4dihastam/archive/internal/storage"
	"github.com/h4dihastam/archive/internal/storage/memory"
)

type fakeCapturer struct {
	art     archive.Artifact
	err     error
	gotURLs []string
}

func (f *fakeCapturer) Archive(_ context.Context, rawURL string) (archive.Artifact, error) {
	f.gotURLs = append(f.gotURLs, rawURL)
	if f.err != nil {
		return archive.Artifact{}, f.err
	}
	art := f.art
	art.URL = rawURL
	return art, nil
}

type fakeSaver struct {
	rec  storage.Record
	err  error
	seen []archive.Artifact
}

func (f *fakeSaver) Save(_ context.Context, art archive.Artifact) (storage.Record, error) {
	f.seen = append(f.seen, art)
	if f.err != nil {
		return storage.Record{}, f.err
	}
	rec := f.rec
	rec.URL = art.URL
	return rec, nil
}

func newTestServer(t *testing.T, capturer *fakeCapturer, saver *fakeSaver, cfg config.Config) (*Server, *memory.IndexStore) {
	t.Helper()
	if cfg.Archive.BaseDir == "" {
		cfg.Archive.BaseDir = t.TempDir()
	}
	index := memory.NewIndexStore()
	return NewServer(capturer, saver, index, cfg, zap.NewNop()), index
}

func TestServer_CreateArchive_Succeeds(t *testing.T) {
	t.Parallel()

	capturer := &fakeCapturer{art: archive.Artifact{Slug: "example_com_20260314_092600"}}
	saver := &fakeSaver{rec: storage.Record{ID: "arch-1", Slug: "example_com_20260314_092600"}}
	server, _ := newTestServer(t, capturer, saver, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/archives", bytes.NewBufferString(`{"url":"https://example.com/a"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "arch-1")
	require.Equal(t, []string{"https://example.com/a"}, capturer.gotURLs)
	require.Len(t, saver.seen, 1)
	require.Equal(t, "https://example.com/a", saver.seen[0].URL)
}

func TestServer_CreateArchive_InvalidJSON(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/archives", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateArchive_InvalidURL(t *testing.T) {
	t.Parallel()

	capturer := &fakeCapturer{}
	server, _ := newTestServer(t, capturer, &fakeSaver{}, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/archives", bytes.NewBufferString(`{"url":"ftp://example.com"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, capturer.gotURLs, "pipeline must not run for rejected URLs")
}

func TestServer_CreateArchive_CaptureFails(t *testing.T) {
	t.Parallel()

	capturer := &fakeCapturer{err: errors.New("create capture folder: disk full")}
	server, _ := newTestServer(t, capturer, &fakeSaver{}, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/archives", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_CreateArchive_PersistFails(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{err: errors.New("index down")}
	server, _ := newTestServer(t, &fakeCapturer{}, saver, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/archives", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "failed to persist")
}

func TestServer_GetArchive(t *testing.T) {
	t.Parallel()

	server, index := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, config.Config{})
	require.NoError(t, index.CreateArchive(context.Background(), storage.Record{
		ID:        "arch-9",
		URL:       "https://example.com/a",
		CreatedAt: time.Unix(100, 0),
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/archives/arch-9", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "example.com")

	req = httptest.NewRequest(http.MethodGet, "/v1/archives/missing", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListArchives(t *testing.T) {
	t.Parallel()

	server, index := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, config.Config{})
	base := time.Unix(1000, 0)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, index.CreateArchive(context.Background(), storage.Record{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/archives?limit=2", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"c"`)
	require.NotContains(t, rec.Body.String(), `"a"`)

	req = httptest.NewRequest(http.MethodGet, "/v1/archives?limit=zero", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListArchives_EmptyIsArray(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/archives", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"archives":[]`)
}

func TestServer_APIKeyRequired(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}
	server, _ := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/archives", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/archives", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_ServesArtifactFiles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	folder := filepath.Join(base, "example_com_20260314_092600")
	require.NoError(t, os.MkdirAll(folder, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "archive.html"), []byte("<html>kept</html>"), 0o640))

	cfg := config.Config{Archive: config.ArchiveConfig{BaseDir: base}}
	server, _ := newTestServer(t, &fakeCapturer{}, &fakeSaver{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/archives/example_com_20260314_092600/archive.html", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "kept")
}
