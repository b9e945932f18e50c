package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/backend"
	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/dispatch"
	"github.com/fyrsmithlabs/workspaced/internal/folders"
	"github.com/fyrsmithlabs/workspaced/internal/logging"
	"github.com/fyrsmithlabs/workspaced/internal/walker"
)

func setupTestServer(t *testing.T) (*Server, *folders.Manager) {
	t.Helper()
	tl := logging.NewTestLogger()
	queue := dispatch.NewQueue(context.Background(), tl.Logger)
	queue.Start()
	mgr := folders.NewManager(backend.NewLoggingService(tl.Logger), binding.NewStaticResolver(), queue, tl.Logger)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	classifier, err := walker.NewClassifier([]string{"**/*_test.go"})
	require.NoError(t, err)

	srv, err := NewServer(mgr, classifier, tl.Logger, nil)
	require.NoError(t, err)
	return srv, mgr
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		srv, _ := setupTestServer(t)
		assert.Equal(t, "localhost", srv.config.Host)
		assert.Equal(t, 9640, srv.config.Port)
	})

	t.Run("returns error when manager is nil", func(t *testing.T) {
		classifier, err := walker.NewClassifier(nil)
		require.NoError(t, err)
		_, err = NewServer(nil, classifier, zap.NewNop(), nil)
		assert.Error(t, err)
	})

	t.Run("returns error when classifier is nil", func(t *testing.T) {
		_, mgr := setupTestServer(t)
		_, err := NewServer(mgr, nil, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "classifier cannot be nil")
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, mgr := setupTestServer(t)
		classifier, err := walker.NewClassifier(nil)
		require.NoError(t, err)
		_, err = NewServer(mgr, classifier, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})
}

func TestHandleHealth(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleFoldersChangedAndList(t *testing.T) {
	srv, _ := setupTestServer(t)

	body := `{"added":[{"uri":"file:///work/app","name":"app"}],"removed":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/folders/changed", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/folders", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var listed []FolderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "file:///work/app", listed[0].URI)
	assert.Equal(t, "app", listed[0].Name)
}

func TestHandleResolve(t *testing.T) {
	srv, mgr := setupTestServer(t)
	mgr.Initialize(context.Background(), []folders.FolderInfo{
		{URI: "file:///work/app", Name: "app"},
	})

	t.Run("resolves owning folder", func(t *testing.T) {
		target := "/api/v1/folders/resolve?uri=" + url.QueryEscape("file:///work/app/main.go")
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp FolderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "file:///work/app", resp.URI)
	})

	t.Run("404 when no folder contains the file", func(t *testing.T) {
		target := "/api/v1/folders/resolve?uri=" + url.QueryEscape("file:///elsewhere/x.go")
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 on opaque uri", func(t *testing.T) {
		target := "/api/v1/folders/resolve?uri=" + url.QueryEscape("mailto:dev@example.com")
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("400 on missing uri", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/folders/resolve", nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleListFiles(t *testing.T) {
	srv, mgr := setupTestServer(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util_test.go"), []byte("package main\n"), 0o644))

	folderURI := "file://" + dir
	mgr.Initialize(context.Background(), []folders.FolderInfo{
		{URI: folderURI, Name: "proj"},
	})

	t.Run("lists source files by default", func(t *testing.T) {
		target := "/api/v1/folders/files?language=go&uri=" + url.QueryEscape(folderURI)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var files []FileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "main.go", files[0].RelPath)
		assert.False(t, files[0].Test)
	})

	t.Run("lists test files", func(t *testing.T) {
		target := "/api/v1/folders/files?language=go&type=test&uri=" + url.QueryEscape(folderURI)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var files []FileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "util_test.go", files[0].RelPath)
		assert.True(t, files[0].Test)
	})

	t.Run("404 for unregistered folder", func(t *testing.T) {
		target := "/api/v1/folders/files?language=go&uri=" + url.QueryEscape("file:///nowhere")
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 on bad type", func(t *testing.T) {
		target := "/api/v1/folders/files?language=go&type=vendored&uri=" + url.QueryEscape(folderURI)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleListModules(t *testing.T) {
	srv, mgr := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	mgr.Initialize(context.Background(), []folders.FolderInfo{
		{URI: "file:///work/app", Name: "app"},
	})

	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil))
	var modules []folders.Module
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modules))
	require.Len(t, modules, 1)
	assert.Equal(t, "app", modules[0].Key)
}

func TestHandleReadiness(t *testing.T) {
	srv, _ := setupTestServer(t)

	// Never-set scope reads as not ready.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readiness?scope="+url.QueryEscape("file:///work/app"), nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)

	// Mark ready.
	body := `{"scope_ids":["file:///work/app"],"ready":true}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/readiness", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/readiness?scope="+url.QueryEscape("file:///work/app"), nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
}

func TestHandleUpdateReadiness_EmptyScopes(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readiness", strings.NewReader(`{"scope_ids":[],"ready":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
