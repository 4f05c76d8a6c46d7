package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoorvaU/prn-extractor/internal/config"
)

func newTestConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	cfg.Database.Path = "test.db"
	cfg.Server.DevMode = true
	return cfg
}

func TestNewServer_ServesStatus(t *testing.T) {
	cfg := newTestConfig(t)
	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	assert.Equal(t, ":20261", srv.Addr())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["connected"])
	assert.Equal(t, "2023-24", status["academicYear"])
}

func TestNewServer_UnknownRoute(t *testing.T) {
	cfg := newTestConfig(t)
	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenService_BadDriver(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Database.Driver = "oracle"

	_, _, err := OpenService(context.Background(), cfg)
	assert.Error(t, err)
}
