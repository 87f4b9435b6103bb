package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fibnas/metazap/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewServer(config.DefaultConfig(), log)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

// TestHandleStatus verifies the idle status response.
func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["running"])
}

// TestHandleScan verifies synchronous scan planning over HTTP.
func TestHandleScan(t *testing.T) {
	s := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	rec, resp := doJSON(t, s, http.MethodPost, "/api/scan", ScanRequest{Directory: dir})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, data["skipped"])
}

// TestHandleScan_BadRequests verifies validation failures.
func TestHandleScan_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/scan", ScanRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/scan", ScanRequest{Directory: "/no/such/dir"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

// TestHandleStrip_BadRequests verifies strip request validation.
func TestHandleStrip_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/strip", StripRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	rec, resp = doJSON(t, s, http.MethodPost, "/api/strip", StripRequest{InputDirectory: "/no/such/dir"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

// TestHandleStop verifies stop is safe with no run in progress.
func TestHandleStop(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}
