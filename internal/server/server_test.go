package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/resolve/internal/config"
)

func testServer() *Server {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Store.Kind = "none"
	cfg.Ingest = config.IngestConfig{Source: "synthetic", Count: 20, DuplicateRate: 0.5, Seed: 1}
	return &Server{Config: cfg}
}

func postResolve(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResolveInlineRecords(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	body := `{"records": [
		{"id": "r1", "fields": {"full_name": "John Smith", "phone": "555-123-4567 94107"}},
		{"id": "r2", "fields": {"full_name": "Jon Smith", "phone": "5551234567 94107"}},
		{"id": "r3", "fields": {"full_name": "Alice Brown", "phone": "212-555-0000 10001"}}
	]}`
	w := postResolve(t, r, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["records"])
	assert.Equal(t, "link", resp["mode"])
}

func TestResolveUsesConfiguredSource(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	w := postResolve(t, r, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp["records"], float64(20))
}

func TestResolveModeOverride(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	w := postResolve(t, r, `{"mode": "merge", "records": [{"id": "r1", "fields": {"full_name": "John Smith"}}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "merge", resp["mode"])
}

func TestResolveBadMode(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	w := postResolve(t, r, `{"mode": "fuse"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadEndpointsBeforeRun(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	for _, path := range []string{"/graph", "/clusters", "/masters"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestReadEndpointsAfterRun(t *testing.T) {
	s := testServer()
	r := s.SetupRouter()

	body := `{"records": [
		{"id": "r1", "fields": {"full_name": "John Smith", "phone": "555-123-4567 94107"}},
		{"id": "r2", "fields": {"full_name": "Jon Smith", "phone": "5551234567 94107"}}
	]}`
	require.Equal(t, http.StatusOK, postResolve(t, r, body).Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graph", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var graph struct {
		Nodes []map[string]interface{} `json:"nodes"`
		Edges []interface{}            `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 2)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/masters", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
