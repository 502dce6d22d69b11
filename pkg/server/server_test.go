package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rag"
)

type stubPipeline struct{}

func (stubPipeline) Index(
	_ context.Context,
	collection, _ string,
	_ models.PointMetadata,
) (*rag.IndexResult, error) {
	return &rag.IndexResult{Collection: collection, ChunksCount: 1}, nil
}

func (stubPipeline) Search(context.Context, string, string, int) ([]models.ScoredHit, error) {
	return []models.ScoredHit{{ID: "1", Content: "hit", Score: 1}}, nil
}

func (stubPipeline) Ask(context.Context, string, string, int) (*rag.Answer, error) {
	return &rag.Answer{Text: "answer"}, nil
}

func (stubPipeline) ListCollections(context.Context) ([]models.Collection, error) {
	return []models.Collection{{Name: "chats", VectorSize: 4}}, nil
}

func (stubPipeline) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T, headers map[string]string) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Retrieval: config.RetrievalConfig{DefaultCollection: "chats", SearchLimit: 5, RAGLimit: 3},
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 8000, MaxUploadMB: 1, CustomHeaders: headers},
	}
	srv := httptest.NewServer(setupRouter(cfg, stubPipeline{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreate(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 9001}}
	srv := Create(cfg, stubPipeline{})
	assert.Equal(t, "127.0.0.1:9001", srv.Addr)
	assert.Equal(t, ReadHeaderTimeout, srv.ReadHeaderTimeout)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/status", "", http.StatusOK},
		{http.MethodGet, "/collections", "", http.StatusOK},
		{http.MethodPost, "/search", `{"text":"hello"}`, http.StatusOK},
		{http.MethodPost, "/rag-inference", `{}`, http.StatusOK},
		{http.MethodGet, "/search", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, config.VersionString, resp.Header.Get(versionHeader))
		})
	}
}

func TestRootMessage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "RAG Analysis API is running", body["message"])
}

func TestCustomHeaders(t *testing.T) {
	t.Setenv("CHATRAG_TEST_HEADER", "from-env")
	srv := newTestServer(t, map[string]string{
		"X-Static": "static",
		"X-Secret": "env:CHATRAG_TEST_HEADER",
	})

	resp, err := srv.Client().Get(srv.URL + "/collections")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "static", resp.Header.Get("X-Static"))
	assert.Equal(t, "from-env", resp.Header.Get("X-Secret"))
}
