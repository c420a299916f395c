package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
	"github.com/banking/activity-graph-service/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 0, MaxRequestSize: 1 << 20},
		Detection: config.DefaultDetection(),
		Risk:      config.DefaultRisk(),
		Similarity: config.SimilarityConfig{
			DefaultThreshold: 0.5,
			NarrativePreview: 200,
		},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
	}
	engine := service.NewEngine(cfg.Detection, cfg.Risk, cfg.Similarity, logger.NewNop())
	return New(engine, cfg, logger.NewNop())
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec, payload := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}

func TestEntityLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec, payload := do(t, srv, http.MethodPost, "/api/entities",
		`{"entity_id":"e1","name":"Alice","entity_type":"person"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", payload["status"])
	assert.Equal(t, "e1", payload["entity_id"])

	// duplicate conflicts
	rec, payload = do(t, srv, http.MethodPost, "/api/entities",
		`{"entity_id":"e1","name":"Alice","entity_type":"person"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", payload["status"])

	// missing required fields
	rec, _ = do(t, srv, http.MethodPost, "/api/entities", `{"entity_id":"e2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"entity_id":"a","name":"A","entity_type":"person"}`,
		`{"entity_id":"b","name":"B","entity_type":"organization"}`,
	} {
		rec, _ := do(t, srv, http.MethodPost, "/api/entities", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, _ := do(t, srv, http.MethodPost, "/api/transactions",
		`{"transaction_id":"t1","timestamp":"2024-06-15T12:00:00Z","amount":2500,"currency":"USD","sender_id":"a","receiver_id":"b","transaction_type":"wire"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// unknown endpoint entity
	rec, payload := do(t, srv, http.MethodPost, "/api/transactions",
		`{"transaction_id":"t2","timestamp":"2024-06-15T12:00:00Z","amount":2500,"sender_id":"a","receiver_id":"ghost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", payload["status"])

	// non-positive amount
	rec, _ = do(t, srv, http.MethodPost, "/api/transactions",
		`{"transaction_id":"t3","timestamp":"2024-06-15T12:00:00Z","amount":0,"sender_id":"a","receiver_id":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSARAndSimilarity(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := do(t, srv, http.MethodPost, "/api/entities",
		`{"entity_id":"a","name":"A","entity_type":"person"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, payload := do(t, srv, http.MethodPost, "/api/sars",
		`{"sar_id":"sar-1","filing_date":"2024-06-15T12:00:00Z","activity_type":"structuring","entities_involved":["a"],"narrative":"multiple transactions below threshold to avoid reporting","risk_level":"high"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	analysis, ok := payload["narrative_analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "structuring", analysis["primary_pattern"])

	rec, payload = do(t, srv, http.MethodGet, "/api/sars/similar/sar-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), payload["count"])

	rec, _ = do(t, srv, http.MethodGet, "/api/sars/similar/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/sars/similar/sar-1?threshold=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectAndRiskEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := do(t, srv, http.MethodPost, "/api/entities",
		`{"entity_id":"a","name":"A","entity_type":"person"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, payload := do(t, srv, http.MethodGet, "/api/patterns/detect/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), payload["count"])

	rec, _ = do(t, srv, http.MethodGet, "/api/patterns/detect/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/patterns/detect/a?as_of=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload = do(t, srv, http.MethodGet, "/api/risk-analysis/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	report, ok := payload["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a", report["entity_id"])

	rec, _ = do(t, srv, http.MethodGet, "/api/graph/a?depth=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload = do(t, srv, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	stats, ok := payload["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["total_entities"])
}
