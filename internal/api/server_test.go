package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrx-safety-engine/internal/conditions"
	"github.com/medrx-safety-engine/internal/config"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/engine"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/rules"
	"github.com/medrx-safety-engine/internal/unknowns"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Logging:   config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	drugs, err := drugbank.New(drugbank.DefaultTable(), log, nil, nil)
	require.NoError(t, err)
	classifier, err := conditions.NewClassifier(conditions.DefaultGroupers(), log)
	require.NoError(t, err)

	eng, err := engine.New(log, registry.Default(),
		rules.NewRenalDosingModule(drugs, log),
		rules.NewDrugConditionModule(drugs, classifier, log),
		rules.NewDrugDrugModule(drugs, log),
		rules.NewACBBurdenModule(drugs, log),
		rules.NewCNSPolypharmacyModule(drugs, log),
		rules.NewToxidromeModule(drugs, log),
	)
	require.NoError(t, err)

	return NewServer(testConfig(), log, eng, opts)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	egfr := 25.0
	w := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", domain.PatientState{
		Age:         78,
		EGFR:        &egfr,
		Medications: []domain.Medication{{Name: "metformin"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.GreaterOrEqual(t, result.AlertCount, 1)
	assert.Equal(t, "RENAL_CONTRAINDICATION", result.Alerts[0].Code)
	assert.True(t, result.HasBlockingAlerts)
	assert.NotEmpty(t, result.EvaluationID)
}

func TestEvaluateEndpointCleanPatient(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", domain.PatientState{
		Age:         45,
		Medications: []domain.Medication{{Name: "lisinopril"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 0, result.AlertCount)
	assert.False(t, result.HasBlockingAlerts)
}

func TestEvaluateEndpointMalformedBody(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateEndpointInvalidPatient(t *testing.T) {
	srv := newTestServer(t, Options{})

	// Shape-valid JSON with clinically invalid values still returns 200:
	// the engine answers with a blocking validation alert.
	w := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", map[string]any{"age": 200})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.AlertCount)
	assert.Equal(t, "INVALID_INPUT", result.Alerts[0].Code)
}

func TestCorrelationIDHeader(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, "caller-supplied", w.Header().Get("X-Correlation-ID"))
}

func TestUnknownsEndpoints(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "api-unknowns-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	store, err := unknowns.NewSQLiteStore(filepath.Join(tmpDir, "unknowns.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Record(context.Background(), "unobtainium", "drug_drug"))

	srv := newTestServer(t, Options{Unknowns: store})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/unknowns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["total"])

	w = doJSON(t, srv, http.MethodGet, "/api/v1/unknowns/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var export unknowns.Export
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 1, export.Count)
}

func TestUnknownsEndpointsUnconfigured(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/unknowns", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimiting(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	drugs, err := drugbank.New(drugbank.DefaultTable(), log, nil, nil)
	require.NoError(t, err)
	eng, err := engine.New(log, registry.Default(), rules.NewDrugDrugModule(drugs, log))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}
	srv := NewServer(cfg, log, eng, Options{})

	first := httptest.NewRecorder()
	srv.Router().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Router().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
