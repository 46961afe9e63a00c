package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/internal/agent"
	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/internal/sessions"
	"github.com/haasonsaas/agentrt/internal/swarm"
	"github.com/haasonsaas/agentrt/internal/tools"
	"github.com/haasonsaas/agentrt/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	hub := eventbus.NewHub(nil)
	registry := sessions.New(0, hub.Publish)
	toolRegistry := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(toolRegistry, time.Second)

	planner := swarm.PlannerFunc(func(ctx context.Context, task string, maxAgents int) ([]models.PlanItem, error) {
		return []models.PlanItem{{Role: "solo", SubtaskText: task}}, nil
	})
	worker := swarm.WorkerFunc(func(ctx context.Context, item models.PlanItem, input string) (string, error) {
		return "done", nil
	})
	orch := swarm.New(planner, worker, nil, hub, nil)

	loop := &agent.Loop{
		Classifier:  classifier.New(),
		NoiseFilter: classifier.NewNoiseFilter(classifier.DefaultFilterConfig()),
		Tools:       toolRegistry,
		Dispatcher:  dispatcher,
		EventBus:    hub,
	}

	srv := NewServer(Config{}, nil)
	srv.Sessions = registry
	srv.Loop = loop
	srv.Classifier = classifier.New()
	srv.NoiseFilter = loop.NoiseFilter
	srv.Tools = toolRegistry
	srv.Dispatcher = dispatcher
	srv.Orchestrator = orch
	srv.Hub = hub
	return srv
}

func TestHandleClassifyReturnsSignalOnly(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(classifyRequest{Text: "What is the status?", Channel: "http"})
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleClassify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var signal models.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signal))
	assert.Equal(t, "question", signal.Type)
}

func TestHandleListToolsReturnsEmptyRegistry(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()

	srv.handleListTools(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body["tools"])
}

func TestHandleExecuteToolUnknownToolIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/tools/nonexistent/execute", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	srv.handleExecuteTool(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleSwarmLaunchRejectsInvalidPattern(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(swarmLaunchRequest{Task: "do a thing", Pattern: "bogus"})
	req := httptest.NewRequest(http.MethodPost, "/swarm/launch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleSwarmLaunch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSwarmLaunchAndGetRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(swarmLaunchRequest{Task: "plan a launch", Pattern: "parallel", MaxAgents: 1})
	req := httptest.NewRequest(http.MethodPost, "/swarm/launch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleSwarmLaunch(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var launched map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &launched))
	swarmID := launched["swarm_id"]
	require.NotEmpty(t, swarmID)

	require.Eventually(t, func() bool {
		getReq := httptest.NewRequest(http.MethodGet, "/swarm/"+swarmID, nil)
		getRec := httptest.NewRecorder()
		srv.handleSwarmByID(getRec, getReq)
		var snap models.Swarm
		_ = json.Unmarshal(getRec.Body.Bytes(), &snap)
		return snap.Status == models.SwarmCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestHandleSwarmByIDUnknownIDIs404(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/swarm/unknown-id", nil)
	rec := httptest.NewRecorder()

	srv.handleSwarmByID(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOrchestrateFilteredReturns422WithSignal(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(orchestrateRequest{SessionID: "s1", Channel: "http", Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/orchestrate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleOrchestrate(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp orchestrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "filtered", resp.Status)
	require.NotNil(t, resp.Signal)
}

func TestAuthMiddlewareRejectsMissingBearerToken(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.RequireAuth = true
	srv.cfg.SharedSecret = "s3cr3t"

	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsMatchingBearerToken(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.RequireAuth = true
	srv.cfg.SharedSecret = "s3cr3t"

	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionStreamReturnsNotFoundForUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/stream/unknown", nil)
	rec := httptest.NewRecorder()

	srv.handleSessionStream(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
