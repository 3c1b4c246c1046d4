package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/events"
	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence/file"
	"github.com/loomhq/loom/pkg/registry"
	"github.com/loomhq/loom/pkg/testutil"
	"github.com/loomhq/loom/pkg/web"
)

type nopBus struct{}

func (nopBus) Publish(context.Context, string, eventbus.Event) error       { return nil }
func (nopBus) Handle(events.EventType, eventbus.EventHandler) error       { return nil }
func (nopBus) Subscribe(context.Context) error                            { return nil }
func (nopBus) Close() error                                               { return nil }
func (nopBus) GenerateID() string                                         { return uuid.NewString() }

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()
	triggers := execution.NewTriggerService(store, nopBus{}, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(store, triggers, registry.NewDefaultRegistry(logger), validate)

	app := fiber.New()

	v1 := app.Group("/v1")
	v1.Get("/workflows", handlers.GetWorkflows)
	v1.Post("/workflows", handlers.CreateWorkflow)
	v1.Get("/workflows/:id", handlers.GetWorkflow)
	v1.Delete("/workflows/:id", handlers.DeleteWorkflow)
	v1.Post("/workflows/:id/executions", handlers.TriggerWorkflow)
	v1.Get("/workflows/:id/executions", handlers.GetWorkflowExecutions)
	v1.Get("/executions/:id", handlers.GetExecution)
	v1.Post("/hooks/:workflowID", handlers.Webhook)
	v1.Get("/adapters", handlers.GetAdapters)

	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func validCreateRequest() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:    "Order Notifications",
		OwnerID: "user-1",
		Trigger: models.Trigger{Kind: models.TriggerKindManual},
		Nodes: []*models.Node{
			testutil.NewNode("start", testutil.AsTrigger()),
			testutil.NewNode("format"),
		},
		Edges: []models.Edge{testutil.Edge("start", "format")},
	}
}

func TestCreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/v1/workflows", validCreateRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "Order Notifications", workflow.Name)
	assert.True(t, workflow.Enabled)
	assert.Len(t, workflow.Nodes, 2)
}

func TestCreateWorkflowRejectsInvalidBody(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/workflows", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflowRejectsUnknownAdapter(t *testing.T) {
	app, _ := setupTestApp(t)

	req := validCreateRequest()
	req.Nodes[1].Adapter = "telegraph"

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/workflows", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflowRejectsReservedNodeID(t *testing.T) {
	app, _ := setupTestApp(t)

	req := validCreateRequest()
	req.Nodes = append(req.Nodes, testutil.NewNode(models.TriggerNodeID))
	req.Edges = append(req.Edges, testutil.Edge("format", models.TriggerNodeID))

	resp, body := doJSON(t, app, http.MethodPost, "/v1/workflows", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "reserved")
}

func TestCreateWorkflowRejectsCyclicGraph(t *testing.T) {
	app, _ := setupTestApp(t)

	req := validCreateRequest()
	req.Nodes = append(req.Nodes, testutil.NewNode("loop"))
	req.Edges = append(req.Edges, testutil.Edge("format", "loop"), testutil.Edge("loop", "format"))

	resp, body := doJSON(t, app, http.MethodPost, "/v1/workflows", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_graph")
}

func TestGetWorkflow(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodGet, "/v1/workflows/"+workflow.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Workflow
	require.NoError(t, json.Unmarshal(body, &loaded))
	assert.Equal(t, workflow.ID, loaded.ID)
}

func TestGetWorkflowNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/v1/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestDeleteWorkflow(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, _ := doJSON(t, app, http.MethodDelete, "/v1/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/v1/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerWorkflowAccepted(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/v1/workflows/"+workflow.ID+"/executions",
		web.TriggerExecutionRequest{TriggerData: map[string]any{"k": "v"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted web.ExecutionAcceptedResponse
	require.NoError(t, json.Unmarshal(body, &accepted))
	assert.NotEmpty(t, accepted.ExecutionID)
	assert.Equal(t, models.ExecutionStatusPending, accepted.Status)

	loaded, err := store.Executions().ByID(context.Background(), accepted.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, loaded.Status)
	assert.Equal(t, "v", loaded.TriggerData["k"])
}

func TestTriggerDisabledWorkflowConflict(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	workflow.Enabled = false
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/v1/workflows/"+workflow.ID+"/executions", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "workflow_disabled")
}

func TestWebhookIngress(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	workflow.Trigger = models.Trigger{Kind: models.TriggerKindWebhook}
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/v1/hooks/"+workflow.ID,
		map[string]any{"order_id": "o-42"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted web.ExecutionAcceptedResponse
	require.NoError(t, json.Unmarshal(body, &accepted))

	loaded, err := store.Executions().ByID(context.Background(), accepted.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "o-42", loaded.TriggerData["order_id"])
}

func TestWebhookRejectsNonWebhookWorkflow(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, _ := doJSON(t, app, http.MethodPost, "/v1/hooks/"+workflow.ID, map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetExecution(t *testing.T) {
	app, store := setupTestApp(t)

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusSuccess,
	}
	require.NoError(t, store.Executions().Create(context.Background(), execution))

	resp, body := doJSON(t, app, http.MethodGet, "/v1/executions/exec-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Execution
	require.NoError(t, json.Unmarshal(body, &loaded))
	assert.Equal(t, models.ExecutionStatusSuccess, loaded.Status)
}

func TestGetWorkflowExecutions(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	for _, id := range []string{"e1", "e2"} {
		require.NoError(t, store.Executions().Create(context.Background(), &models.Execution{
			ID:         id,
			WorkflowID: workflow.ID,
			Status:     models.ExecutionStatusPending,
		}))
	}

	resp, body := doJSON(t, app, http.MethodGet, "/v1/workflows/"+workflow.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "e1")
	assert.Contains(t, string(body), "e2")
}

func TestListAdapters(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/v1/adapters", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "formatter")
	assert.Contains(t, string(body), "payment")
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
