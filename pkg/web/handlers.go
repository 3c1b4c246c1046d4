package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/graph"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
	"github.com/loomhq/loom/pkg/registry"
)

type APIHandlers struct {
	persistence persistence.Persistence
	triggers    *execution.TriggerService
	registry    *registry.Registry
	validator   *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	triggers *execution.TriggerService,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		triggers:    triggers,
		registry:    reg,
		validator:   validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().All(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.Workflows().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow validates and stores a workflow definition. Adapter families
// must be registered and the graph must have a valid schedule before anything
// is persisted. Node configs may still hold unresolved placeholders here, so
// schema validation waits until execution time.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	err := json.Unmarshal(c.Body(), &req)
	if err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	workflow := &models.Workflow{
		ID:      uuid.NewString(),
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Trigger: req.Trigger,
		Nodes:   req.Nodes,
		Edges:   req.Edges,
		Enabled: enabled,
	}

	if workflow.Trigger.Kind == "" {
		workflow.Trigger.Kind = models.TriggerKindManual
	}

	for _, node := range workflow.Nodes {
		if node.Type == models.NodeTypeTrigger {
			continue
		}

		// The trigger payload lives under this context key; a node writing
		// its output there would shadow it for every downstream template.
		if node.ID == models.TriggerNodeID {
			return badRequest(c, "node id "+models.TriggerNodeID+" is reserved for the trigger payload")
		}

		if !h.registry.Has(node.AdapterID()) {
			return badRequest(c, "unknown adapter "+node.AdapterID()+" on node "+node.ID)
		}
	}

	_, err = graph.Plan(workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	err = h.persistence.Workflows().Save(c.Context(), workflow)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.persistence.Workflows().Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerWorkflow starts a manual run. The response returns before any node
// executes.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	var req TriggerExecutionRequest

	if len(c.Body()) > 0 {
		err := json.Unmarshal(c.Body(), &req)
		if err != nil {
			return badRequest(c, "invalid request body: "+err.Error())
		}
	}

	executionRecord, err := h.triggers.Request(c.Context(), execution.TriggerRequest{
		WorkflowID:    c.Params("id"),
		TriggerData:   req.TriggerData,
		Source:        execution.SourceManual,
		AllowDisabled: req.AllowDisabled,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(NewExecutionAcceptedResponse(executionRecord))
}

// Webhook is the ingress for inbound webhook deliveries. The raw JSON body
// becomes the trigger payload.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	triggerData := map[string]any{}

	if len(c.Body()) > 0 {
		err := json.Unmarshal(c.Body(), &triggerData)
		if err != nil {
			return badRequest(c, "webhook payload must be a JSON object")
		}
	}

	executionRecord, err := h.triggers.Request(c.Context(), execution.TriggerRequest{
		WorkflowID:  c.Params("workflowID"),
		TriggerData: triggerData,
		Source:      execution.SourceWebhook,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(NewExecutionAcceptedResponse(executionRecord))
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	executionRecord, err := h.persistence.Executions().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executionRecord)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	_, err := h.persistence.Workflows().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.persistence.Executions().ByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

// GetAdapters lists the registered adapter families with their schemas.
func (h *APIHandlers) GetAdapters(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"adapters": h.registry.IDs()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
