package stubapi

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/registry"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type Handlers struct {
	store     *memoryStore
	simulator *Simulator
	registry  *registry.Registry
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandlers(store *memoryStore, simulator *Simulator, reg *registry.Registry, validate *validator.Validate, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:     store,
		simulator: simulator,
		registry:  reg,
		validate:  validate,
		logger:    logger,
	}
}

// validateGraph rejects definitions the engine could not run: unknown node
// types and configs violating the type's schema.
func (h *Handlers) validateGraph(graph models.PersistedGraph) error {
	for _, node := range graph.Nodes {
		if !h.registry.Registered(node.Type) {
			return fmt.Errorf("node %s: %w: %s", node.ID, registry.ErrUnknownNodeType, node.Type)
		}

		if err := h.registry.ValidateConfig(node.Type, node.Config); err != nil {
			return fmt.Errorf("node %s: %w", node.ID, err)
		}
	}

	return nil
}

// Login accepts any non-empty credentials and issues a bearer token. This is
// a development stub; there is no account database behind it.
func (h *Handlers) Login(c fiber.Ctx) error {
	var req loginRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	token := uuid.NewString()
	h.store.issueToken(token)

	h.logger.Info("Issued token", "username", req.Username)

	return c.JSON(loginResponse{Token: token})
}

// RequireAuth guards every endpoint except login behind the bearer token.
func (h *Handlers) RequireAuth(c fiber.Ctx) error {
	const prefix = "Bearer "

	header := c.Get("Authorization")
	if !strings.HasPrefix(header, prefix) || !h.store.validToken(strings.TrimPrefix(header, prefix)) {
		return unauthorized(c, "missing or invalid bearer token")
	}

	return c.Next()
}

func (h *Handlers) ListDefinitions(c fiber.Ctx) error {
	return c.JSON(h.store.listDefinitions())
}

func (h *Handlers) GetDefinition(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid definition id")
	}

	definition, err := h.store.getDefinition(id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(definition)
}

func (h *Handlers) CreateDefinition(c fiber.Ctx) error {
	var definition models.WorkflowDefinition

	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.Struct(definition); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.validateGraph(definition.Graph); err != nil {
		return badRequest(c, err.Error())
	}

	created := h.store.createDefinition(definition)

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) UpdateDefinition(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid definition id")
	}

	var definition models.WorkflowDefinition

	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.Struct(definition); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.validateGraph(definition.Graph); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.store.updateDefinition(id, definition)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(updated)
}

func (h *Handlers) DeleteDefinition(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid definition id")
	}

	if err := h.store.deleteDefinition(id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) ListInstances(c fiber.Ctx) error {
	return c.JSON(h.store.listInstances())
}

func (h *Handlers) GetInstance(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid instance id")
	}

	instance, err := h.store.getInstance(id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(instance)
}

// CreateInstance starts a simulated execution of a definition. The definition
// id arrives as a query parameter, matching the engine's API.
func (h *Handlers) CreateInstance(c fiber.Ctx) error {
	definitionID, err := strconv.ParseInt(c.Query("workflowDefinitionId"), 10, 64)
	if err != nil {
		return badRequest(c, "workflowDefinitionId query parameter is required")
	}

	instance, err := h.store.createInstance(definitionID, c.Query("input"))
	if err != nil {
		return handleStoreError(c, err)
	}

	// The simulated run outlives this request.
	go h.simulator.Run(context.Background(), instance)

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *Handlers) TerminateInstance(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid instance id")
	}

	if _, err := h.store.getInstance(id); err != nil {
		return handleStoreError(c, err)
	}

	if !h.simulator.Terminate(id) {
		return conflict(c, "instance already finished")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) DeleteInstance(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid instance id")
	}

	if err := h.store.deleteInstance(id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func pathID(c fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
