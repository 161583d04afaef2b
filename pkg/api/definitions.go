package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowdash/flowdash/pkg/models"
)

// ListDefinitions fetches all workflow definitions.
func (c *Client) ListDefinitions(ctx context.Context) ([]models.WorkflowDefinition, error) {
	var definitions []models.WorkflowDefinition

	err := c.do(ctx, "GET /workflows/definitions", http.MethodGet, "/workflows/definitions", nil, nil, &definitions)
	if err != nil {
		return nil, err
	}

	return definitions, nil
}

// GetDefinition fetches one workflow definition.
func (c *Client) GetDefinition(ctx context.Context, id int64) (models.WorkflowDefinition, error) {
	var definition models.WorkflowDefinition

	path := fmt.Sprintf("/workflows/definitions/%d", id)

	err := c.do(ctx, "GET /workflows/definitions/{id}", http.MethodGet, path, nil, nil, &definition)
	if err != nil {
		return models.WorkflowDefinition{}, err
	}

	return definition, nil
}

// CreateDefinition persists a new workflow definition and returns the stored
// record.
func (c *Client) CreateDefinition(ctx context.Context, definition models.WorkflowDefinition) (models.WorkflowDefinition, error) {
	var created models.WorkflowDefinition

	err := c.do(ctx, "POST /workflows/definitions", http.MethodPost, "/workflows/definitions", nil, definition, &created)
	if err != nil {
		return models.WorkflowDefinition{}, err
	}

	return created, nil
}

// UpdateDefinition replaces an existing workflow definition.
func (c *Client) UpdateDefinition(ctx context.Context, id int64, definition models.WorkflowDefinition) (models.WorkflowDefinition, error) {
	var updated models.WorkflowDefinition

	path := fmt.Sprintf("/workflows/definitions/%d", id)

	err := c.do(ctx, "PUT /workflows/definitions/{id}", http.MethodPut, path, nil, definition, &updated)
	if err != nil {
		return models.WorkflowDefinition{}, err
	}

	return updated, nil
}

// DeleteDefinition removes a workflow definition.
func (c *Client) DeleteDefinition(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/workflows/definitions/%d", id)

	return c.do(ctx, "DELETE /workflows/definitions/{id}", http.MethodDelete, path, nil, nil, nil)
}
