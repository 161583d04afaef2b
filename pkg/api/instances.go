package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowdash/flowdash/pkg/models"
)

// ListInstances fetches all workflow instances.
func (c *Client) ListInstances(ctx context.Context) ([]models.WorkflowInstance, error) {
	var instances []models.WorkflowInstance

	err := c.do(ctx, "GET /workflows/instances", http.MethodGet, "/workflows/instances", nil, nil, &instances)
	if err != nil {
		return nil, err
	}

	return instances, nil
}

// GetInstance fetches one workflow instance including its node instances.
func (c *Client) GetInstance(ctx context.Context, id int64) (models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	path := fmt.Sprintf("/workflows/instances/%d", id)

	err := c.do(ctx, "GET /workflows/instances/{id}", http.MethodGet, path, nil, nil, &instance)
	if err != nil {
		return models.WorkflowInstance{}, err
	}

	return instance, nil
}

// CreateInstance starts an execution of a definition. Input is optional and
// passed through to the engine verbatim.
func (c *Client) CreateInstance(ctx context.Context, definitionID int64, input string) (models.WorkflowInstance, error) {
	query := url.Values{}
	query.Set("workflowDefinitionId", strconv.FormatInt(definitionID, 10))

	if input != "" {
		query.Set("input", input)
	}

	var instance models.WorkflowInstance

	err := c.do(ctx, "POST /workflows/instances", http.MethodPost, "/workflows/instances", query, nil, &instance)
	if err != nil {
		return models.WorkflowInstance{}, err
	}

	return instance, nil
}

// TerminateInstance requests cancellation of a running instance.
func (c *Client) TerminateInstance(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/workflows/instances/%d/terminate", id)

	return c.do(ctx, "POST /workflows/instances/{id}/terminate", http.MethodPost, path, nil, nil, nil)
}

// DeleteInstance removes an instance record.
func (c *Client) DeleteInstance(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/workflows/instances/%d", id)

	return c.do(ctx, "DELETE /workflows/instances/{id}", http.MethodDelete, path, nil, nil, nil)
}
