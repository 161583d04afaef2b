// Package stubapi is a self-contained stand-in for the workflow-execution
// backend: the full REST surface, bearer-token auth, a websocket status feed
// and a small execution simulator. It exists so the dashboard client can be
// developed and exercised end to end without the real engine.
package stubapi

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/flowdash/flowdash/pkg/models"
)

var (
	errDefinitionNotFound = errors.New("workflow definition not found")
	errInstanceNotFound   = errors.New("workflow instance not found")
)

type memoryStore struct {
	mu           sync.RWMutex
	definitions  map[int64]*models.WorkflowDefinition
	instances    map[int64]*models.WorkflowInstance
	tokens       map[string]struct{}
	nextDef      int64
	nextInstance int64
	nextNode     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		definitions: make(map[int64]*models.WorkflowDefinition),
		instances:   make(map[int64]*models.WorkflowInstance),
		tokens:      make(map[string]struct{}),
	}
}

func (s *memoryStore) issueToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = struct{}{}
}

func (s *memoryStore) validToken(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tokens[token]

	return ok
}

func (s *memoryStore) createDefinition(definition models.WorkflowDefinition) models.WorkflowDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDef++
	now := time.Now().UTC()

	definition.ID = s.nextDef
	definition.CreatedAt = &now
	definition.UpdatedAt = &now
	s.definitions[definition.ID] = &definition

	return definition
}

func (s *memoryStore) listDefinitions() []models.WorkflowDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.WorkflowDefinition, 0, len(s.definitions))
	for _, definition := range s.definitions {
		result = append(result, *definition)
	}

	slices.SortFunc(result, func(a, b models.WorkflowDefinition) int {
		return int(a.ID - b.ID)
	})

	return result
}

func (s *memoryStore) getDefinition(id int64) (models.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	definition, ok := s.definitions[id]
	if !ok {
		return models.WorkflowDefinition{}, errDefinitionNotFound
	}

	return *definition, nil
}

func (s *memoryStore) updateDefinition(id int64, update models.WorkflowDefinition) (models.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.definitions[id]
	if !ok {
		return models.WorkflowDefinition{}, errDefinitionNotFound
	}

	now := time.Now().UTC()
	update.ID = id
	update.CreatedAt = existing.CreatedAt
	update.UpdatedAt = &now
	s.definitions[id] = &update

	return update, nil
}

func (s *memoryStore) deleteDefinition(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[id]; !ok {
		return errDefinitionNotFound
	}

	delete(s.definitions, id)

	return nil
}

// createInstance builds a PENDING instance with one PENDING node record per
// business node of the definition graph.
func (s *memoryStore) createInstance(definitionID int64, input string) (models.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	definition, ok := s.definitions[definitionID]
	if !ok {
		return models.WorkflowInstance{}, errDefinitionNotFound
	}

	s.nextInstance++

	instance := &models.WorkflowInstance{
		ID:           s.nextInstance,
		DefinitionID: definitionID,
		Status:       models.StatusPending,
		Input:        input,
		StartTime:    time.Now().UTC(),
	}

	for _, node := range definition.Graph.Nodes {
		s.nextNode++
		instance.NodeInstances = append(instance.NodeInstances, models.NodeInstance{
			ID:         s.nextNode,
			InstanceID: instance.ID,
			NodeID:     node.ID,
			NodeType:   node.Type,
			NodeName:   node.Name,
			Status:     models.StatusPending,
		})
	}

	s.instances[instance.ID] = instance

	return copyInstance(instance), nil
}

func (s *memoryStore) listInstances() []models.WorkflowInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.WorkflowInstance, 0, len(s.instances))
	for _, instance := range s.instances {
		result = append(result, copyInstance(instance))
	}

	slices.SortFunc(result, func(a, b models.WorkflowInstance) int {
		return int(a.ID - b.ID)
	})

	return result
}

func (s *memoryStore) getInstance(id int64) (models.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[id]
	if !ok {
		return models.WorkflowInstance{}, errInstanceNotFound
	}

	return copyInstance(instance), nil
}

func (s *memoryStore) deleteInstance(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return errInstanceNotFound
	}

	delete(s.instances, id)

	return nil
}

// setInstanceStatus applies the state machine; illegal transitions
// (including anything out of a terminal state) are rejected.
func (s *memoryStore) setInstanceStatus(id int64, status models.ExecStatus, errorMessage string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	instance, ok := s.instances[id]
	if !ok || !instance.Status.CanTransitionTo(status) || instance.Status == status {
		return false
	}

	instance.Status = status
	instance.ErrorMessage = errorMessage

	if status.IsTerminal() {
		now := time.Now().UTC()
		instance.EndTime = &now
	}

	return true
}

func (s *memoryStore) setNodeStatus(instanceID int64, nodeID string, status models.ExecStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	instance, ok := s.instances[instanceID]
	if !ok {
		return false
	}

	for i := range instance.NodeInstances {
		node := &instance.NodeInstances[i]
		if node.NodeID != nodeID || !node.Status.CanTransitionTo(status) || node.Status == status {
			continue
		}

		now := time.Now().UTC()

		if status == models.StatusRunning {
			node.StartTime = &now
		}

		if status.IsTerminal() {
			node.EndTime = &now
		}

		node.Status = status

		return true
	}

	return false
}

func (s *memoryStore) instanceStatus(id int64) (models.ExecStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[id]
	if !ok {
		return "", false
	}

	return instance.Status, true
}

func copyInstance(instance *models.WorkflowInstance) models.WorkflowInstance {
	result := *instance
	result.NodeInstances = slices.Clone(instance.NodeInstances)

	return result
}
