package stubapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowdash/flowdash/pkg/models"
)

// DefaultStepDelay is how long each simulated node "runs".
const DefaultStepDelay = 2 * time.Second

// Simulator drives created instances through the execution state machine:
// PENDING, RUNNING, node by node, then SUCCESS. A terminate request observed
// between steps ends the run as TERMINATED. Every instance-level change is
// broadcast as a status event, mirroring how the real engine relays its
// status topic.
type Simulator struct {
	store       *memoryStore
	broadcaster Broadcaster
	logger      *slog.Logger
	stepDelay   time.Duration
}

func NewSimulator(store *memoryStore, broadcaster Broadcaster, logger *slog.Logger, stepDelay time.Duration) *Simulator {
	if stepDelay <= 0 {
		stepDelay = DefaultStepDelay
	}

	return &Simulator{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		stepDelay:   stepDelay,
	}
}

// Run advances one instance to completion. It is meant to be launched as a
// goroutine right after the instance is created.
func (s *Simulator) Run(ctx context.Context, instance models.WorkflowInstance) {
	logger := s.logger.With("instance_id", instance.ID)

	if !s.advance(instance.ID, models.StatusRunning, "") {
		return
	}

	logger.Info("Simulated execution started", "nodes", len(instance.NodeInstances))

	for _, node := range instance.NodeInstances {
		if s.terminated(instance.ID) {
			logger.Info("Simulated execution terminated")

			return
		}

		s.store.setNodeStatus(instance.ID, node.NodeID, models.StatusRunning)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.stepDelay):
		}

		if s.terminated(instance.ID) {
			logger.Info("Simulated execution terminated")

			return
		}

		s.store.setNodeStatus(instance.ID, node.NodeID, models.StatusSuccess)
	}

	if s.advance(instance.ID, models.StatusSuccess, "") {
		logger.Info("Simulated execution finished")
	}
}

// Terminate marks the instance and its unfinished nodes TERMINATED and
// broadcasts the change. Returns false when the instance is unknown or
// already terminal.
func (s *Simulator) Terminate(id int64) bool {
	if !s.advance(id, models.StatusTerminated, "terminated by user") {
		return false
	}

	instance, err := s.store.getInstance(id)
	if err != nil {
		return true
	}

	for _, node := range instance.NodeInstances {
		if !node.Status.IsTerminal() {
			s.store.setNodeStatus(id, node.NodeID, models.StatusTerminated)
		}
	}

	return true
}

func (s *Simulator) advance(id int64, status models.ExecStatus, message string) bool {
	if !s.store.setInstanceStatus(id, status, message) {
		return false
	}

	s.broadcaster.Broadcast(models.StatusUpdateEvent{
		InstanceID: id,
		Status:     string(status),
		Message:    message,
		Timestamp:  time.Now().UnixMilli(),
	})

	return true
}

func (s *Simulator) terminated(id int64) bool {
	status, ok := s.store.instanceStatus(id)

	return ok && status == models.StatusTerminated
}
