// Package statusstore reconciles pushed status events with authoritative
// re-fetches into one consistent view of running workflow instances.
//
// Pull is the source of truth: a periodic full re-fetch always overwrites
// the cached record. Push events are low-latency hints without node-level
// detail; they are never written into the cache verbatim, they only trigger
// an immediate re-fetch. Once a cached record is terminal nothing moves it
// again, so late stale events cannot resurrect a finished instance.
package statusstore

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/statuschannel"
)

const (
	// DetailPollInterval is the re-fetch cadence for a single watched instance.
	DetailPollInterval = 2 * time.Second

	// ListPollInterval is the re-fetch cadence for the instance list.
	ListPollInterval = 5 * time.Second

	// hintFetchTimeout bounds the re-fetch a push event triggers.
	hintFetchTimeout = 10 * time.Second
)

// Fetcher pulls authoritative instance snapshots. *api.Client satisfies it.
type Fetcher interface {
	GetInstance(ctx context.Context, id int64) (models.WorkflowInstance, error)
	ListInstances(ctx context.Context) ([]models.WorkflowInstance, error)
}

// Store owns the cached instance records. Views read through Instance and
// Instances; all mutation goes through the merge paths below.
type Store struct {
	fetcher    Fetcher
	logger     *slog.Logger
	listenerID string

	ctx      context.Context
	cancelFn context.CancelFunc

	channelMu sync.Mutex
	channel   statuschannel.Channel

	mu        sync.RWMutex
	instances map[int64]*models.WorkflowInstance
}

func NewStore(fetcher Fetcher, logger *slog.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())

	return &Store{
		fetcher:    fetcher,
		logger:     logger,
		listenerID: "statusstore-" + uuid.NewString(),
		ctx:        ctx,
		cancelFn:   cancel,
		instances:  make(map[int64]*models.WorkflowInstance),
	}
}

// Attach registers the store as a listener on a status channel. Events for
// instances the store does not cache are ignored.
func (s *Store) Attach(channel statuschannel.Channel) {
	s.channelMu.Lock()
	defer s.channelMu.Unlock()

	if s.channel != nil {
		s.channel.Unsubscribe(s.listenerID)
	}

	s.channel = channel
	channel.Subscribe(s.listenerID, s.ApplyEvent)
}

// Close detaches from the channel and cancels any hint-triggered fetches
// still in flight. The cached records stay readable.
func (s *Store) Close() {
	s.cancelFn()

	s.channelMu.Lock()
	defer s.channelMu.Unlock()

	if s.channel != nil {
		s.channel.Unsubscribe(s.listenerID)
		s.channel = nil
	}
}

// Instance returns a copy of one cached record.
func (s *Store) Instance(id int64) (models.WorkflowInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[id]
	if !ok {
		return models.WorkflowInstance{}, false
	}

	return copyInstance(instance), true
}

// Instances returns copies of all cached records sorted by id.
func (s *Store) Instances() []models.WorkflowInstance {
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

// Refresh pulls an authoritative snapshot of one instance and merges it.
func (s *Store) Refresh(ctx context.Context, id int64) (models.WorkflowInstance, error) {
	fresh, err := s.fetcher.GetInstance(ctx, id)
	if err != nil {
		return models.WorkflowInstance{}, err
	}

	return s.mergePull(fresh), nil
}

// RefreshAll pulls the instance list and merges every record.
func (s *Store) RefreshAll(ctx context.Context) ([]models.WorkflowInstance, error) {
	fresh, err := s.fetcher.ListInstances(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]models.WorkflowInstance, 0, len(fresh))
	for _, instance := range fresh {
		merged = append(merged, s.mergePull(instance))
	}

	return merged, nil
}

// Watch polls one instance on the given interval until its cached status is
// terminal, then stops for good. Cancelling ctx (leaving the view) stops it
// deterministically; no further fetch fires afterwards.
func (s *Store) Watch(ctx context.Context, id int64, interval time.Duration) error {
	if interval <= 0 {
		interval = DetailPollInterval
	}

	instance, err := s.Refresh(ctx, id)
	if err != nil {
		return err
	}

	if instance.Status.IsTerminal() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return nil
		case <-ticker.C:
			instance, err := s.Refresh(ctx, id)
			if err != nil {
				s.logger.Warn("Instance refresh failed, keeping cached state", "instance_id", id, "error", err)

				continue
			}

			if instance.Status.IsTerminal() {
				return nil
			}
		}
	}
}

// WatchAll polls the instance list on the given interval until ctx is
// cancelled.
func (s *Store) WatchAll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = ListPollInterval
	}

	if _, err := s.RefreshAll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RefreshAll(ctx); err != nil {
				s.logger.Warn("Instance list refresh failed, keeping cached state", "error", err)
			}
		}
	}
}

// ApplyEvent merges a pushed status hint. Applying the same event twice
// leaves the cache exactly as applying it once: a hint that matches the
// cached status is a no-op, anything else only schedules a re-fetch.
func (s *Store) ApplyEvent(event models.StatusUpdateEvent) {
	s.mu.RLock()
	cached, tracked := s.instances[event.InstanceID]

	var (
		terminal  bool
		unchanged bool
	)

	if tracked {
		terminal = cached.Status.IsTerminal()

		if status, valid := event.ExecStatus(); valid {
			unchanged = status == cached.Status
		}
	}
	s.mu.RUnlock()

	if !tracked {
		return
	}

	if terminal {
		s.logger.Debug("Ignoring stale event for terminal instance",
			"instance_id", event.InstanceID, "status", event.Status)

		return
	}

	if unchanged {
		return
	}

	// The event carries no node-level detail, so fetch the real snapshot.
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, hintFetchTimeout)
		defer cancel()

		if _, err := s.Refresh(ctx, event.InstanceID); err != nil && ctx.Err() == nil {
			s.logger.Warn("Event-triggered refresh failed", "instance_id", event.InstanceID, "error", err)
		}
	}()
}

// mergePull applies an authoritative snapshot. Pull always wins, with two
// guards: a terminal cached instance is never moved, and a terminal cached
// node record is never moved by a snapshot claiming otherwise. A list
// snapshot without node detail keeps the cached node records.
func (s *Store) mergePull(fresh models.WorkflowInstance) models.WorkflowInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.instances[fresh.ID]
	if !ok {
		stored := copyInstance(&fresh)
		s.instances[fresh.ID] = &stored

		return copyInstance(&stored)
	}

	if cached.Status.IsTerminal() {
		return copyInstance(cached)
	}

	merged := copyInstance(&fresh)

	if len(merged.NodeInstances) == 0 && len(cached.NodeInstances) > 0 {
		merged.NodeInstances = slices.Clone(cached.NodeInstances)
	} else {
		for i, node := range merged.NodeInstances {
			if prev := findNode(cached.NodeInstances, node.NodeID); prev != nil &&
				prev.Status.IsTerminal() && prev.Status != node.Status {
				merged.NodeInstances[i] = *prev
			}
		}
	}

	s.instances[fresh.ID] = &merged

	return copyInstance(&merged)
}

func findNode(nodes []models.NodeInstance, nodeID string) *models.NodeInstance {
	for i := range nodes {
		if nodes[i].NodeID == nodeID {
			return &nodes[i]
		}
	}

	return nil
}

func copyInstance(instance *models.WorkflowInstance) models.WorkflowInstance {
	result := *instance
	result.NodeInstances = slices.Clone(instance.NodeInstances)

	return result
}
