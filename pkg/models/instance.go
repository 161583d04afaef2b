package models

import "time"

// ExecStatus is the lifecycle state of a workflow instance or of a single
// node instance.
type ExecStatus string

const (
	StatusPending    ExecStatus = "PENDING"
	StatusRunning    ExecStatus = "RUNNING"
	StatusSuccess    ExecStatus = "SUCCESS"
	StatusFailed     ExecStatus = "FAILED"
	StatusTerminated ExecStatus = "TERMINATED"
)

// Valid reports whether s is one of the known status values.
func (s ExecStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusTerminated:
		return true
	}

	return false
}

// IsTerminal reports whether no further transition is permitted out of s.
func (s ExecStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTerminated:
		return true
	}

	return false
}

// CanTransitionTo reports whether moving from s to next is a legal state
// machine transition. Re-asserting the current status is always legal so
// duplicated updates stay no-ops. Terminal states accept nothing, and
// nothing moves back to PENDING.
func (s ExecStatus) CanTransitionTo(next ExecStatus) bool {
	if !next.Valid() {
		return false
	}

	if s == next {
		return true
	}

	if s.IsTerminal() {
		return false
	}

	return next != StatusPending
}

// WorkflowInstance is one execution run of a definition, with its own status
// and per-node status records.
type WorkflowInstance struct {
	ID            int64          `json:"id"`
	DefinitionID  int64          `json:"definitionId"`
	Status        ExecStatus     `json:"status"`
	Input         string         `json:"input,omitempty"`
	Output        string         `json:"output,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	NodeInstances []NodeInstance `json:"nodeInstances,omitempty"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       *time.Time     `json:"endTime,omitempty"`
}

// Duration is the instance runtime: start to end when finished, start to now
// while still running.
func (i WorkflowInstance) Duration() time.Duration {
	if i.StartTime.IsZero() {
		return 0
	}

	if i.EndTime != nil {
		return i.EndTime.Sub(i.StartTime)
	}

	return time.Since(i.StartTime)
}

// NodeInstance is the per-node execution record inside a workflow instance.
type NodeInstance struct {
	ID           int64      `json:"id"`
	InstanceID   int64      `json:"instanceId"`
	NodeID       string     `json:"nodeId"`
	NodeType     string     `json:"nodeType"`
	NodeName     string     `json:"nodeName"`
	Status       ExecStatus `json:"status"`
	Input        string     `json:"input,omitempty"`
	Output       string     `json:"output,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
}

// StatusUpdateEvent is a pushed status hint for one instance. It is partial
// and possibly stale: it never carries node-level detail and must not be
// treated as authoritative.
type StatusUpdateEvent struct {
	InstanceID int64  `json:"instanceId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

// ExecStatus returns the event status as a typed value; ok is false when the
// event carries a status outside the known set.
func (e StatusUpdateEvent) ExecStatus() (ExecStatus, bool) {
	s := ExecStatus(e.Status)

	return s, s.Valid()
}
