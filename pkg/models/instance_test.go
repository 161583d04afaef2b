package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecStatus_Valid(t *testing.T) {
	for _, status := range []ExecStatus{StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusTerminated} {
		assert.True(t, status.Valid(), status)
	}

	assert.False(t, ExecStatus("").Valid())
	assert.False(t, ExecStatus("DONE").Valid())
	assert.False(t, ExecStatus("running").Valid())
}

func TestExecStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusTerminated.IsTerminal())
}

func TestExecStatus_CanTransitionTo(t *testing.T) {
	// The happy path.
	assert.True(t, StatusPending.CanTransitionTo(StatusRunning))
	assert.True(t, StatusRunning.CanTransitionTo(StatusSuccess))
	assert.True(t, StatusRunning.CanTransitionTo(StatusFailed))
	assert.True(t, StatusRunning.CanTransitionTo(StatusTerminated))

	// Re-asserting the current status is legal so duplicate updates stay no-ops.
	assert.True(t, StatusRunning.CanTransitionTo(StatusRunning))
	assert.True(t, StatusSuccess.CanTransitionTo(StatusSuccess))

	// Terminal states accept nothing else.
	for _, terminal := range []ExecStatus{StatusSuccess, StatusFailed, StatusTerminated} {
		assert.False(t, terminal.CanTransitionTo(StatusRunning), terminal)
		assert.False(t, terminal.CanTransitionTo(StatusPending), terminal)
	}

	// Nothing moves back to PENDING.
	assert.False(t, StatusRunning.CanTransitionTo(StatusPending))

	// Unknown statuses are never a legal destination.
	assert.False(t, StatusRunning.CanTransitionTo(ExecStatus("DONE")))
}

func TestStatusUpdateEvent_ExecStatus(t *testing.T) {
	event := StatusUpdateEvent{InstanceID: 7, Status: "RUNNING"}

	status, ok := event.ExecStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusRunning, status)

	event.Status = "garbage"
	_, ok = event.ExecStatus()
	assert.False(t, ok)
}

func TestStatusUpdateEvent_JSON(t *testing.T) {
	payload := []byte(`{"instanceId":42,"status":"SUCCESS","message":"done","timestamp":1724800000000}`)

	var event StatusUpdateEvent
	require.NoError(t, json.Unmarshal(payload, &event))

	assert.Equal(t, int64(42), event.InstanceID)
	assert.Equal(t, "SUCCESS", event.Status)
	assert.Equal(t, "done", event.Message)
	assert.Equal(t, int64(1724800000000), event.Timestamp)
}
