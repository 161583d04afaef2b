package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidType indicates an unregistered node type.
	ErrInvalidType = errors.New("invalid node type")

	// ErrUnknownNode indicates a node id absent from the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidConnection indicates an edge the endpoint capabilities forbid,
	// a self-loop, or a duplicate parallel edge.
	ErrInvalidConnection = errors.New("invalid connection")
)

// ConnectionError wraps a failed connect with both endpoints for context.
type ConnectionError struct {
	Source string
	Target string
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect %s -> %s: %s", e.Source, e.Target, e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newConnectionError(source, target, reason string, err error) *ConnectionError {
	return &ConnectionError{
		Source: source,
		Target: target,
		Reason: reason,
		Err:    err,
	}
}

// IsInvalidType checks if an error indicates an unregistered node type.
func IsInvalidType(err error) bool {
	return errors.Is(err, ErrInvalidType)
}

// IsUnknownNode checks if an error indicates a missing node.
func IsUnknownNode(err error) bool {
	return errors.Is(err, ErrUnknownNode)
}

// IsInvalidConnection checks if an error indicates a rejected edge.
func IsInvalidConnection(err error) bool {
	return errors.Is(err, ErrInvalidConnection)
}
