package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/moogar0880/problems"
)

// ErrUnauthorized indicates a 401 response. The session policy (token
// invalidation, navigation to login) belongs to the caller, not this client.
var ErrUnauthorized = errors.New("unauthorized")

// RequestError is returned for any REST call the backend rejected or that
// failed on the wire. Message carries the most readable explanation
// available: the response body's problem detail or message field when
// present, a generic failure string otherwise.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.StatusCode == 401
	}

	return errors.Is(e.Err, target)
}

// IsRequestError checks if an error is a failed REST call.
func IsRequestError(err error) bool {
	var target *RequestError

	return errors.As(err, &target)
}

// IsNotFound checks if an error is a 404 response.
func IsNotFound(err error) bool {
	var target *RequestError

	return errors.As(err, &target) && target.StatusCode == 404
}

const genericFailure = "request failed"

// errorMessage extracts a readable message from an error response body:
// RFC 7807 detail/title first, a bare message field second, a generic
// failure string last.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return genericFailure
	}

	var problem problems.Problem
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Detail != "" {
			return problem.Detail
		}

		if problem.Title != "" {
			return problem.Title
		}
	}

	var payload struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	return genericFailure
}
