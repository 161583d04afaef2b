package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdash/flowdash/pkg/models"
)

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "admin", payload["username"])
		assert.Equal(t, "secret", payload["password"])

		_ = json.NewEncoder(w).Encode(map[string]string{"token": "token-123"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	token, err := client.Login(t.Context(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.Equal(t, "token-123", client.Token(), "login stores the token for subsequent requests")
}

func TestClient_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("token-123")

	_, err := client.ListDefinitions(t.Context())
	require.NoError(t, err)
}

func TestClient_Definitions_CRUD(t *testing.T) {
	definition := models.WorkflowDefinition{ID: 1, Name: "ETL"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/workflows/definitions":
			_ = json.NewEncoder(w).Encode([]models.WorkflowDefinition{definition})
		case r.Method == http.MethodGet && r.URL.Path == "/workflows/definitions/1":
			_ = json.NewEncoder(w).Encode(definition)
		case r.Method == http.MethodPost && r.URL.Path == "/workflows/definitions":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(definition)
		case r.Method == http.MethodPut && r.URL.Path == "/workflows/definitions/1":
			_ = json.NewEncoder(w).Encode(definition)
		case r.Method == http.MethodDelete && r.URL.Path == "/workflows/definitions/1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := t.Context()

	definitions, err := client.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, definitions, 1)
	assert.Equal(t, "ETL", definitions[0].Name)

	got, err := client.GetDefinition(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	created, err := client.CreateDefinition(ctx, models.WorkflowDefinition{Name: "ETL"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	_, err = client.UpdateDefinition(ctx, 1, definition)
	require.NoError(t, err)

	require.NoError(t, client.DeleteDefinition(ctx, 1))
}

func TestClient_CreateInstance_QueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/workflows/instances", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("workflowDefinitionId"))
		assert.Equal(t, `{"k":"v"}`, r.URL.Query().Get("input"))

		_ = json.NewEncoder(w).Encode(models.WorkflowInstance{ID: 42, DefinitionID: 7, Status: models.StatusPending})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	instance, err := client.CreateInstance(t.Context(), 7, `{"k":"v"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), instance.ID)
	assert.Equal(t, models.StatusPending, instance.Status)
}

func TestClient_CreateInstance_OmitsEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("input"))
		_ = json.NewEncoder(w).Encode(models.WorkflowInstance{ID: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.CreateInstance(t.Context(), 7, "")
	require.NoError(t, err)
}

func TestClient_TerminateInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/workflows/instances/42/terminate", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.TerminateInstance(t.Context(), 42))
}

func TestClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.ListInstances(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsRequestError(err))
}

func TestClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.GetInstance(t.Context(), 99)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestErrorMessage_Preference(t *testing.T) {
	// RFC 7807 detail wins.
	assert.Equal(t, "definition not found",
		errorMessage([]byte(`{"title":"Not Found","detail":"definition not found","status":404}`)))

	// Title when there is no detail.
	assert.Equal(t, "Not Found",
		errorMessage([]byte(`{"title":"Not Found","status":404}`)))

	// Bare message field second.
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`)))

	// Generic fallback for anything else.
	assert.Equal(t, genericFailure, errorMessage(nil))
	assert.Equal(t, genericFailure, errorMessage([]byte(`<html>oops</html>`)))
	assert.Equal(t, genericFailure, errorMessage([]byte(`{}`)))
}

func TestRequestError_Message(t *testing.T) {
	err := &RequestError{Op: "GET /workflows/instances", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "GET /workflows/instances failed with status 500: boom", err.Error())

	wireErr := &RequestError{Op: "GET /workflows/instances", Message: "connection refused"}
	assert.Equal(t, "GET /workflows/instances failed: connection refused", wireErr.Error())
}
