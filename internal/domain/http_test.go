package domain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/action"
)

func fastClient(baseURL string) *HTTPClient {
	c := NewHTTPClient(baseURL)
	c.baseDelay = time.Millisecond
	c.maxDelay = 5 * time.Millisecond
	return c
}

func TestExecutePostsActionAndDecodesResult(t *testing.T) {
	var got executeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/actions/execute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Result{Href: "/tasks/42", Message: "Task created."})
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	res, err := c.Execute(context.Background(), action.TypeCreateTask,
		[]action.Field{{Label: "Task title", Value: "Ship it"}})
	require.NoError(t, err)

	assert.Equal(t, "/tasks/42", res.Href)
	assert.Equal(t, "create_task", got.ActionType)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "Ship it", got.Fields[0].Value)
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporarily down", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Result{Message: "ok"})
	}))
	defer srv.Close()

	res, err := fastClient(srv.URL).Execute(context.Background(), action.TypeCreateTask, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such action", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Execute(context.Background(), action.TypeCreateTask, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such action")
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteHonoursContextDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL) // default backoff, long enough to cancel into
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Execute(ctx, action.TypeCreateTask, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryDomainSequencesIDsPerEntity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r1, err := m.Execute(ctx, action.TypeCreateTask, []action.Field{{Label: "Task title", Value: "A"}})
	require.NoError(t, err)
	r2, err := m.Execute(ctx, action.TypeCreateProgramme, []action.Field{{Label: "Programme name", Value: "P"}})
	require.NoError(t, err)
	r3, err := m.Execute(ctx, action.TypeCreateTask, []action.Field{{Label: "Task title", Value: "B"}})
	require.NoError(t, err)

	assert.Equal(t, "/tasks/1", r1.Href)
	assert.Equal(t, "/programmes/1", r2.Href)
	assert.Equal(t, "/tasks/2", r3.Href)
}
