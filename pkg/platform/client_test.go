package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		want    string
		wantErr bool
	}{
		{name: "plain origin", origin: "http://platform:8080", want: "http://platform:8080/api/v1"},
		{name: "trailing slash", origin: "https://platform/", want: "https://platform/api/v1"},
		{name: "empty", origin: "  ", wantErr: true},
		{name: "no scheme", origin: "platform:8080", wantErr: true},
		{name: "ftp", origin: "ftp://platform", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.origin)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
			assert.Equal(t, DefaultTimeout, c.Timeout())
		})
	}
}

func TestWithHTTPClient_LeavesCallerClientUntouched(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, WithHTTPClient(hc), WithTimeout(2*time.Second))

	assert.Equal(t, time.Minute, hc.Timeout)
	assert.Equal(t, 2*time.Second, c.Timeout())

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestListAgents_PreservesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/agents", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"id":9,"agent_id":"z","status":"offline","last_heartbeat":"2024-05-01T10:00:00Z"},
			{"id":1,"agent_id":"a","status":"online","last_heartbeat":"2024-05-01T10:00:05.123Z"}
		]}`))
	})

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, uint(9), agents[0].ID)
	assert.Equal(t, uint(1), agents[1].ID)
	assert.False(t, agents[0].Online())
	assert.True(t, agents[1].Online())
	assert.Equal(t, 123*time.Millisecond, time.Duration(agents[1].LastHeartbeat.Nanosecond()))
}

func TestListAgents_EmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, agents)
	assert.Empty(t, agents)
}

func TestGetAgent_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/agents/42", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"agent not found"}`))
	})

	_, err := c.GetAgent(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "agent not found", apiErr.Message)
}

func TestDeleteAgent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "ok with body", status: http.StatusOK},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/v1/agents/7", r.URL.Path)
				w.WriteHeader(tt.status)
				if tt.status == http.StatusOK {
					_, _ = w.Write([]byte(`{"code":0}`))
				}
			})

			err := c.DeleteAgent(context.Background(), 7)
			if tt.wantErr {
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCreateTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a1", body["agent_id"])
		assert.Equal(t, "shell", body["type"])
		assert.Equal(t, "uptime", body["script"])
		_, hasTimeout := body["timeout"]
		assert.False(t, hasTimeout, "zero timeout must be omitted")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":3,"agent_id":"a1","type":"shell","script":"uptime","status":"pending"}}`))
	})

	task, err := c.CreateTask(context.Background(), CreateTaskParams{AgentID: "a1", Type: "shell", Script: "uptime"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), task.ID)
	assert.Equal(t, TaskPending, task.Status)
}

func TestListTasks_AgentFilter(t *testing.T) {
	tests := []struct {
		name    string
		agentID string
		want    string
	}{
		{name: "unfiltered", agentID: "", want: ""},
		{name: "filtered", agentID: "a 1", want: "agent_id=a+1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.want, r.URL.RawQuery)
				_, _ = w.Write([]byte(`{"data":[]}`))
			})

			tasks, err := c.ListTasks(context.Background(), tt.agentID)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestQueryMetrics_OmitsZeroFilters(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "cpu_usage", q.Get("name"))
		assert.Equal(t, "2024-05-01T10:00:00Z", q.Get("start_time"))
		assert.False(t, q.Has("agent_id"))
		assert.False(t, q.Has("end_time"))
		_, _ = w.Write([]byte(`{"data":[{"id":1,"agent_id":"a1","name":"cpu_usage","value":12.5,"labels":"{\"core\":\"0\"}","timestamp":"2024-05-01T10:00:30Z"}]}`))
	})

	metrics, err := c.QueryMetrics(context.Background(), MetricQuery{Name: "cpu_usage", Start: start})
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, 12.5, metrics[0].Value, 1e-9)
}

func TestTimeoutSurfacesAsTransportError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	start := time.Now()
	_, err := c.ListAgents(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "timeouts are transport errors")
}

func TestDecodeErrorIsWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.GetTask(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get task: decode response")
}
