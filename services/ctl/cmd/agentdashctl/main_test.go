package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"agentdash/services/audit"
	"agentdash/services/exporter"
)

type backend struct {
	deleted []string
	created map[string]any
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/agents", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":1,"agent_id":"a1","hostname":"web-1","ip":"10.0.0.1","os":"linux","status":"online","last_heartbeat":"2024-05-01T10:00:00Z"},
			{"id":2,"agent_id":"a2","hostname":"db-2","ip":"10.0.0.2","os":"linux","status":"offline","last_heartbeat":"0001-01-01T00:00:00Z"}
		]}`)
	})
	mux.HandleFunc("GET /api/v1/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"agent not found"}`)
			return
		}
		fmt.Fprint(w, `{"data":{"id":1,"agent_id":"a1","hostname":"web-1","status":"online"}}`)
	})
	mux.HandleFunc("DELETE /api/v1/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.deleted = append(b.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b.created))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":7,"agent_id":"a1","type":"shell","status":"pending"}}`)
	})
	mux.HandleFunc("GET /api/v1/metrics", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":1,"agent_id":"a1","name":"cpu_usage","value":42.5,"timestamp":"2024-05-01T09:00:00Z"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAgentsList_Table(t *testing.T) {
	_, srv := newBackend(t)

	out, err := run(t, "--api", srv.URL, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "AGENT ID")
	assert.Contains(t, out, "web-1")
	assert.Contains(t, out, "Online")
	assert.Contains(t, out, "Offline")
	assert.Contains(t, out, "-\n")
}

func TestAgentsList_JSONAndYAML(t *testing.T) {
	_, srv := newBackend(t)

	out, err := run(t, "--api", srv.URL, "-o", "json", "agents", "list")
	require.NoError(t, err)
	var agents []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &agents))
	require.Len(t, agents, 2)
	assert.Equal(t, "a1", agents[0]["agent_id"])

	out, err = run(t, "--api", srv.URL, "-o", "yaml", "agents", "get", "1")
	require.NoError(t, err)
	var agent map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &agent))
	assert.Equal(t, "web-1", agent["hostname"])
}

func TestAgentsGet_NotFound(t *testing.T) {
	_, srv := newBackend(t)

	_, err := run(t, "--api", srv.URL, "agents", "get", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent not found")

	_, err = run(t, "--api", srv.URL, "agents", "get", "nine")
	require.Error(t, err)
}

func TestAgentsDelete(t *testing.T) {
	b, srv := newBackend(t)

	out, err := run(t, "--api", srv.URL, "agents", "delete", "2")
	require.NoError(t, err)
	assert.Equal(t, "deleted agent 2\n", out)
	assert.Equal(t, []string{"2"}, b.deleted)
}

func TestTasksCreate(t *testing.T) {
	b, srv := newBackend(t)

	script := filepath.Join(t.TempDir(), "check.sh")
	require.NoError(t, os.WriteFile(script, []byte("uptime\n"), 0o644))

	out, err := run(t, "--api", srv.URL, "tasks", "create", "--agent-id", "a1", "--script-file", script, "--timeout-seconds", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Equal(t, map[string]any{"agent_id": "a1", "type": "shell", "script": "uptime\n", "timeout": float64(30)}, b.created)

	_, err = run(t, "--api", srv.URL, "tasks", "create", "--agent-id", "a1")
	require.Error(t, err)
}

func TestMetricsExport_LocalFile(t *testing.T) {
	_, srv := newBackend(t)
	path := filepath.Join(t.TempDir(), "cpu.jsonl.zst")

	out, err := run(t, "--api", srv.URL, "-o", "json", "metrics", "export", "--agent-id", "a1", "--file", path)
	require.NoError(t, err)

	var manifest map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.EqualValues(t, 1, manifest["count"])

	m, err := exporter.ReadManifest(path)
	require.NoError(t, err)
	require.NoError(t, exporter.VerifyFile(path, m))
}

func TestUnknownOutputFormat(t *testing.T) {
	_, srv := newBackend(t)
	_, err := run(t, "--api", srv.URL, "-o", "xml", "agents", "list")
	require.Error(t, err)
}

func TestAuditList(t *testing.T) {
	dsn := fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := audit.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Record(context.Background(), audit.Entry{Action: audit.ActionAgentDelete, Resource: "agents/3", Status: audit.StatusSuccess}))
	require.NoError(t, store.Record(context.Background(), audit.Entry{Action: audit.ActionTaskCreate, Resource: "tasks/9", Status: audit.StatusFailure}))

	out, err := run(t, "audit", "list", "--dsn", dsn, "--action", audit.ActionAgentDelete)
	require.NoError(t, err)
	assert.Contains(t, out, "agents/3")
	assert.NotContains(t, out, "tasks/9")
}
