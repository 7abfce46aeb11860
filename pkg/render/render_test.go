package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type menuItem struct {
	Path, Label, Icon string
	Selected          bool
}

type shell struct {
	Title string
	Items []menuItem
}

type page struct {
	Title string
	Shell shell
	Error string
	Data  any
}

type row struct {
	Key           uint
	AgentID       string
	Hostname      string
	IP            string
	OS            string
	StatusLabel   string
	LastHeartbeat string
	Online        bool
}

func TestRenderPage_LayoutAndMenu(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	out, err := e.RenderPage("error", page{
		Title: "Not found",
		Shell: shell{Title: "Agent Console", Items: []menuItem{
			{Path: "/agents", Label: "Agents", Icon: "cloud-server", Selected: true},
			{Path: "/tasks", Label: "Tasks", Icon: "file-text"},
		}},
		Error: "backend <down>",
		Data:  "agent 9 does not exist",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Not found | Agent Console</title>")
	assert.Contains(t, out, `<li class="menu-item selected">`)
	assert.Equal(t, 1, strings.Count(out, "selected"))
	assert.Contains(t, out, "backend &lt;down&gt;")
	assert.Contains(t, out, "agent 9 does not exist")
}

func TestRenderPage_Unknown(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	_, err = e.RenderPage("nope", nil)
	require.Error(t, err)
}

func TestRender_AgentRows(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	out, err := e.Render("agent_rows", map[string]any{
		"Loading": false,
		"Rows": []row{
			{Key: 1, AgentID: "a1", StatusLabel: "Online", Online: true},
			{Key: 2, AgentID: "a2", StatusLabel: "Offline"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "<tr data-key="))
	assert.Contains(t, out, `<tr data-key="1">`)
	assert.Contains(t, out, `<tr data-key="2">`)
	assert.Contains(t, out, `<span class="tag tag-green">Online</span>`)
	assert.Contains(t, out, `<span class="tag tag-red">Offline</span>`)
}

func TestRender_AgentRowsEmpty(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	loading, err := e.Render("agent_rows", map[string]any{"Loading": true, "Rows": []row{}})
	require.NoError(t, err)
	assert.Contains(t, loading, "Loading...")

	empty, err := e.Render("agent_rows", map[string]any{"Loading": false, "Rows": []row{}})
	require.NoError(t, err)
	assert.Contains(t, empty, "No agents")
}

func TestDatetimeUsesLocation(t *testing.T) {
	e, err := New(WithLocation(time.FixedZone("UTC+2", 2*60*60)))
	require.NoError(t, err)

	type task struct {
		ID        uint
		AgentID   string
		Type      string
		Status    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	out, err := e.Render("task_rows", []task{
		{ID: 4, Status: "failed", CreatedAt: time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-02 01:30:00")
	assert.Contains(t, out, "tag-red")
	assert.Contains(t, out, "<td>-</td>")
}
