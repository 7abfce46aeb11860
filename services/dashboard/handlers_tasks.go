package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"agentdash/pkg/platform"
	"agentdash/services/audit"
)

// TaskTypes are the script interpreters agents accept.
var TaskTypes = []string{"shell", "python"}

// formError is shown to the operator above the task form.
type formError string

func (e formError) Error() string { return string(e) }

type taskForm struct {
	AgentID string
	Type    string
	Script  string
	Timeout int
}

type tasksPage struct {
	AgentID   string
	Tasks     []platform.Task
	Form      taskForm
	FormError string
	Types     []string
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))
	data := tasksPage{
		AgentID: agentID,
		Form:    taskForm{AgentID: agentID, Type: TaskTypes[0]},
		Types:   TaskTypes,
	}
	s.renderTasks(w, r, http.StatusOK, data)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form", err.Error())
		return
	}

	form, err := parseTaskForm(r)
	data := tasksPage{AgentID: form.AgentID, Form: form, Types: TaskTypes}
	if err != nil {
		data.FormError = err.Error()
		s.renderTasks(w, r, http.StatusBadRequest, data)
		return
	}

	task, err := s.platform.CreateTask(r.Context(), platform.CreateTaskParams{
		AgentID: form.AgentID,
		Type:    form.Type,
		Script:  form.Script,
		Timeout: form.Timeout,
	})
	details := map[string]any{"agent_id": form.AgentID, "type": form.Type}
	if err != nil {
		s.log.Warn().Err(err).Str("agent_id", form.AgentID).Msg("create task")
		s.record(r, audit.ActionTaskCreate, "tasks", err, details)
		data.FormError = "Failed to create task"
		s.renderTasks(w, r, http.StatusBadGateway, data)
		return
	}

	s.record(r, audit.ActionTaskCreate, fmt.Sprintf("tasks/%d", task.ID), nil, details)
	http.Redirect(w, r, fmt.Sprintf("/tasks/%d", task.ID), http.StatusSeeOther)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid task", err.Error())
		return
	}

	task, err := s.platform.GetTask(r.Context(), id)
	switch {
	case errors.Is(err, platform.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Task not found", fmt.Sprintf("Task %d does not exist.", id))
		return
	case err != nil:
		s.log.Warn().Err(err).Uint("id", id).Msg("get task")
		s.renderError(w, r, http.StatusBadGateway, "Failed to load task", "The platform did not answer, try again later.")
		return
	}

	s.renderPage(w, http.StatusOK, "task", newPage(Route{Path: "/tasks"}, fmt.Sprintf("Task %d", task.ID), task))
}

// renderTasks loads the task table for data.AgentID and renders the page.
// A failed load turns a 200 into a 502 with an error banner.
func (s *Server) renderTasks(w http.ResponseWriter, r *http.Request, status int, data tasksPage) {
	page := newPage(Route{Path: "/tasks"}, "Tasks", nil)

	tasks, err := s.platform.ListTasks(r.Context(), data.AgentID)
	if err != nil {
		s.log.Warn().Err(err).Str("agent_id", data.AgentID).Msg("list tasks")
		page.Error = "Failed to load tasks"
		tasks = []platform.Task{}
		if status == http.StatusOK {
			status = http.StatusBadGateway
		}
	}
	data.Tasks = tasks
	page.Data = data
	s.renderPage(w, status, "tasks", page)
}

func parseTaskForm(r *http.Request) (taskForm, error) {
	form := taskForm{
		AgentID: strings.TrimSpace(r.PostFormValue("agent_id")),
		Type:    strings.TrimSpace(r.PostFormValue("type")),
		Script:  r.PostFormValue("script"),
	}

	if raw := strings.TrimSpace(r.PostFormValue("timeout")); raw != "" {
		timeout, err := strconv.Atoi(raw)
		if err != nil || timeout < 0 {
			return form, formError("Timeout must be a non-negative number of seconds")
		}
		form.Timeout = timeout
	}

	switch {
	case form.AgentID == "":
		return form, formError("Agent ID is required")
	case !slices.Contains(TaskTypes, form.Type):
		return form, formError(fmt.Sprintf("Unknown task type %q", form.Type))
	case strings.TrimSpace(form.Script) == "":
		return form, formError("Script is required")
	}
	return form, nil
}
