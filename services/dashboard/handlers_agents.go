package dashboard

import (
	"errors"
	"fmt"
	"net/http"

	"agentdash/pkg/platform"
	"agentdash/services/audit"
	"agentdash/services/dashboard/agentlist"
)

var (
	errUnknownView  = errors.New("unknown view")
	errDeleteFailed = errors.New(agentlist.MsgDeleteFailed)
)

type agentPage struct {
	Agent      platform.Agent
	Tasks      []platform.Task
	TasksError string
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	data := agentlist.Snapshot{Phase: agentlist.PhaseLoading, Loading: true, Rows: []agentlist.Row{}}
	s.renderPage(w, http.StatusOK, "agents", newPage(Route{Path: "/agents"}, "Agents", data))
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid agent", err.Error())
		return
	}

	agent, err := s.platform.GetAgent(r.Context(), id)
	switch {
	case errors.Is(err, platform.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Agent not found", fmt.Sprintf("Agent %d does not exist.", id))
		return
	case err != nil:
		s.log.Warn().Err(err).Uint("id", id).Msg("get agent")
		s.renderError(w, r, http.StatusBadGateway, "Failed to load agent", "The platform did not answer, try again later.")
		return
	}

	data := agentPage{Agent: agent, Tasks: []platform.Task{}}
	tasks, err := s.platform.ListTasks(r.Context(), agent.AgentID)
	if err != nil {
		s.log.Warn().Err(err).Str("agent_id", agent.AgentID).Msg("list agent tasks")
		data.TasksError = "Failed to load tasks"
	} else {
		data.Tasks = tasks
	}

	title := agent.Hostname
	if title == "" {
		title = agent.AgentID
	}
	s.renderPage(w, http.StatusOK, "agent", newPage(Route{Path: "/agents"}, title, data))
}

func (s *Server) handleAgentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	view, ok := s.views.get(r.URL.Query().Get("view"))
	if !ok {
		respondError(w, http.StatusNotFound, errUnknownView)
		return
	}

	err = view.Delete(r.Context(), id)
	switch {
	case errors.Is(err, agentlist.ErrUnknownAgent):
		respondError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, agentlist.ErrUnmounted):
		respondError(w, http.StatusNotFound, errUnknownView)
		return
	}

	resource := fmt.Sprintf("agents/%d", id)
	s.record(r, audit.ActionAgentDelete, resource, err, nil)
	if err != nil {
		respondError(w, http.StatusBadGateway, errDeleteFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAgentsRefresh(w http.ResponseWriter, r *http.Request) {
	view, ok := s.views.get(r.URL.Query().Get("view"))
	if !ok {
		respondError(w, http.StatusNotFound, errUnknownView)
		return
	}
	view.Reload()
	w.WriteHeader(http.StatusAccepted)
}
