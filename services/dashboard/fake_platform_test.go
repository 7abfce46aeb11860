package dashboard

import (
	"context"
	"sync"

	"agentdash/pkg/platform"
)

type fakePlatform struct {
	mu sync.Mutex

	agents  []platform.Agent
	tasks   []platform.Task
	metrics []platform.Metric

	listErr    error
	getErr     error
	deleteErr  error
	createErr  error
	tasksErr   error
	metricsErr error

	deleted     []uint
	created     []platform.CreateTaskParams
	taskFilters []string
	queries     []platform.MetricQuery
}

func (f *fakePlatform) ListAgents(context.Context) ([]platform.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]platform.Agent(nil), f.agents...), nil
}

func (f *fakePlatform) GetAgent(_ context.Context, id uint) (platform.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return platform.Agent{}, f.getErr
	}
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return platform.Agent{}, &platform.APIError{Op: "get agent", StatusCode: 404, Message: "agent not found"}
}

func (f *fakePlatform) DeleteAgent(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.agents[:0]
	for _, a := range f.agents {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.agents = kept
	return nil
}

func (f *fakePlatform) CreateTask(_ context.Context, params platform.CreateTaskParams) (platform.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	if f.createErr != nil {
		return platform.Task{}, f.createErr
	}
	task := platform.Task{
		ID:      uint(len(f.tasks) + 100),
		AgentID: params.AgentID,
		Type:    params.Type,
		Script:  params.Script,
		Status:  platform.TaskPending,
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakePlatform) ListTasks(_ context.Context, agentID string) ([]platform.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskFilters = append(f.taskFilters, agentID)
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	var out []platform.Task
	for _, t := range f.tasks {
		if agentID == "" || t.AgentID == agentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakePlatform) GetTask(_ context.Context, id uint) (platform.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return platform.Task{}, &platform.APIError{Op: "get task", StatusCode: 404}
}

func (f *fakePlatform) QueryMetrics(_ context.Context, q platform.MetricQuery) ([]platform.Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return append([]platform.Metric(nil), f.metrics...), nil
}

func (f *fakePlatform) deletedIDs() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.deleted...)
}
