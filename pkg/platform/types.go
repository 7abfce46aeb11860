package platform

import "time"

const (
	// StatusOnline is the only agent status rendered as healthy.
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Task statuses reported by the backend. The set is owned by the backend and
// the dashboard never transitions a task itself.
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Agent is a remote host registered with the platform.
type Agent struct {
	ID            uint      `json:"id" yaml:"id"`
	AgentID       string    `json:"agent_id" yaml:"agent_id"`
	Hostname      string    `json:"hostname" yaml:"hostname"`
	IP            string    `json:"ip" yaml:"ip"`
	OS            string    `json:"os" yaml:"os"`
	Arch          string    `json:"arch" yaml:"arch"`
	Version       string    `json:"version" yaml:"version"`
	Status        string    `json:"status" yaml:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat" yaml:"last_heartbeat"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// Online reports whether the agent is online. Every status other than
// "online", including an empty one, counts as offline.
func (a Agent) Online() bool {
	return a.Status == StatusOnline
}

// Task is a unit of remote work dispatched to an agent.
type Task struct {
	ID        uint      `json:"id" yaml:"id"`
	AgentID   string    `json:"agent_id" yaml:"agent_id"`
	Type      string    `json:"type" yaml:"type"`
	Script    string    `json:"script" yaml:"script"`
	Status    string    `json:"status" yaml:"status"`
	Result    string    `json:"result" yaml:"result"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Metric is a named numeric observation about an agent.
type Metric struct {
	ID        uint      `json:"id" yaml:"id"`
	AgentID   string    `json:"agent_id" yaml:"agent_id"`
	Name      string    `json:"name" yaml:"name"`
	Value     float64   `json:"value" yaml:"value"`
	Labels    string    `json:"labels" yaml:"labels"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// CreateTaskParams is the body of a task creation request.
type CreateTaskParams struct {
	AgentID string `json:"agent_id"`
	Type    string `json:"type"`
	Script  string `json:"script"`
	Timeout int    `json:"timeout,omitempty"`
}

// MetricQuery filters a metric query. Zero fields are left unconstrained.
type MetricQuery struct {
	AgentID string
	Name    string
	Start   time.Time
	End     time.Time
}

type envelope[T any] struct {
	Data T `json:"data"`
}
