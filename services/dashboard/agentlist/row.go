package agentlist

import (
	"time"

	"agentdash/pkg/platform"
)

// HeartbeatLayout is the display format for heartbeat timestamps.
const HeartbeatLayout = "2006-01-02 15:04:05"

// Row is the render model of one agent in the table.
type Row struct {
	Key           uint
	AgentID       string
	Hostname      string
	IP            string
	OS            string
	Arch          string
	Version       string
	Status        string
	Online        bool
	StatusLabel   string
	LastHeartbeat string
}

// NewRow converts an agent into its table row. The heartbeat is rendered in
// loc; a zero heartbeat renders as "-".
func NewRow(a platform.Agent, loc *time.Location) Row {
	online := a.Online()
	label := "Offline"
	if online {
		label = "Online"
	}
	return Row{
		Key:           a.ID,
		AgentID:       a.AgentID,
		Hostname:      a.Hostname,
		IP:            a.IP,
		OS:            a.OS,
		Arch:          a.Arch,
		Version:       a.Version,
		Status:        a.Status,
		Online:        online,
		StatusLabel:   label,
		LastHeartbeat: FormatHeartbeat(a.LastHeartbeat, loc),
	}
}

// FormatHeartbeat renders t with HeartbeatLayout in loc.
func FormatHeartbeat(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(HeartbeatLayout)
}

func buildRows(agents []platform.Agent, loc *time.Location) []Row {
	rows := make([]Row, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, NewRow(a, loc))
	}
	return rows
}
