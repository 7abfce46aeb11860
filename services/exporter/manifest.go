package exporter

import (
	"time"

	"agentdash/pkg/platform"
)

// ManifestVersion is written into every manifest.
const ManifestVersion = "1"

// Manifest describes one export archive.
type Manifest struct {
	Version     string        `yaml:"version" json:"version"`
	CreatedAt   time.Time     `yaml:"created_at" json:"created_at"`
	Query       ManifestQuery `yaml:"query" json:"query"`
	Count       int           `yaml:"count" json:"count"`
	Size        int64         `yaml:"size" json:"size"`
	SHA256      string        `yaml:"sha256" json:"sha256"`
	Compression string        `yaml:"compression" json:"compression"`
	Encrypted   bool          `yaml:"encrypted" json:"encrypted"`
	Recipients  []string      `yaml:"recipients,omitempty" json:"recipients,omitempty"`
	Object      string        `yaml:"object,omitempty" json:"object,omitempty"`
}

// ManifestQuery records the filters the export was taken with.
type ManifestQuery struct {
	AgentID string     `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
	Name    string     `yaml:"name,omitempty" json:"name,omitempty"`
	Start   *time.Time `yaml:"start,omitempty" json:"start,omitempty"`
	End     *time.Time `yaml:"end,omitempty" json:"end,omitempty"`
}

func newManifestQuery(q platform.MetricQuery) ManifestQuery {
	mq := ManifestQuery{AgentID: q.AgentID, Name: q.Name}
	if !q.Start.IsZero() {
		start := q.Start.UTC()
		mq.Start = &start
	}
	if !q.End.IsZero() {
		end := q.End.UTC()
		mq.End = &end
	}
	return mq
}
