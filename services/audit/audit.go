// Package audit records operator actions taken through the dashboard.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actions recorded by the dashboard.
const (
	ActionAgentDelete = "agent.delete"
	ActionTaskCreate  = "task.create"
)

// Outcome of a recorded action.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one audited operator action.
type Entry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id" yaml:"id"`
	Action    string         `gorm:"type:text;not null;index" json:"action" yaml:"action"`
	Resource  string         `gorm:"type:text" json:"resource" yaml:"resource"`
	Status    string         `gorm:"type:text;not null" json:"status" yaml:"status"`
	IP        string         `gorm:"type:text" json:"ip,omitempty" yaml:"ip,omitempty"`
	UserAgent string         `gorm:"type:text" json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	RequestID string         `gorm:"type:text" json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty" yaml:"-"`
	CreatedAt time.Time      `gorm:"index;autoCreateTime" json:"created_at" yaml:"created_at"`
}

func (Entry) TableName() string { return "audit_logs" }

// BeforeCreate assigns an id when the caller left it empty.
func (e *Entry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Recorder persists or forwards audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Multi fans an entry out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
