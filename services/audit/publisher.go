package audit

import (
	"context"
	"fmt"
)

// DefaultSubject is the NATS subject audit events are published on.
const DefaultSubject = "agentdash.audit"

// Bus is the publishing half of pkg/bus.
type Bus interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Publisher forwards entries as JSON events.
type Publisher struct {
	bus     Bus
	subject string
}

// NewPublisher publishes on subject, or DefaultSubject when it is empty.
func NewPublisher(b Bus, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{bus: b, subject: subject}
}

func (p *Publisher) Record(ctx context.Context, e Entry) error {
	if err := p.bus.Publish(ctx, p.subject+"."+e.Action, e); err != nil {
		return fmt.Errorf("audit: publish %s: %w", e.Action, err)
	}
	return nil
}
