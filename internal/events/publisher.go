// Package events publishes deploy lifecycle events to NATS so other
// systems (chat notifiers, dashboards) can react to deploys without
// polling the history database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// Event types published over the configured subject.
const (
	TypeRunStarted    = "run.started"
	TypePhaseFinished = "phase.finished"
	TypeRunFinished   = "run.finished"
)

// Event is the JSON payload for one lifecycle notification. Fields not
// applicable to the event type are omitted.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId"`
	Time      time.Time `json:"time"`
	Phase     string    `json:"phase,omitempty"`
	Status    string    `json:"status,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	DeployURL string    `json:"deployUrl,omitempty"`
}

// Publisher publishes run lifecycle events to a NATS subject. It
// satisfies the pipeline's observer contract.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect establishes a NATS connection for event publishing.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("liftoff"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &Publisher{conn: conn, subject: subject}, nil
}

// RunStarted publishes a run.started event.
func (p *Publisher) RunStarted(ctx context.Context, rec *model.RunRecord) error {
	return p.publish(runStartedEvent(rec))
}

// PhaseFinished publishes a phase.finished event.
func (p *Publisher) PhaseFinished(ctx context.Context, rec *model.RunRecord, res model.PhaseResult) error {
	return p.publish(phaseFinishedEvent(rec, res))
}

// RunFinished publishes a run.finished event.
func (p *Publisher) RunFinished(ctx context.Context, rec *model.RunRecord) error {
	return p.publish(runFinishedEvent(rec))
}

func (p *Publisher) publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes buffered messages and closes the connection. Flushing
// matters here: the process exits right after the run finishes, and an
// unflushed run.finished event would be lost.
func (p *Publisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	return err
}

func runStartedEvent(rec *model.RunRecord) Event {
	return Event{
		Type:   TypeRunStarted,
		RunID:  rec.ID,
		Time:   rec.StartedAt,
		Commit: rec.Commit,
		Branch: rec.Branch,
	}
}

func phaseFinishedEvent(rec *model.RunRecord, res model.PhaseResult) Event {
	code := res.ExitCode
	return Event{
		Type:     TypePhaseFinished,
		RunID:    rec.ID,
		Time:     res.FinishedAt,
		Phase:    res.Phase.String(),
		Status:   res.Status.String(),
		ExitCode: &code,
	}
}

func runFinishedEvent(rec *model.RunRecord) Event {
	return Event{
		Type:      TypeRunFinished,
		RunID:     rec.ID,
		Time:      rec.FinishedAt,
		Outcome:   rec.Outcome.String(),
		Commit:    rec.Commit,
		Branch:    rec.Branch,
		DeployURL: rec.DeployURL,
	}
}
