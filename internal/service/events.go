package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EvaluationSubmittedEvent is published for downstream consumers (reminder
// scheduling, notifications) once an evaluation has committed.
type EvaluationSubmittedEvent struct {
	EventID        string    `json:"event_id"`
	EvaluationID   uint      `json:"evaluation_id"`
	FormID         uint      `json:"form_id"`
	TeamID         uint      `json:"team_id"`
	EvaluatorID    uint      `json:"evaluator_id"`
	EvaluateeID    uint      `json:"evaluatee_id"`
	LateSubmission bool      `json:"late_submission"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// EventPublisher emits domain events. Publishing is best effort: the
// evaluation is already committed when it runs.
type EventPublisher interface {
	PublishEvaluationSubmitted(ctx context.Context, event EvaluationSubmittedEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher constructs an EventPublisher backed by NATS. A nil
// connection yields a publisher that drops events silently, which keeps event
// wiring optional in development.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishEvaluationSubmitted(_ context.Context, event EvaluationSubmittedEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("evaluation_id", event.EvaluationID).Msg("failed to publish evaluation event")
		return err
	}

	return nil
}
