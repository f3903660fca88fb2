package services

import (
	"context"
	"encoding/json"
	"time"

	"agent-portal/cloud"
	"agent-portal/models"

	"go.uber.org/zap"
)

// EventPublisher fans domain events out to SNS. Without a topic events are only logged.
type EventPublisher struct {
	sns      cloud.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewEventPublisher(sns cloud.SNSPublisher, topicArn string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

// Publish never fails the caller; delivery problems are logged.
func (p *EventPublisher) Publish(ctx context.Context, event models.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.sns == nil || p.topicArn == "" {
		p.logger.Debug("Domain event", zap.String("event_type", event.Type), zap.String("agent_id", event.AgentID), zap.String("user_id", event.UserID))
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to encode domain event", zap.String("event_type", event.Type), zap.Error(err))
		return
	}
	if err := p.sns.Publish(ctx, p.topicArn, payload); err != nil {
		p.logger.Error("Failed to publish domain event to SNS", zap.String("event_type", event.Type), zap.Error(err))
		return
	}
	p.logger.Info("Domain event published", zap.String("event_type", event.Type))
}
