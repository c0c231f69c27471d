package events

import (
	"context"

	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

// RequisitionEventPublisher publishes requisition lifecycle events.
// Publishing is fire-and-forget: a broker failure is logged but never
// fails the lifecycle transition that triggered it.
type RequisitionEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewRequisitionEventPublisher creates a new requisition event publisher
func NewRequisitionEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*RequisitionEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeSupplyEvents, "supply-service", log)
	if err != nil {
		return nil, err
	}

	return &RequisitionEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

func (p *RequisitionEventPublisher) publish(ctx context.Context, eventType string, data messaging.RequisitionEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("requisition_id", data.RequisitionID).
			Str("event_type", eventType).
			Msg("failed to publish requisition event")
	}
}

// PublishCreated publishes a requisition created event
func (p *RequisitionEventPublisher) PublishCreated(ctx context.Context, data messaging.RequisitionEvent) {
	p.publish(ctx, messaging.EventRequisitionCreated, data)
}

// PublishApproved publishes a requisition approved event
func (p *RequisitionEventPublisher) PublishApproved(ctx context.Context, data messaging.RequisitionEvent) {
	p.publish(ctx, messaging.EventRequisitionApproved, data)
}

// PublishDispatched publishes a requisition dispatched event
func (p *RequisitionEventPublisher) PublishDispatched(ctx context.Context, data messaging.RequisitionEvent) {
	p.publish(ctx, messaging.EventRequisitionDispatched, data)
}

// PublishReceived publishes a requisition received event
func (p *RequisitionEventPublisher) PublishReceived(ctx context.Context, data messaging.RequisitionEvent) {
	p.publish(ctx, messaging.EventRequisitionReceived, data)
}

// PublishRefused publishes a requisition refused event
func (p *RequisitionEventPublisher) PublishRefused(ctx context.Context, data messaging.RequisitionEvent) {
	p.publish(ctx, messaging.EventRequisitionRefused, data)
}
