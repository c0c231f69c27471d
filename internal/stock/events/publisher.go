package events

import (
	"context"

	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

// StockEventPublisher publishes stock-related events. Publishing is
// fire-and-forget: a broker failure is logged but never fails the stock
// operation that triggered it.
type StockEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewStockEventPublisher creates a new stock event publisher
func NewStockEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*StockEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeSupplyEvents, "supply-service", log)
	if err != nil {
		return nil, err
	}

	return &StockEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishLotReceived publishes a lot received event
func (p *StockEventPublisher) PublishLotReceived(ctx context.Context, data messaging.LotReceivedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventLotReceived, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", data.LotID).Msg("failed to publish lot received event")
	}
}

// PublishStockDisposed publishes a stock disposed event
func (p *StockEventPublisher) PublishStockDisposed(ctx context.Context, data messaging.StockDisposedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockDisposed, data); err != nil {
		p.logger.Error().Err(err).Str("stock_entry_id", data.StockEntryID).Msg("failed to publish stock disposed event")
	}
}

// PublishStockTransferred publishes a stock transferred event
func (p *StockEventPublisher) PublishStockTransferred(ctx context.Context, data messaging.StockTransferredEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockTransferred, data); err != nil {
		p.logger.Error().Err(err).Str("transfer_id", data.TransferID).Msg("failed to publish stock transferred event")
	}
}
