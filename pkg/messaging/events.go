package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock events
	EventLotReceived      = "stock.lot.received"
	EventStockDisposed    = "stock.disposed"
	EventStockTransferred = "stock.transferred"

	// Requisition events
	EventRequisitionCreated    = "requisition.created"
	EventRequisitionApproved   = "requisition.approved"
	EventRequisitionDispatched = "requisition.dispatched"
	EventRequisitionReceived   = "requisition.received"
	EventRequisitionRefused    = "requisition.refused"
)

// Exchange names
const (
	ExchangeSupplyEvents = "supply.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock events

// LotReceivedEvent is published when a lot is received into a location
type LotReceivedEvent struct {
	LotID      string `json:"lot_id"`
	LotCode    string `json:"lot_code"`
	DrugID     string `json:"drug_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
	ReceivedBy string `json:"received_by"`
}

// StockDisposedEvent is published when an expired lot is written off
type StockDisposedEvent struct {
	StockEntryID string `json:"stock_entry_id"`
	LotID        string `json:"lot_id"`
	LocationID   string `json:"location_id"`
	Quantity     int    `json:"quantity"`
	DisposedBy   string `json:"disposed_by"`
}

// StockTransferredEvent is published when a direct transfer completes
type StockTransferredEvent struct {
	TransferID    string `json:"transfer_id"`
	OriginID      string `json:"origin_id"`
	DestinationID string `json:"destination_id"`
	ItemCount     int    `json:"item_count"`
	SentBy        string `json:"sent_by"`
}

// Requisition events

// RequisitionEvent is published on every requisition lifecycle change
type RequisitionEvent struct {
	RequisitionID string `json:"requisition_id"`
	LocationID    string `json:"location_id"`
	Status        string `json:"status"`
	ActorID       string `json:"actor_id"`
	Reason        string `json:"reason,omitempty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
