package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateShift    OutboxAggregateType = "cash_shift"
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregateStock    OutboxAggregateType = "stock"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShift,
	AggregatePurchase,
	AggregateStock,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order_created"
	EventQuoteCreated     OutboxEventType = "quote_created"
	EventQuoteConfirmed   OutboxEventType = "quote_confirmed"
	EventOrderCancelled   OutboxEventType = "order_cancelled"
	EventOrderReturned    OutboxEventType = "order_returned"
	EventShiftOpened      OutboxEventType = "shift_opened"
	EventShiftClosed      OutboxEventType = "shift_closed"
	EventPurchaseReceived OutboxEventType = "purchase_received"
	EventStockTransferred OutboxEventType = "stock_transferred"
	EventStockAdjusted    OutboxEventType = "stock_adjusted"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventQuoteCreated,
	EventQuoteConfirmed,
	EventOrderCancelled,
	EventOrderReturned,
	EventShiftOpened,
	EventShiftClosed,
	EventPurchaseReceived,
	EventStockTransferred,
	EventStockAdjusted,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
