package enums

// EventType names a domain event written to the outbox.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderCancelled     EventType = "order.cancelled"
	EventInventoryReleased  EventType = "inventory.released"
)

// AggregateType names the entity an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder     AggregateType = "order"
	AggregateInventory AggregateType = "inventory"
)
