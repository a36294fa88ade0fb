package orders

import "github.com/akhilnathan/shopsite-backend/pkg/enums"

// transitions is the full order status graph. Anything not listed here is
// rejected; there is no skipping ahead.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
}

// CanTransition reports whether the edge from -> to exists in the graph.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
