package orders

import (
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// RollupStatus derives the order-level status from its line items: fully
// delivered wins, any in-flight item keeps the order in transit, and otherwise
// the furthest-progressed item state applies.
func RollupStatus(items []models.OrderLineItem) enums.OrderStatus {
	if len(items) == 0 {
		return enums.OrderStatusNew
	}
	delivered := 0
	inFlight := false
	furthest := enums.OrderStatusNew
	for _, item := range items {
		switch item.Status {
		case enums.LineItemStatusDelivered:
			delivered++
		case enums.LineItemStatusShipped, enums.LineItemStatusInTransit:
			inFlight = true
		}
		if s := lineStatusToOrderStatus(item.Status); statusRank(s) > statusRank(furthest) {
			furthest = s
		}
	}
	if delivered == len(items) {
		return enums.OrderStatusDelivered
	}
	if inFlight {
		return enums.OrderStatusInTransit
	}
	return furthest
}

func lineStatusToOrderStatus(s enums.LineItemStatus) enums.OrderStatus {
	switch s {
	case enums.LineItemStatusProcessing:
		return enums.OrderStatusProcessing
	case enums.LineItemStatusShipped:
		return enums.OrderStatusShipped
	case enums.LineItemStatusInTransit:
		return enums.OrderStatusInTransit
	case enums.LineItemStatusDelivered:
		return enums.OrderStatusDelivered
	case enums.LineItemStatusCancelled:
		return enums.OrderStatusCancelled
	default:
		return enums.OrderStatusNew
	}
}

func statusRank(s enums.OrderStatus) int {
	switch s {
	case enums.OrderStatusNew:
		return 0
	case enums.OrderStatusProcessing:
		return 1
	case enums.OrderStatusShipped:
		return 2
	case enums.OrderStatusInTransit:
		return 3
	case enums.OrderStatusDelivered:
		return 4
	case enums.OrderStatusCancelled:
		return 5
	default:
		return 0
	}
}
