package enums

// LineItemStatus tracks fulfillment per line item; order status derives from it.
type LineItemStatus string

const (
	LineItemStatusConfirmed  LineItemStatus = "confirmed"
	LineItemStatusProcessing LineItemStatus = "processing"
	LineItemStatusShipped    LineItemStatus = "shipped"
	LineItemStatusInTransit  LineItemStatus = "in_transit"
	LineItemStatusDelivered  LineItemStatus = "delivered"
	LineItemStatusCancelled  LineItemStatus = "cancelled"
)

func (s LineItemStatus) IsValid() bool {
	switch s {
	case LineItemStatusConfirmed, LineItemStatusProcessing, LineItemStatusShipped,
		LineItemStatusInTransit, LineItemStatusDelivered, LineItemStatusCancelled:
		return true
	}
	return false
}
