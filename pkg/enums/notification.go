package enums

// NotificationType categorizes seller notifications.
type NotificationType string

const (
	NotificationTypeNewOrder      NotificationType = "new_order"
	NotificationTypeOrderRefunded NotificationType = "order_refunded"
	NotificationTypeOrderDisputed NotificationType = "order_disputed"
	NotificationTypePayoutSettled NotificationType = "payout_settled"
)
