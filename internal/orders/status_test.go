package orders

import (
	"testing"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

func items(statuses ...enums.LineItemStatus) []models.OrderLineItem {
	out := make([]models.OrderLineItem, len(statuses))
	for i, s := range statuses {
		out[i].Status = s
	}
	return out
}

func TestRollupStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []models.OrderLineItem
		want  enums.OrderStatus
	}{
		{"no items", nil, enums.OrderStatusNew},
		{"all confirmed", items(enums.LineItemStatusConfirmed, enums.LineItemStatusConfirmed), enums.OrderStatusNew},
		{"all delivered", items(enums.LineItemStatusDelivered, enums.LineItemStatusDelivered), enums.OrderStatusDelivered},
		{"partially delivered stays in transit", items(enums.LineItemStatusDelivered, enums.LineItemStatusShipped), enums.OrderStatusInTransit},
		{"any shipped means in transit", items(enums.LineItemStatusConfirmed, enums.LineItemStatusShipped), enums.OrderStatusInTransit},
		{"processing only", items(enums.LineItemStatusProcessing, enums.LineItemStatusConfirmed), enums.OrderStatusProcessing},
		{"delivered plus cancelled not fully delivered", items(enums.LineItemStatusDelivered, enums.LineItemStatusCancelled), enums.OrderStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RollupStatus(tc.items); got != tc.want {
				t.Fatalf("RollupStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
