package enums

// SettlementStatus is the payout lifecycle of a per-seller-per-order settlement row.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusSettled   SettlementStatus = "settled"
	SettlementStatusCancelled SettlementStatus = "cancelled"
	SettlementStatusRefunded  SettlementStatus = "refunded"
)

func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusSettled,
		SettlementStatusCancelled, SettlementStatusRefunded:
		return true
	}
	return false
}
