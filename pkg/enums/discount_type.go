package enums

// DiscountType distinguishes fixed-amount from percentage discounts.
type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypeFixed || t == DiscountTypePercentage
}
