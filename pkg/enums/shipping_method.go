package enums

// ShippingMethod selects the carrier tier for a checkout.
type ShippingMethod string

const (
	ShippingMethodStandard  ShippingMethod = "standard"
	ShippingMethodExpress   ShippingMethod = "express"
	ShippingMethodOvernight ShippingMethod = "overnight"
)

func (m ShippingMethod) IsValid() bool {
	switch m {
	case ShippingMethodStandard, ShippingMethodExpress, ShippingMethodOvernight:
		return true
	}
	return false
}
