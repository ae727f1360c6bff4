package enums

// CartStatus tracks whether a cart is still open or already converted.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

func (s CartStatus) IsValid() bool {
	switch s {
	case CartStatusActive, CartStatusConverted, CartStatusAbandoned:
		return true
	}
	return false
}
