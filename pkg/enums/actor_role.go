package enums

// ActorRole identifies who is calling an authenticated endpoint.
type ActorRole string

const (
	ActorRoleBuyer  ActorRole = "buyer"
	ActorRoleSeller ActorRole = "seller"
	ActorRoleAdmin  ActorRole = "admin"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case ActorRoleBuyer, ActorRoleSeller, ActorRoleAdmin:
		return true
	}
	return false
}
