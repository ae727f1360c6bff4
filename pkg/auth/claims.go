package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ActorID  uuid.UUID
	Role     enums.ActorRole
	SellerID *uuid.UUID
}

// AccessTokenClaims is the typed JWT issued to clients. SellerID is present
// only for seller-role actors.
type AccessTokenClaims struct {
	ActorID  uuid.UUID       `json:"actor_id"`
	Role     enums.ActorRole `json:"role"`
	SellerID *uuid.UUID      `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}
