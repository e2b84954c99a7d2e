package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are normally minted by the external identity provider; the local mint path
// exists for development and tests.
type AccessTokenPayload struct {
	CallerID uuid.UUID
	Role     enums.MemberRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by callers.
type AccessTokenClaims struct {
	CallerID uuid.UUID        `json:"caller_id"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
