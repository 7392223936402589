package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Session
// issuance lives in the identity service; the billing API only needs to mint
// tokens in tests and to parse them at the auth boundary.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	AgencyID *uuid.UUID
	Role     enums.UserRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by dashboard clients.
// AgencyID is absent for superadmin operators who act across agencies.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	AgencyID *uuid.UUID     `json:"agency_id,omitempty"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
