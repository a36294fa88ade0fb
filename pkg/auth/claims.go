package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the shape of the JWT minted by the external identity
// provider. Only the user id and the admin flag are trusted here; this
// service never issues tokens itself.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	IsAdmin bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}
