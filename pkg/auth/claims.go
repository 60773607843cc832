package auth

import (
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Email string
	Role  enums.Role
	// Subject is the supplier id for suppliers and the email otherwise.
	Subject string
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	Email string     `json:"email"`
	Role  enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// RecipientID is the id notifications for this caller are stored under.
func (c *AccessTokenClaims) RecipientID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Email
}
