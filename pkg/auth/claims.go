package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	SessionID string
	Profile   Profile
	JTI       string
}

// Profile is the customer identity carried by the token, used to pre-fill delivery details.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// AccessTokenClaims represents the typed JWT issued to clients by the identity service.
type AccessTokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	Profile   Profile   `json:"profile"`
	jwt.RegisteredClaims
}

// EffectiveSessionID is the session key; tokens without a session id fall back to jti.
func (c *AccessTokenClaims) EffectiveSessionID() string {
	if c == nil {
		return ""
	}
	if c.SessionID != "" {
		return c.SessionID
	}
	return c.ID
}
