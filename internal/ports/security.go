package ports

import (
	"time"

	"github.com/packlane/fulfillment-service/internal/domain"
)

// AuthClaims is the session identity carried inside a signed token.
type AuthClaims struct {
	ActorID   string      `json:"actor_id"`
	Role      domain.Role `json:"role"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// TokenSigner signs and validates session identity tokens.
type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	ParseAndValidate(token string) (AuthClaims, error)
}
