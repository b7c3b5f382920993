package handlers

import (
	"github.com/novastream/gateway/internal/auth"
)

// TokenIssuer mints session tokens for a verified identity.
type TokenIssuer interface {
	Issue(email string) (string, auth.Session, error)
}
