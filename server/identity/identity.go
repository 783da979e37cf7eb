// Package identity resolves an inbound request to a normalized identity
// record, via either a bearer-token session or a platform-injected identity
// header. The two mechanisms are independent strategies composed by an
// ordered resolver.
package identity

import (
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/session"
)

// Identity is the per-request authentication result. It is never persisted;
// it is derived from a stored user record plus request-time claims.
type Identity struct {
	UserID    int64            `json:"userId"`
	Email     string           `json:"email"`
	Username  string           `json:"username"`
	Role      defs.Role        `json:"role"`
	AuthKey   string           `json:"authKey,omitempty"`
	AuthType  session.AuthType `json:"authType"`
	SessionID string           `json:"sessionId,omitempty"`
}
