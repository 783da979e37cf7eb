package identity

import (
	"net/http"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/session"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

// Status of one strategy's attempt at a request.
type Status int

const (
	// NotApplicable: the request carries no input this strategy consumes.
	NotApplicable Status = iota
	// Resolved: the strategy produced an identity.
	Resolved
	// Failed: the strategy's input was present but did not authenticate.
	Failed
)

// Resolution is the outcome of one strategy.
type Resolution struct {
	Status   Status
	Identity *Identity
	Err      error // Set when Status == Failed. Always a www.HTTPError.
}

func resolved(id *Identity) Resolution {
	return Resolution{Status: Resolved, Identity: id}
}

func failed(err error) Resolution {
	return Resolution{Status: Failed, Err: err}
}

func notApplicable() Resolution {
	return Resolution{Status: NotApplicable}
}

// Strategy is one way of authenticating a request.
type Strategy interface {
	Name() string
	Resolve(r *http.Request) Resolution
}

// Resolver walks an ordered list of strategies, short-circuiting on the
// first Resolved. A Failed outcome is only surfaced if no later strategy
// resolves the request. The order is load-bearing: the platform header wins
// over a bearer token when both are present and valid.
type Resolver struct {
	log        logs.Log
	strategies []Strategy
}

func NewResolver(log logs.Log, strategies ...Strategy) *Resolver {
	return &Resolver{
		log:        log,
		strategies: strategies,
	}
}

// Resolve authenticates the request, or returns a www.HTTPError.
func (res *Resolver) Resolve(r *http.Request) (*Identity, error) {
	var lastFailure error
	for _, strategy := range res.strategies {
		outcome := strategy.Resolve(r)
		switch outcome.Status {
		case Resolved:
			return outcome.Identity, nil
		case Failed:
			res.log.Infof("Authentication strategy '%v' failed for %v: %v", strategy.Name(), r.URL.Path, outcome.Err)
			lastFailure = outcome.Err
		}
	}
	if lastFailure != nil {
		return nil, lastFailure
	}
	return nil, www.Error(http.StatusUnauthorized, "No credentials provided")
}

// ---------------------------------------------------------------------------
// Bearer-session strategy
// ---------------------------------------------------------------------------

// SessionStrategy authenticates via the Authorization bearer token issued at
// register/login.
type SessionStrategy struct {
	signer *TokenSigner
}

func NewSessionStrategy(signer *TokenSigner) *SessionStrategy {
	return &SessionStrategy{signer: signer}
}

func (s *SessionStrategy) Name() string { return "session" }

func (s *SessionStrategy) Resolve(r *http.Request) Resolution {
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		return notApplicable()
	}
	id, err := s.signer.Verify(strings.TrimSpace(authorization[len("Bearer "):]))
	if err != nil {
		return failed(www.Error(http.StatusUnauthorized, "Invalid or expired token"))
	}
	id.AuthType = session.AuthTypeSession
	return resolved(id)
}

// ---------------------------------------------------------------------------
// Platform-header strategy
// ---------------------------------------------------------------------------

// PlatformStrategy authenticates via the platform-injected identity header.
// On success the resolver also gets a session registry entry, so that logout
// and the session stats see header-authenticated users too.
type PlatformStrategy struct {
	log      logs.Log
	users    *userdb.UserDB
	sessions *session.Registry
}

func NewPlatformStrategy(log logs.Log, users *userdb.UserDB, sessions *session.Registry) *PlatformStrategy {
	return &PlatformStrategy{
		log:      log,
		users:    users,
		sessions: sessions,
	}
}

func (s *PlatformStrategy) Name() string { return "platform-header" }

func (s *PlatformStrategy) Resolve(r *http.Request) Resolution {
	headerValue := r.Header.Get(PrincipalHeader)
	if headerValue == "" {
		return notApplicable()
	}
	principal, err := DecodePrincipal(headerValue)
	if err != nil {
		return failed(www.Error(http.StatusUnauthorized, "Malformed identity header"))
	}
	claims := principal.ExtractClaims()
	if claims.ExternalID == "" && claims.Email == "" {
		return failed(www.Error(http.StatusUnauthorized, "Identity header carries neither a stable identifier nor an email"))
	}

	// External-identifier first, email second.
	user, err := s.users.FindByAuthKey(claims.ExternalID)
	if err != nil && claims.Email != "" {
		user, err = s.users.FindByEmail(claims.Email)
	}
	if err != nil {
		return failed(www.Error(http.StatusNotFound, "No local user matches the platform identity"))
	}
	if user.Blocked {
		return failed(www.Error(http.StatusForbidden, "User is blocked"))
	}

	// One-time binding of the external identifier. Never overwritten later.
	if user.AuthKey == "" && claims.ExternalID != "" {
		if err := s.users.BindAuthKey(user.ID, claims.ExternalID); err != nil {
			s.log.Errorf("Failed to bind auth key for user %v: %v", user.ID, err)
		} else {
			user.AuthKey = claims.ExternalID
		}
	}

	role := user.EffectiveRole()
	if len(claims.Roles) != 0 {
		role = strongestExternalRole(claims.Roles)
	}

	id := &Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     role,
		AuthKey:  user.AuthKey,
		AuthType: session.AuthTypePlatformHeader,
	}
	id.SessionID = s.sessions.Create(user.ID, user.Email, user.Username, role, user.AuthKey, session.AuthTypePlatformHeader)
	return resolved(id)
}

// strongestExternalRole maps the externally-asserted role claims onto a
// local role, taking the most privileged match.
func strongestExternalRole(externalRoles []string) defs.Role {
	best := defs.RoleViewer
	rank := map[defs.Role]int{defs.RoleViewer: 0, defs.RoleAuthor: 1, defs.RoleEditor: 2, defs.RoleAdmin: 3}
	for _, ext := range externalRoles {
		if mapped := defs.RoleFromExternalClaim(ext); rank[mapped] > rank[best] {
			best = mapped
		}
	}
	return best
}
