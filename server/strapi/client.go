// Package strapi is the credential-proxy core: it maps application roles onto
// a small fixed pool of Strapi credentials, caches the short-lived session
// tokens those credentials buy, forwards requests upstream, and resolves
// caller-facing content-type names to Strapi's canonical plural identifiers.
package strapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// Credential is one proxy-identity credential pair (a Strapi admin account).
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client talks to one Strapi instance on behalf of all application users.
type Client struct {
	Log     logs.Log
	BaseURL string

	// Long-lived static API tokens per role (Settings -> API Tokens in Strapi).
	// Used for /api/ paths when non-empty. Never cached or refreshed.
	APITokens map[defs.Role]string

	// Admin credentials per role, exchanged for short-lived session tokens.
	Credentials map[defs.Role]Credential

	HTTPClient *http.Client

	// How long an upstream session token is served from cache. Deliberately
	// shorter than the token's real lifetime, so we never hand out a token
	// the upstream has already rejected. Strapi admin JWTs commonly live 30
	// minutes on self-hosted installs; we cache for 25.
	TokenCacheDuration time.Duration

	creds *credentialCache
	types *typeCache
}

func NewClient(log logs.Log, baseURL string, apiTokens map[defs.Role]string, credentials map[defs.Role]Credential) *Client {
	c := &Client{
		Log:         log,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APITokens:   apiTokens,
		Credentials: credentials,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		TokenCacheDuration: 25 * time.Minute,
	}
	c.creds = newCredentialCache(c)
	c.types = newTypeCache()
	return c
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}
