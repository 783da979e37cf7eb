package strapi

import (
	"sync"
	"time"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// credentialCache holds one short-lived session token per role.
// A token is served only while now < expiresAt; on expiry the entry is
// evicted and re-fetched synchronously on the next demand, never served
// stale. Concurrent cold-cache misses for the same role are coalesced into
// one in-flight authentication via the per-role lock.
type credentialCache struct {
	client *Client

	lock    sync.Mutex
	entries map[defs.Role]*credentialEntry
}

type credentialEntry struct {
	// fetchLock serializes authentication for one role, so a stampede of
	// cold-cache requests issues a single upstream login.
	fetchLock sync.Mutex
	token     string
	expiresAt time.Time
}

func newCredentialCache(client *Client) *credentialCache {
	return &credentialCache{
		client:  client,
		entries: map[defs.Role]*credentialEntry{},
	}
}

func (cc *credentialCache) entry(role defs.Role) *credentialEntry {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	e := cc.entries[role]
	if e == nil {
		e = &credentialEntry{}
		cc.entries[role] = e
	}
	return e
}

// get returns a valid session token for the role, authenticating if the
// cached token is missing or expired.
func (cc *credentialCache) get(role defs.Role) (string, error) {
	e := cc.entry(role)
	e.fetchLock.Lock()
	defer e.fetchLock.Unlock()

	if e.token != "" && time.Now().Before(e.expiresAt) {
		return e.token, nil
	}
	e.token = ""

	cred, ok := cc.client.Credentials[role]
	if !ok || cred.Email == "" {
		err := &ConfigurationError{Role: string(role)}
		cc.client.Log.Errorf("%v", err)
		return "", err
	}
	token, err := cc.client.authenticate(cred)
	if err != nil {
		return "", err
	}
	e.token = token
	e.expiresAt = time.Now().Add(cc.client.TokenCacheDuration)
	cc.client.Log.Infof("Authenticated Strapi session for role '%v'", role)
	return token, nil
}

// invalidate drops the cached token for a role (eg after the upstream
// rejects it before our conservative expiry window is up).
func (cc *credentialCache) invalidate(role defs.Role) {
	e := cc.entry(role)
	e.fetchLock.Lock()
	e.token = ""
	e.fetchLock.Unlock()
}

// SessionToken returns a valid short-lived session token for the role.
func (c *Client) SessionToken(role defs.Role) (string, error) {
	return c.creds.get(role)
}

// InvalidateSession drops the cached session token for the role.
func (c *Client) InvalidateSession(role defs.Role) {
	c.creds.invalidate(role)
}
