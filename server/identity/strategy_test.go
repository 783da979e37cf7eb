package identity

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/stretchr/testify/require"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/session"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

type testEnv struct {
	users    *userdb.UserDB
	sessions *session.Registry
	signer   *TokenSigner
	resolver *Resolver
}

func createTestEnv(t *testing.T) *testEnv {
	logger := logs.NewTestingLog(t)
	users, err := userdb.NewUserDB(logger, dbh.MakeSqliteConfig(filepath.Join(t.TempDir(), "users.sqlite")), 0)
	require.NoError(t, err)
	sessions := session.NewRegistry(logger, session.NewMemStore(), users)
	signer := NewTokenSigner("test-secret-test-secret-test-secret", time.Hour)
	resolver := NewResolver(logger,
		NewPlatformStrategy(logger, users, sessions),
		NewSessionStrategy(signer),
	)
	return &testEnv{
		users:    users,
		sessions: sessions,
		signer:   signer,
		resolver: resolver,
	}
}

func principalHeader(t *testing.T, claims []PrincipalClaim) string {
	raw, err := json.Marshal(&ClientPrincipal{Claims: claims})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func httpErrCode(t *testing.T, err error) int {
	var hErr www.HTTPError
	require.ErrorAs(t, err, &hErr)
	return hErr.Code
}

func TestNoCredentials(t *testing.T) {
	env := createTestEnv(t)
	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	_, err := env.resolver.Resolve(r)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, httpErrCode(t, err))
}

func TestSessionStrategy(t *testing.T) {
	env := createTestEnv(t)
	token, err := env.signer.Issue(7, "a@b.com", "alice", defs.RoleEditor)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	id, err := env.resolver.Resolve(r)
	require.NoError(t, err)
	require.Equal(t, int64(7), id.UserID)
	require.Equal(t, session.AuthTypeSession, id.AuthType)

	r.Header.Set("Authorization", "Bearer garbage")
	_, err = env.resolver.Resolve(r)
	require.Equal(t, http.StatusUnauthorized, httpErrCode(t, err))
}

func TestPlatformStrategyBindsAuthKeyOnce(t *testing.T) {
	env := createTestEnv(t)
	user, err := env.users.CreateUser("alice", "a@b.com", "pw", "", "", defs.RoleAuthor)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{
		{Typ: "email", Val: "a@b.com"},
		{Typ: "nameidentifier", Val: "ext-1"},
	}))
	id, err := env.resolver.Resolve(r)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.UserID)
	// No external role claim: role comes from the stored user
	require.Equal(t, defs.RoleAuthor, id.Role)
	require.Equal(t, session.AuthTypePlatformHeader, id.AuthType)
	require.NotEmpty(t, id.SessionID)

	stored, err := env.users.GetUser(user.ID)
	require.NoError(t, err)
	require.Equal(t, "ext-1", stored.AuthKey)

	// A second resolution with a different identifier matches by email but
	// must not overwrite the stored key
	r2 := httptest.NewRequest("GET", "/api/auth/me", nil)
	r2.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{
		{Typ: "email", Val: "a@b.com"},
		{Typ: "nameidentifier", Val: "ext-OTHER"},
	}))
	_, err = env.resolver.Resolve(r2)
	require.NoError(t, err)
	stored, err = env.users.GetUser(user.ID)
	require.NoError(t, err)
	require.Equal(t, "ext-1", stored.AuthKey)
}

func TestPlatformStrategyExternalRole(t *testing.T) {
	env := createTestEnv(t)
	_, err := env.users.CreateUser("bob", "b@b.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{
		{Typ: "email", Val: "b@b.com"},
		{Typ: "sub", Val: "ext-bob"},
		{Typ: "roles", Val: "Site-Editor"},
	}))
	id, err := env.resolver.Resolve(r)
	require.NoError(t, err)
	require.Equal(t, defs.RoleEditor, id.Role)
}

func TestPlatformStrategyFailures(t *testing.T) {
	env := createTestEnv(t)

	// No identifier at all in the claim list
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{{Typ: "name", Val: "Nobody"}}))
	_, err := env.resolver.Resolve(r)
	require.Equal(t, http.StatusUnauthorized, httpErrCode(t, err))

	// No matching local user
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{{Typ: "email", Val: "ghost@b.com"}}))
	_, err = env.resolver.Resolve(r)
	require.Equal(t, http.StatusNotFound, httpErrCode(t, err))

	// Blocked user
	blocked, err := env.users.CreateUser("blocked", "blocked@b.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)
	require.NoError(t, env.users.DB.Model(&userdb.User{}).Where("id = ?", blocked.ID).Update("blocked", true).Error)
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{{Typ: "email", Val: "blocked@b.com"}}))
	_, err = env.resolver.Resolve(r)
	require.Equal(t, http.StatusForbidden, httpErrCode(t, err))
}

func TestPlatformHeaderWinsOverBearer(t *testing.T) {
	env := createTestEnv(t)
	platformUser, err := env.users.CreateUser("platform", "p@b.com", "pw", "", "", defs.RoleEditor)
	require.NoError(t, err)
	token, err := env.signer.Issue(999, "jwt@b.com", "jwtuser", defs.RoleAdmin)
	require.NoError(t, err)

	// Both a valid platform header and a valid bearer token: the platform
	// header must win
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{
		{Typ: "email", Val: "p@b.com"},
		{Typ: "sub", Val: "ext-p"},
	}))
	id, err := env.resolver.Resolve(r)
	require.NoError(t, err)
	require.Equal(t, platformUser.ID, id.UserID)
	require.Equal(t, session.AuthTypePlatformHeader, id.AuthType)
}

func TestPlatformFailureFallsThroughToBearer(t *testing.T) {
	env := createTestEnv(t)
	token, err := env.signer.Issue(5, "jwt@b.com", "jwtuser", defs.RoleViewer)
	require.NoError(t, err)

	// The platform header references no local user; the bearer token should
	// still authenticate the request
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(PrincipalHeader, principalHeader(t, []PrincipalClaim{{Typ: "email", Val: "ghost@b.com"}}))
	id, err := env.resolver.Resolve(r)
	require.NoError(t, err)
	require.Equal(t, int64(5), id.UserID)
	require.Equal(t, session.AuthTypeSession, id.AuthType)
}
