package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/dbh"
	"github.com/stretchr/testify/require"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"strapi": {"baseUrl": "http://localhost:1337"},
		"jwt": {"secret": "abc"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, dbh.DriverSqlite, cfg.DB.Driver)
	require.Equal(t, "strapi-proxy.sqlite", cfg.DB.Database)
}

func TestLoadRejectsIncomplete(t *testing.T) {
	_, err := Load(writeConfig(t, `{"jwt": {"secret": "abc"}}`))
	require.ErrorContains(t, err, "baseUrl")

	_, err = Load(writeConfig(t, `{"strapi": {"baseUrl": "http://x"}}`))
	require.ErrorContains(t, err, "secret")

	_, err = Load(writeConfig(t, `not json`))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STRAPI_URL", "http://elsewhere:1337")
	t.Setenv("PORT", "9090")
	t.Setenv("STRAPI_API_TOKEN_EDITOR", "tok-editor")
	t.Setenv("STRAPI_ADMIN_EMAIL", "admin@proxy")
	t.Setenv("STRAPI_ADMIN_PASSWORD", "pw")

	path := writeConfig(t, `{
		"strapi": {"baseUrl": "http://localhost:1337"},
		"jwt": {"secret": "abc"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://elsewhere:1337", cfg.Strapi.BaseURL)
	require.Equal(t, ":9090", cfg.Port)

	tokens := cfg.RoleAPITokens()
	require.Equal(t, "tok-editor", tokens[defs.RoleEditor])
	creds := cfg.RoleCredentials()
	require.Equal(t, "admin@proxy", creds[defs.RoleAdmin].Email)
}

func TestRoleMapsCollapseUnknownRoles(t *testing.T) {
	cfg := Config{}
	cfg.Strapi.APITokens = map[string]string{"superuser": "tok"}
	tokens := cfg.RoleAPITokens()
	require.Equal(t, "tok", tokens[defs.RoleViewer])
}
