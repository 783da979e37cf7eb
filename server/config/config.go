// Package config loads the proxy's configuration from a JSON file, with
// environment variable overrides for deployment-injected values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cyclopcam/dbh"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/strapi"
)

type Config struct {
	// HTTP listen port, eg ":8080"
	Port string `json:"port"`

	DB dbh.DBConfig `json:"db"`

	Strapi StrapiConfig `json:"strapi"`

	JWT JWTConfig `json:"jwt"`

	// Interval between background session sweeps, in minutes. 0 = hourly.
	SessionSweepMinutes int `json:"sessionSweepMinutes"`

	// Erase and recreate the database on startup. CLI-only, for dev.
	WipeDB bool `json:"-"`
}

type StrapiConfig struct {
	// Base URL of the Strapi instance, eg "http://localhost:1337"
	BaseURL string `json:"baseUrl"`

	// Long-lived static API tokens, per role. Optional; roles without one
	// fall back to admin-session tokens for /api/ paths too.
	APITokens map[string]string `json:"apiTokens"`

	// Proxy-identity credential pairs, per role. Every role that should be
	// able to reach the admin plane needs one.
	Credentials map[string]strapi.Credential `json:"credentials"`
}

type JWTConfig struct {
	Secret string `json:"secret"`
	// Token lifetime in hours. 0 = 24.
	LifetimeHours int `json:"lifetimeHours"`
}

// Load reads the config file and applies env overrides.
func Load(filename string) (*Config, error) {
	cfg := Config{}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STRAPI_URL"); v != "" {
		c.Strapi.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_LIFETIME_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.JWT.LifetimeHours = n
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = ":" + v
	}
	// Per-role secrets are the values most often injected by the platform.
	for _, role := range defs.AllRoles {
		upper := strings.ToUpper(string(role))
		if v := os.Getenv("STRAPI_API_TOKEN_" + upper); v != "" {
			if c.Strapi.APITokens == nil {
				c.Strapi.APITokens = map[string]string{}
			}
			c.Strapi.APITokens[string(role)] = v
		}
		email := os.Getenv("STRAPI_" + upper + "_EMAIL")
		password := os.Getenv("STRAPI_" + upper + "_PASSWORD")
		if email != "" && password != "" {
			if c.Strapi.Credentials == nil {
				c.Strapi.Credentials = map[string]strapi.Credential{}
			}
			c.Strapi.Credentials[string(role)] = strapi.Credential{Email: email, Password: password}
		}
	}
}

func (c *Config) validate() error {
	if c.Strapi.BaseURL == "" {
		return fmt.Errorf("Config is missing strapi.baseUrl")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("Config is missing jwt.secret")
	}
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.DB.Driver == "" {
		c.DB = dbh.MakeSqliteConfig("strapi-proxy.sqlite")
	}
	return nil
}

// RoleAPITokens converts the string-keyed config map to role keys.
func (c *Config) RoleAPITokens() map[defs.Role]string {
	out := map[defs.Role]string{}
	for k, v := range c.Strapi.APITokens {
		out[defs.ParseRole(k)] = v
	}
	return out
}

// RoleCredentials converts the string-keyed config map to role keys.
func (c *Config) RoleCredentials() map[defs.Role]strapi.Credential {
	out := map[defs.Role]strapi.Credential{}
	for k, v := range c.Strapi.Credentials {
		out[defs.ParseRole(k)] = v
	}
	return out
}
