package strapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// Forward issues one upstream request on behalf of a role and returns the
// raw response body. Credential selection: paths under /api/ use the
// long-lived static API token for the role when one is configured, otherwise
// (and for all admin-plane paths) a cached short-lived session token.
//
// Failures never come back as a half-parsed success: any non-2xx or
// transport error is returned as *UpstreamError carrying the upstream's own
// status code and message when extractable.
func (c *Client) Forward(method, path string, body []byte, role defs.Role) ([]byte, error) {
	token, usedAPIToken, err := c.tokenForPath(path, role)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.url(path), reader)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && !usedAPIToken {
			// The upstream rejected a token our cache still considered
			// valid. Evict it so the next request re-authenticates.
			c.InvalidateSession(role)
		}
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(respBody, resp.Status),
		}
	}
	return respBody, nil
}

// ForwardJSON marshals 'body' and forwards it. A nil body sends no payload.
func (c *Client) ForwardJSON(method, path string, body any, role defs.Role) ([]byte, error) {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
		}
	}
	return c.Forward(method, path, raw, role)
}

func (c *Client) tokenForPath(path string, role defs.Role) (token string, usedAPIToken bool, err error) {
	if isAPITokenPath(path) {
		if token := c.APITokens[role]; token != "" {
			return token, true, nil
		}
	}
	token, err = c.SessionToken(role)
	return token, false, err
}

// isAPITokenPath reports whether the path addresses the content API, the
// resource family that Strapi API tokens are scoped to. Admin-plane paths
// (content-type-builder, content-manager, /admin) always need a session token.
func isAPITokenPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// upstreamMessage digs a human-readable message out of an upstream error
// body. Probe order: structured error object message, generic message field,
// string-valued error, then the transport status text. Falls back to a
// generic message so the caller always has something to surface.
func upstreamMessage(body []byte, statusText string) string {
	envelope := struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}{}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) != 0 {
			structured := struct {
				Message string `json:"message"`
			}{}
			if err := json.Unmarshal(envelope.Error, &structured); err == nil && structured.Message != "" {
				return structured.Message
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if len(envelope.Error) != 0 {
			var plain string
			if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
	}
	if statusText != "" {
		return statusText
	}
	return "Unknown Strapi error"
}
