package strapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// authenticate exchanges one admin credential pair for a session token.
// The response envelope is not uniform across Strapi versions, so the token
// is probed from the known shapes in order.
func (c *Client) authenticate(cred Credential) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"email":    cred.Email,
		"password": cred.Password,
	})
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}
	req, err := http.NewRequest("POST", c.url("/admin/login"), bytes.NewReader(reqBody))
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{Message: upstreamMessage(body, resp.Status)}
	}

	token := extractToken(body)
	if token == "" {
		return "", &AuthError{Message: "Login succeeded but no token found in response"}
	}
	return token, nil
}

// extractToken probes the accepted response shapes in order:
// {data:{token}}, {token}, {jwt}. Returns "" if none match.
func extractToken(body []byte) string {
	envelope := struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
		Token string `json:"token"`
		JWT   string `json:"jwt"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	switch {
	case envelope.Data.Token != "":
		return envelope.Data.Token
	case envelope.Token != "":
		return envelope.Token
	case envelope.JWT != "":
		return envelope.JWT
	}
	return ""
}
