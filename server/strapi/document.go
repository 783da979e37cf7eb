package strapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// FetchItem retrieves a single content item. Strapi v5 changed both the id
// scheme (documentId) and the publication-state query parameters, so a plain
// GET by numeric id can 404 on content that exists. We probe three ways, in
// order, moving on only when the previous attempt returned 404:
//
//  1. GET /api/{plural}/{id}?status=draft
//  2. GET /api/{plural}/{id}?status=preview
//  3. GET /api/{plural}?filters[documentId][$eq]={id}  (first list hit)
//
// The ordering and the 404-only trigger are version-specific upstream
// behavior; do not reorder or collapse the attempts.
func (c *Client) FetchItem(plural, id string, role defs.Role) ([]byte, error) {
	esc := url.PathEscape(id)

	body, err := c.Forward("GET", fmt.Sprintf("/api/%v/%v?status=draft", plural, esc), nil, role)
	if err == nil {
		return body, nil
	}
	if !isUpstream404(err) {
		return nil, err
	}

	body, err = c.Forward("GET", fmt.Sprintf("/api/%v/%v?status=preview", plural, esc), nil, role)
	if err == nil {
		return body, nil
	}
	if !isUpstream404(err) {
		return nil, err
	}

	body, err = c.Forward("GET", fmt.Sprintf("/api/%v?filters[documentId][$eq]=%v", plural, url.QueryEscape(id)), nil, role)
	if err != nil {
		if isUpstream404(err) {
			return nil, fmt.Errorf("item '%v' in '%v': %w", id, plural, ErrNotFound)
		}
		return nil, err
	}
	item := firstListItem(body)
	if item == nil {
		return nil, fmt.Errorf("item '%v' in '%v': %w", id, plural, ErrNotFound)
	}
	wrapped, _ := json.Marshal(map[string]json.RawMessage{"data": item})
	return wrapped, nil
}

func isUpstream404(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}

// firstListItem pulls the first entry out of a {data:[...]} list response.
func firstListItem(body []byte) json.RawMessage {
	envelope := struct {
		Data []json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data) == 0 {
		return nil
	}
	return envelope.Data[0]
}

// ItemAttributes extracts the attribute map of a single-item response,
// tolerating both the flat v5 shape {data:{...fields}} and the v4 shape
// {data:{id,attributes:{...fields}}}.
func ItemAttributes(body []byte) (map[string]any, error) {
	envelope := struct {
		Data map[string]json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil {
		return nil, &SchemaError{Message: "Unrecognized single-item response shape"}
	}
	if rawAttrs, ok := envelope.Data["attributes"]; ok {
		attrs := map[string]any{}
		if err := json.Unmarshal(rawAttrs, &attrs); err == nil {
			return attrs, nil
		}
	}
	attrs := map[string]any{}
	for k, v := range envelope.Data {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, &SchemaError{Message: "Unrecognized single-item response shape"}
		}
		attrs[k] = val
	}
	return attrs, nil
}
