package strapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// ContentType is our normalized view of one Strapi content-type schema.
// PluralName comes strictly from the schema's declared metadata; we never
// synthesize a plural by appending "s".
type ContentType struct {
	Name         string `json:"name"`
	SingularName string `json:"singularName"`
	PluralName   string `json:"pluralName"`
	Kind         string `json:"kind"`
	UID          string `json:"uid"`
}

// typeCache maps lower-cased name/singular/plural aliases to descriptors, so
// a resolved type is found under any of its three names without a refetch.
type typeCache struct {
	lock    sync.Mutex
	byAlias map[string]*ContentType
}

func newTypeCache() *typeCache {
	return &typeCache{
		byAlias: map[string]*ContentType{},
	}
}

func (tc *typeCache) get(alias string) *ContentType {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	return tc.byAlias[strings.ToLower(alias)]
}

func (tc *typeCache) put(ct *ContentType) {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	for _, alias := range []string{ct.Name, ct.SingularName, ct.PluralName} {
		if alias != "" {
			tc.byAlias[strings.ToLower(alias)] = ct
		}
	}
}

// rawContentType is one catalog entry as Strapi sends it. Fields appear in
// different places depending on the Strapi version, hence the duplication.
type rawContentType struct {
	UID    string `json:"uid"`
	APIID  string `json:"apiID"`
	Kind   string `json:"kind"`
	Schema struct {
		Kind         string `json:"kind"`
		Visible      *bool  `json:"visible"`
		SingularName string `json:"singularName"`
		PluralName   string `json:"pluralName"`
		DisplayName  string `json:"displayName"`
		Info         struct {
			SingularName string `json:"singularName"`
			PluralName   string `json:"pluralName"`
			DisplayName  string `json:"displayName"`
		} `json:"info"`
	} `json:"schema"`
	Visible *bool `json:"visible"`
	Info    struct {
		SingularName string `json:"singularName"`
		PluralName   string `json:"pluralName"`
		DisplayName  string `json:"displayName"`
	} `json:"info"`
}

// ListContentTypes fetches the upstream schema catalog and returns the
// visible collection and single types, normalized.
func (c *Client) ListContentTypes(role defs.Role) ([]*ContentType, error) {
	body, err := c.Forward("GET", "/content-type-builder/content-types", nil, role)
	if err != nil {
		return nil, err
	}
	raw, err := decodeCatalogEnvelope(body)
	if err != nil {
		return nil, err
	}
	types := []*ContentType{}
	for i, entry := range raw {
		if !isUserFacing(&entry) {
			continue
		}
		ct, err := mapContentType(&entry)
		if err != nil {
			// A mapping failure names the failing index; a silent skip here
			// would hide a schema we can no longer address.
			return nil, &SchemaError{Message: fmt.Sprintf("Content type at index %v: %v", i, err)}
		}
		types = append(types, ct)
		c.types.put(ct)
	}
	return types, nil
}

// ResolvePlural translates a caller-supplied content-type name or slug into
// Strapi's canonical plural identifier. There is deliberately no fallback
// pluralization: if the schema doesn't declare a plural, we fail with a
// SchemaError rather than guess.
func (c *Client) ResolvePlural(nameOrSlug string, role defs.Role) (string, error) {
	alias := strings.ToLower(strings.TrimSpace(nameOrSlug))
	if alias == "" {
		return "", ErrNotFound
	}
	if ct := c.types.get(alias); ct != nil {
		if ct.PluralName == "" {
			return "", &SchemaError{Message: fmt.Sprintf("Content type '%v' declares no plural name", nameOrSlug)}
		}
		return ct.PluralName, nil
	}
	types, err := c.ListContentTypes(role)
	if err != nil {
		return "", err
	}
	for _, ct := range types {
		if strings.EqualFold(ct.Name, alias) ||
			strings.EqualFold(ct.SingularName, alias) ||
			strings.EqualFold(ct.PluralName, alias) {
			if ct.PluralName == "" {
				return "", &SchemaError{Message: fmt.Sprintf("Content type '%v' declares no plural name", nameOrSlug)}
			}
			return ct.PluralName, nil
		}
	}
	return "", fmt.Errorf("Content type '%v': %w", nameOrSlug, ErrNotFound)
}

// FindContentType returns the normalized descriptor for a name/slug.
func (c *Client) FindContentType(nameOrSlug string, role defs.Role) (*ContentType, error) {
	alias := strings.ToLower(strings.TrimSpace(nameOrSlug))
	if ct := c.types.get(alias); ct != nil {
		return ct, nil
	}
	types, err := c.ListContentTypes(role)
	if err != nil {
		return nil, err
	}
	for _, ct := range types {
		if strings.EqualFold(ct.Name, alias) ||
			strings.EqualFold(ct.SingularName, alias) ||
			strings.EqualFold(ct.PluralName, alias) {
			return ct, nil
		}
	}
	return nil, fmt.Errorf("Content type '%v': %w", nameOrSlug, ErrNotFound)
}

// decodeCatalogEnvelope tolerates the three catalog envelopes we've seen in
// the wild: a top-level array, {data:[...]}, and {data:{data:[...]}}.
// Anything else is an explicit error, not a best-effort guess.
func decodeCatalogEnvelope(body []byte) ([]rawContentType, error) {
	var topArray []rawContentType
	if err := json.Unmarshal(body, &topArray); err == nil {
		return topArray, nil
	}
	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Data) != 0 {
		var dataArray []rawContentType
		if err := json.Unmarshal(wrapped.Data, &dataArray); err == nil {
			return dataArray, nil
		}
		nested := struct {
			Data []rawContentType `json:"data"`
		}{}
		if err := json.Unmarshal(wrapped.Data, &nested); err == nil && nested.Data != nil {
			return nested.Data, nil
		}
	}
	return nil, &SchemaError{Message: "Unrecognized content-type catalog response shape"}
}

// isUserFacing filters the catalog to collection/single types that are not
// explicitly hidden. Visibility defaults to visible when the flag is absent.
func isUserFacing(entry *rawContentType) bool {
	kind := entry.Kind
	if kind == "" {
		kind = entry.Schema.Kind
	}
	if kind != "collectionType" && kind != "singleType" {
		return false
	}
	visible := entry.Visible
	if visible == nil {
		visible = entry.Schema.Visible
	}
	return visible == nil || *visible
}

// mapContentType normalizes one catalog entry. The stable identifier prefers
// the explicit apiID, falling back to parsing the uid "scope::group.name"
// into its name component. Singular/plural come strictly from the declared
// schema metadata.
func mapContentType(entry *rawContentType) (*ContentType, error) {
	name := entry.APIID
	if name == "" {
		name = nameFromUID(entry.UID)
	}
	if name == "" {
		return nil, fmt.Errorf("entry has neither apiID nor a parseable uid (uid='%v')", entry.UID)
	}
	singular := entry.Schema.Info.SingularName
	if singular == "" {
		singular = entry.Schema.SingularName
	}
	if singular == "" {
		singular = entry.Info.SingularName
	}
	plural := entry.Schema.Info.PluralName
	if plural == "" {
		plural = entry.Schema.PluralName
	}
	if plural == "" {
		plural = entry.Info.PluralName
	}
	kind := entry.Kind
	if kind == "" {
		kind = entry.Schema.Kind
	}
	return &ContentType{
		Name:         name,
		SingularName: singular,
		PluralName:   plural,
		Kind:         kind,
		UID:          entry.UID,
	}, nil
}

// nameFromUID parses a namespaced identifier of the form "scope::group.name"
// (eg "api::article.article") and returns the trailing name component.
func nameFromUID(uid string) string {
	_, after, found := strings.Cut(uid, "::")
	if !found {
		return ""
	}
	if i := strings.LastIndex(after, "."); i >= 0 {
		return after[i+1:]
	}
	return after
}
