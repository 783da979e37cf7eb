package strapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// itemUpstream serves /api/articles and records which publication-state
// probes it saw.
type itemUpstream struct {
	fake    *fakeStrapi
	queries []string

	draftStatus   int
	previewStatus int
	filterBody    string
}

func newItemUpstream(t *testing.T) *itemUpstream {
	u := &itemUpstream{
		draftStatus:   http.StatusNotFound,
		previewStatus: http.StatusNotFound,
		filterBody:    `{"data":[]}`,
	}
	u.fake = newFakeStrapi(t, func(w http.ResponseWriter, r *http.Request) {
		u.queries = append(u.queries, r.URL.RawQuery)
		switch {
		case r.URL.Query().Get("status") == "draft":
			w.WriteHeader(u.draftStatus)
			w.Write([]byte(`{"data":{"documentId":"abc","title":"Draft"}}`))
		case r.URL.Query().Get("status") == "preview":
			w.WriteHeader(u.previewStatus)
			w.Write([]byte(`{"data":{"documentId":"abc","title":"Preview"}}`))
		case r.URL.Query().Get("filters[documentId][$eq]") != "":
			w.Write([]byte(u.filterBody))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"Not Found"}}`))
		}
	})
	return u
}

func (u *itemUpstream) client(t *testing.T) *Client {
	return NewClient(logs.NewTestingLog(t), u.fake.server.URL, nil, testCredentials())
}

func fetchedTitle(t *testing.T, body []byte) string {
	attrs, err := ItemAttributes(body)
	require.NoError(t, err)
	title, _ := attrs["title"].(string)
	return title
}

func TestFetchItemFirstAttemptWins(t *testing.T) {
	up := newItemUpstream(t)
	up.draftStatus = http.StatusOK

	body, err := up.client(t).FetchItem("articles", "abc", defs.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, "Draft", fetchedTitle(t, body))
	require.Equal(t, []string{"status=draft"}, up.queries)
}

func TestFetchItemFallsThroughOn404(t *testing.T) {
	up := newItemUpstream(t)
	up.previewStatus = http.StatusOK

	body, err := up.client(t).FetchItem("articles", "abc", defs.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, "Preview", fetchedTitle(t, body))
	require.Equal(t, []string{"status=draft", "status=preview"}, up.queries)
}

func TestFetchItemFilterFallbackRewrapsFirstHit(t *testing.T) {
	up := newItemUpstream(t)
	up.filterBody = `{"data":[{"documentId":"abc","title":"Filtered"},{"documentId":"xyz","title":"Other"}]}`

	body, err := up.client(t).FetchItem("articles", "abc", defs.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, "Filtered", fetchedTitle(t, body))
	require.Len(t, up.queries, 3)
	require.Equal(t, "filters[documentId][$eq]=abc", up.queries[2])
}

func TestFetchItemExhaustedBecomesNotFound(t *testing.T) {
	up := newItemUpstream(t)

	_, err := up.client(t).FetchItem("articles", "missing", defs.RoleAdmin)
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, up.queries, 3)
}

func TestFetchItemNon404StopsTheChain(t *testing.T) {
	up := newItemUpstream(t)
	up.draftStatus = http.StatusForbidden

	_, err := up.client(t).FetchItem("articles", "abc", defs.RoleAdmin)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, http.StatusForbidden, ue.StatusCode)
	require.Equal(t, []string{"status=draft"}, up.queries)
}

func TestItemAttributesShapes(t *testing.T) {
	// v5 flat shape
	attrs, err := ItemAttributes([]byte(`{"data":{"id":3,"documentId":"abc","title":"Flat"}}`))
	require.NoError(t, err)
	require.Equal(t, "Flat", attrs["title"])

	// v4 nested attributes shape
	attrs, err = ItemAttributes([]byte(`{"data":{"id":3,"attributes":{"title":"Nested"}}}`))
	require.NoError(t, err)
	require.Equal(t, "Nested", attrs["title"])
	_, hasID := attrs["id"]
	require.False(t, hasID)

	var schemaErr *SchemaError
	_, err = ItemAttributes([]byte(`{"data":[1,2]}`))
	require.ErrorAs(t, err, &schemaErr)
	_, err = ItemAttributes([]byte(`not json`))
	require.ErrorAs(t, err, &schemaErr)
}

func TestFirstListItem(t *testing.T) {
	require.Nil(t, firstListItem([]byte(`{"data":[]}`)))
	require.Nil(t, firstListItem([]byte(`garbage`)))
	item := firstListItem([]byte(`{"data":[{"a":1},{"a":2}]}`))
	got := map[string]int{}
	require.NoError(t, json.Unmarshal(item, &got))
	require.Equal(t, 1, got["a"])
}
