package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cyclopcam/www"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/strapi"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

const maxContentBodyBytes = 4 * 1024 * 1024

// Route names under /api/ that are ours, not content types.
var reservedAPINames = map[string]bool{
	"auth":          true,
	"content-types": true,
	"dashboard":     true,
	"ping":          true,
}

// httpContentFallback dispatches the generic content-proxy surface:
//
//	GET|POST   /api/:contentType
//	GET|PUT|DELETE /api/:contentType/:id
//	POST       /api/:contentType/duplicate/:id
//	GET        /api/:contentType/:id/ownership
func (s *Server) httpContentFallback(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" || reservedAPINames[parts[1]] {
		www.PanicNotFound()
	}
	id, err := s.Resolver.Resolve(r)
	if err != nil {
		panic(err)
	}
	contentType := parts[1]

	switch {
	case len(parts) == 2 && r.Method == "GET":
		s.httpContentList(w, r, contentType, id)
	case len(parts) == 2 && r.Method == "POST":
		s.httpContentCreate(w, r, contentType, id)
	case len(parts) == 4 && parts[2] == "duplicate" && r.Method == "POST":
		s.httpContentDuplicate(w, r, contentType, parts[3], id)
	case len(parts) == 4 && parts[3] == "ownership" && r.Method == "GET":
		s.httpContentOwnership(w, r, contentType, parts[2], id)
	case len(parts) == 3 && r.Method == "GET":
		s.httpContentGet(w, r, contentType, parts[2], id)
	case len(parts) == 3 && r.Method == "PUT":
		s.httpContentUpdate(w, r, contentType, parts[2], id)
	case len(parts) == 3 && r.Method == "DELETE":
		s.httpContentDelete(w, r, contentType, parts[2], id)
	default:
		www.PanicNotFound()
	}
}

// resolvePlural maps the caller-facing content-type name onto Strapi's
// canonical plural, failing loudly rather than guessing.
func (s *Server) resolvePlural(contentType string, id *identity.Identity) string {
	plural, err := s.Strapi.ResolvePlural(contentType, id.Role)
	checkUpstream(err)
	return plural
}

// requireWriter rejects read-only roles on mutating operations.
func requireWriter(id *identity.Identity) {
	if !id.Role.CanWrite() {
		www.PanicForbiddenf("Role '%v' is read-only", id.Role)
	}
}

// requireOwnerForAuthor enforces the author restriction: authors may only
// modify items they created, per the audit log's earliest-creation record.
// contentID is the canonical id from canonicalContentID; an empty id (the
// item could not be fetched) is treated as not owned.
func (s *Server) requireOwnerForAuthor(contentID string, id *identity.Identity) {
	if id.Role != defs.RoleAuthor {
		return
	}
	if !s.Users.IsOwner(contentID, id.UserID) {
		www.PanicForbiddenf("Authors may only modify their own content")
	}
}

// canonicalContentID fetches the addressed item and returns its stable id
// (documentId preferred). An item can be addressed by either its numeric id
// or its documentId, but the audit log must key every entry for one item
// under a single id, so ownership lookups and audit writes go through here
// first. Returns "" when the item cannot be fetched.
func (s *Server) canonicalContentID(plural, itemID string, id *identity.Identity) string {
	body, err := s.Strapi.FetchItem(plural, itemID, id.Role)
	if err != nil {
		return ""
	}
	canonical, _ := extractItemIdentity(body)
	return canonical
}

func (s *Server) httpContentList(w http.ResponseWriter, r *http.Request, contentType string, id *identity.Identity) {
	plural := s.resolvePlural(contentType, id)
	path := "/api/" + plural
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	body, err := s.Strapi.Forward("GET", path, nil, id.Role)
	checkUpstream(err)
	www.SendJSONRaw(w, string(body))
}

func (s *Server) httpContentCreate(w http.ResponseWriter, r *http.Request, contentType string, id *identity.Identity) {
	requireWriter(id)
	plural := s.resolvePlural(contentType, id)
	reqBody := www.ReadLimited(w, r, maxContentBodyBytes)
	body, err := s.Strapi.Forward("POST", "/api/"+plural, reqBody, id.Role)
	checkUpstream(err)
	s.auditAsync(body, userdb.AuditActionCreated, contentType, id)
	www.SendJSONRaw(w, string(body))
}

func (s *Server) httpContentGet(w http.ResponseWriter, r *http.Request, contentType, itemID string, id *identity.Identity) {
	plural := s.resolvePlural(contentType, id)
	body, err := s.Strapi.FetchItem(plural, itemID, id.Role)
	checkUpstream(err)
	www.SendJSONRaw(w, string(body))
}

func (s *Server) httpContentUpdate(w http.ResponseWriter, r *http.Request, contentType, itemID string, id *identity.Identity) {
	requireWriter(id)
	plural := s.resolvePlural(contentType, id)
	canonical := s.canonicalContentID(plural, itemID, id)
	s.requireOwnerForAuthor(canonical, id)
	reqBody := www.ReadLimited(w, r, maxContentBodyBytes)
	body, err := s.Strapi.Forward("PUT", fmt.Sprintf("/api/%v/%v", plural, itemID), reqBody, id.Role)
	checkUpstream(err)
	if canonical == "" {
		canonical = itemID
	}
	s.auditItemAsync(canonical, userdb.AuditActionUpdated, contentType, id)
	www.SendJSONRaw(w, string(body))
}

func (s *Server) httpContentDelete(w http.ResponseWriter, r *http.Request, contentType, itemID string, id *identity.Identity) {
	requireWriter(id)
	plural := s.resolvePlural(contentType, id)
	canonical := s.canonicalContentID(plural, itemID, id)
	s.requireOwnerForAuthor(canonical, id)
	body, err := s.Strapi.Forward("DELETE", fmt.Sprintf("/api/%v/%v", plural, itemID), nil, id.Role)
	checkUpstream(err)
	if canonical == "" {
		canonical = itemID
	}
	s.auditItemAsync(canonical, userdb.AuditActionDeleted, contentType, id)
	if len(body) == 0 {
		www.SendJSON(w, map[string]any{"deleted": itemID})
		return
	}
	www.SendJSONRaw(w, string(body))
}

// httpContentDuplicate fetches an item and creates a copy of its attributes.
// The copy belongs to whoever duplicated it.
func (s *Server) httpContentDuplicate(w http.ResponseWriter, r *http.Request, contentType, itemID string, id *identity.Identity) {
	requireWriter(id)
	plural := s.resolvePlural(contentType, id)
	original, err := s.Strapi.FetchItem(plural, itemID, id.Role)
	checkUpstream(err)
	attrs, err := strapiItemAttributesForCopy(original)
	checkUpstream(err)
	body, err := s.Strapi.ForwardJSON("POST", "/api/"+plural, map[string]any{"data": attrs}, id.Role)
	checkUpstream(err)
	s.auditAsync(body, userdb.AuditActionCreated, contentType, id)
	www.SendJSONRaw(w, string(body))
}

// httpContentOwnership reports who created the addressed item. A failure to
// resolve the item (unknown type, upstream error, no such item) is not an
// error here: the answer is simply "no owner".
func (s *Server) httpContentOwnership(w http.ResponseWriter, r *http.Request, contentType, itemID string, id *identity.Identity) {
	owner := int64(0)
	if plural, err := s.Strapi.ResolvePlural(contentType, id.Role); err == nil {
		if canonical := s.canonicalContentID(plural, itemID, id); canonical != "" {
			owner = s.Users.ContentOwner(canonical)
		}
	}
	resp := map[string]any{
		"isOwner": owner != 0 && owner == id.UserID,
	}
	if owner != 0 {
		resp["owner"] = owner
	} else {
		resp["owner"] = nil
	}
	www.SendJSON(w, resp)
}

// auditAsync extracts the item id from an upstream response and appends an
// audit entry. Strictly fire-and-forget: runs on its own goroutine and all
// failures are logged and discarded.
func (s *Server) auditAsync(upstreamBody []byte, action, contentType string, id *identity.Identity) {
	contentID, contentName := extractItemIdentity(upstreamBody)
	if contentID == "" {
		s.Log.Warnf("Audit (%v %v): upstream response carries no item id", action, contentType)
		return
	}
	userID := id.UserID
	go s.Users.AppendAudit(contentID, action, userID, contentType, contentName)
}

func (s *Server) auditItemAsync(contentID, action, contentType string, id *identity.Identity) {
	userID := id.UserID
	go s.Users.AppendAudit(contentID, action, userID, contentType, "")
}

// extractItemIdentity digs the stable item id (documentId preferred, numeric
// id fallback) and a display name out of an upstream item response.
func extractItemIdentity(body []byte) (contentID, contentName string) {
	envelope := struct {
		Data struct {
			ID         json.Number `json:"id"`
			DocumentID string      `json:"documentId"`
			Title      string      `json:"title"`
			Name       string      `json:"name"`
			Attributes struct {
				Title string `json:"title"`
				Name  string `json:"name"`
			} `json:"attributes"`
		} `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", ""
	}
	contentID = envelope.Data.DocumentID
	if contentID == "" {
		contentID = envelope.Data.ID.String()
		if contentID == "" || contentID == "0" {
			contentID = ""
		}
	}
	contentName = envelope.Data.Title
	if contentName == "" {
		contentName = envelope.Data.Name
	}
	if contentName == "" {
		contentName = envelope.Data.Attributes.Title
	}
	if contentName == "" {
		contentName = envelope.Data.Attributes.Name
	}
	return contentID, contentName
}

// strapiItemAttributesForCopy strips the identity fields Strapi refuses on
// create, so the duplicate is a clean insert.
func strapiItemAttributesForCopy(body []byte) (map[string]any, error) {
	attrs, err := strapi.ItemAttributes(body)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"id", "documentId", "createdAt", "updatedAt", "publishedAt"} {
		delete(attrs, field)
	}
	return attrs, nil
}
