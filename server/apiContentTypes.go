package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
)

func (s *Server) httpContentTypesList(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	types, err := s.Strapi.ListContentTypes(id.Role)
	checkUpstream(err)
	www.SendJSON(w, types)
}

func (s *Server) httpContentTypesGet(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	ct, err := s.Strapi.FindContentType(params.ByName("slug"), id.Role)
	checkUpstream(err)
	www.SendJSON(w, ct)
}

// httpContentTypesCreate forwards a schema definition to Strapi's
// content-type-builder. Admin only; Strapi restarts itself after a schema
// change, so callers should expect the upstream to be briefly unavailable.
func (s *Server) httpContentTypesCreate(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	reqBody := www.ReadLimited(w, r, maxContentBodyBytes)
	body, err := s.Strapi.Forward("POST", "/content-type-builder/content-types", reqBody, id.Role)
	checkUpstream(err)
	if len(body) == 0 {
		www.SendJSON(w, map[string]any{"status": "created"})
		return
	}
	www.SendJSONRaw(w, string(body))
}
