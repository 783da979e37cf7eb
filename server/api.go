package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/strapi"
)

type authenticatedHandler func(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	// protected creates an HTTP handler that is accessible only with authentication
	protected := func(method, route string, handle authenticatedHandler) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			id, err := s.Resolver.Resolve(r)
			if err != nil {
				panic(err)
			}
			handle(w, r, params, id)
		})
	}

	// admin is protected plus an admin-role gate
	admin := func(method, route string, handle authenticatedHandler) {
		protected(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
			if id.Role != defs.RoleAdmin {
				www.PanicForbidden()
			}
			handle(w, r, params, id)
		})
	}

	// ratelimited creates an unauthenticated handler with a per-IP rate limit
	ratelimited := func(method, route string, handle http.HandlerFunc, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(handle).ServeHTTP(w, r)
		})
	}

	www.Handle(s.Log, router, "GET", "/api/ping", s.httpPing)

	ratelimited("POST", "/api/auth/register", s.httpAuthRegister, 5, time.Minute)
	ratelimited("POST", "/api/auth/login", s.httpAuthLogin, 10, time.Minute)
	protected("GET", "/api/auth/me", s.httpAuthMe)
	protected("POST", "/api/auth/logout", s.httpAuthLogout)
	admin("GET", "/api/auth/sessions/stats", s.httpAuthSessionStats)

	protected("GET", "/api/content-types", s.httpContentTypesList)
	admin("POST", "/api/content-types", s.httpContentTypesCreate)
	protected("GET", "/api/content-types/:slug", s.httpContentTypesGet)

	protected("GET", "/api/dashboard/stats", s.httpDashboardStats)

	// Generic content proxy: /api/:contentType[...]. httprouter refuses to
	// mix a :contentType wildcard with the fixed /api/ routes above, so the
	// generic surface hangs off the router's NotFound handler instead.
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		www.RunProtected(s.Log, w, r, func() {
			s.httpContentFallback(w, r)
		})
	})

	s.httpRouter = router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// checkUpstream translates the strapi package's error taxonomy into the
// HTTP errors our panic handler understands, preserving the upstream's own
// status code where one exists.
func checkUpstream(err error) {
	if err == nil {
		return
	}
	var upstream *strapi.UpstreamError
	var authErr *strapi.AuthError
	var schemaErr *strapi.SchemaError
	var configErr *strapi.ConfigurationError
	switch {
	case errors.Is(err, strapi.ErrNotFound):
		panic(www.Error(http.StatusNotFound, err.Error()))
	case errors.As(err, &upstream):
		panic(www.Error(upstream.StatusCode, upstream.Message))
	case errors.As(err, &schemaErr):
		panic(www.Error(http.StatusBadGateway, schemaErr.Error()))
	case errors.As(err, &authErr):
		panic(www.Error(http.StatusBadGateway, authErr.Error()))
	case errors.As(err, &configErr):
		panic(www.Error(http.StatusInternalServerError, configErr.Error()))
	default:
		panic(www.Error(http.StatusInternalServerError, err.Error()))
	}
}
