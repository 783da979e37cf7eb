package server

import (
	"errors"
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/session"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

const maxAuthBodyBytes = 64 * 1024

type registerRequestJSON struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type loginRequestJSON struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type authResponseJSON struct {
	JWT       string       `json:"jwt"`
	User      *userdb.User `json:"user"`
	SessionID string       `json:"sessionId"`
}

func (s *Server) httpAuthRegister(w http.ResponseWriter, r *http.Request) {
	req := registerRequestJSON{}
	www.ReadJSON(w, r, &req, maxAuthBodyBytes)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		www.PanicBadRequestf("username, email and password are required")
	}
	// Role is never caller-assignable; everybody starts as viewer.
	user, err := s.Users.CreateUser(req.Username, req.Email, req.Password, req.Firstname, req.Lastname, defs.RoleViewer)
	if err != nil {
		if errors.Is(err, userdb.ErrUserExists) {
			panic(www.Error(http.StatusConflict, err.Error()))
		}
		www.Check(err)
	}
	s.sendAuthResponse(w, user)
}

func (s *Server) httpAuthLogin(w http.ResponseWriter, r *http.Request) {
	req := loginRequestJSON{}
	www.ReadJSON(w, r, &req, maxAuthBodyBytes)
	user, err := s.Users.VerifyPassword(req.Identifier, req.Password)
	if err != nil {
		panic(www.Error(http.StatusUnauthorized, "Invalid credentials"))
	}
	if user.Blocked {
		panic(www.Error(http.StatusForbidden, "User is blocked"))
	}
	s.sendAuthResponse(w, user)
}

func (s *Server) sendAuthResponse(w http.ResponseWriter, user *userdb.User) {
	role := user.EffectiveRole()
	token, err := s.Signer.Issue(user.ID, user.Email, user.Username, role)
	www.Check(err)
	sessionID := s.Sessions.Create(user.ID, user.Email, user.Username, role, user.AuthKey, session.AuthTypeSession)
	www.SendJSON(w, &authResponseJSON{
		JWT:       token,
		User:      user,
		SessionID: sessionID,
	})
}

func (s *Server) httpAuthMe(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	www.SendJSON(w, id)
}

func (s *Server) httpAuthLogout(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	destroyed := s.Sessions.DestroyAllForUser(id.UserID)
	www.SendJSON(w, map[string]any{
		"message":           "Logged out",
		"sessionsDestroyed": destroyed,
	})
}

func (s *Server) httpAuthSessionStats(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	www.SendJSON(w, s.Sessions.Stats())
}
