// Package server wires the credential-proxy core into an HTTP service.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/config"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/session"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/strapi"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

type Server struct {
	Log      logs.Log
	Config   *config.Config
	Users    *userdb.UserDB
	Sessions *session.Registry
	Strapi   *strapi.Client
	Signer   *identity.TokenSigner
	Resolver *identity.Resolver

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

// NewServer builds a server from a config file, with no overrides.
func NewServer(configFile string) (*Server, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logs.NewLog()
	if err != nil {
		return nil, err
	}
	return NewServerFromConfig(logger, cfg)
}

// NewServerFromConfig is split out from NewServer so that tests and the CLI
// can inject a logger and a config with overrides already applied.
func NewServerFromConfig(logger logs.Log, cfg *config.Config) (*Server, error) {
	flags := dbh.DBConnectFlags(0)
	if cfg.WipeDB {
		flags |= dbh.DBConnectFlagWipeDB
	}
	users, err := userdb.NewUserDB(logger, cfg.DB, flags)
	if err != nil {
		return nil, err
	}
	sessions := session.NewRegistry(logger, session.NewMemStore(), users)
	sessions.StartSweeper(time.Duration(cfg.SessionSweepMinutes) * time.Minute)

	client := strapi.NewClient(logger, cfg.Strapi.BaseURL, cfg.RoleAPITokens(), cfg.RoleCredentials())
	signer := identity.NewTokenSigner(cfg.JWT.Secret, time.Duration(cfg.JWT.LifetimeHours)*time.Hour)

	// Platform header first, bearer session as fallback. A request carrying
	// both is authenticated via the platform header.
	resolver := identity.NewResolver(logger,
		identity.NewPlatformStrategy(logger, users, sessions),
		identity.NewSessionStrategy(signer),
	)

	s := &Server{
		Log:      logger,
		Config:   cfg,
		Users:    users,
		Sessions: sessions,
		Strapi:   client,
		Signer:   signer,
		Resolver: resolver,
	}
	s.setupHttpRoutes()
	return s, nil
}

// ListenHTTP blocks until the server is shut down.
func (s *Server) ListenHTTP() error {
	s.Log.Infof("Listening on %v", s.Config.Port)
	s.httpServer = &http.Server{
		Addr:    s.Config.Port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	s.Sessions.Close()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("Shutdown complete, with error: %v", err)
		} else {
			s.Log.Infof("Shutdown complete")
		}
	}
	s.Log.Close()
}
