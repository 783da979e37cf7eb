package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/config"
)

func main() {
	parser := argparse.NewParser("strapiproxy", "Role-based credential proxy for a Strapi CMS")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: "strapiproxy.json"})
	port := parser.String("", "port", &argparse.Options{Help: "Override the HTTP listen port (eg :8080)", Default: ""})
	wipeDB := parser.Flag("", "wipedb", &argparse.Options{Help: "Erase the database and start fresh (development only)"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	cfg.WipeDB = *wipeDB

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create log: %v\n", err)
		os.Exit(1)
	}
	s, err := server.NewServerFromConfig(logger, cfg)
	if err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}
	s.ListenForKillSignals()
	if err := s.ListenHTTP(); err != nil {
		s.Log.Errorf("HTTP server exited: %v", err)
	}
}
