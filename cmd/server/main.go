// Package main is the entry point for the zplanebank API server
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/james-see/zplanebank/pkg/api"
	"github.com/james-see/zplanebank/pkg/config"
)

func main() {
	configPath := flag.String("config", "zplanebank.toml", "Config file (TOML)")
	port := flag.Int("port", 0, "Server port (default from config)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	fmt.Printf("Starting zplanebank API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	if err := api.StartServer(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
