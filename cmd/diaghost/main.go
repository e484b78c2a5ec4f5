// Command diaghost serves a diagnostics fixture at /fl_system_info so the
// System Check node can be driven without the real host application.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sysdiag/config"
	"sysdiag/hoststub"

	"github.com/joho/godotenv"
)

// Version will be set at build time
var Version = "dev"

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: unable to read .env: %v", err)
	}

	configPath := "data/config"
	if envPath := strings.TrimSpace(os.Getenv("SYSDIAG_CONFIG_PATH")); envPath != "" {
		configPath = envPath
	}
	cfg := config.Default()
	if loaded, err := config.Load(configPath); err == nil {
		cfg = loaded
	} else if !os.IsNotExist(err) {
		log.Fatalf("Error loading config: %v", err)
	}

	listen := flag.String("listen", cfg.Host.Listen, "Address to serve on")
	fixture := flag.String("fixture", cfg.Host.Fixture, "YAML fixture to replay")
	flag.Parse()

	srv, err := hoststub.New(*fixture, Version)
	if err != nil {
		log.Fatalf("Error loading fixture: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// SIGHUP re-reads the fixture in place.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := srv.Reload(); err != nil {
					log.Printf("Fixture reload failed: %v", err)
					continue
				}
				log.Printf("Fixture reloaded: %d entries", len(srv.Snapshot()))
			}
		}
	}()

	if err := srv.Run(ctx, *listen); err != nil {
		log.Fatalf("Host stub failed: %v", err)
	}
}
