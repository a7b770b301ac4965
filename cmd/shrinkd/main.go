// Command shrinkd serves the shrink HTTP API in the foreground. It is the
// same runtime as "shrink serve" without the rest of the CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"shrink/internal/config"
	"shrink/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	bind := flag.String("bind", "", "Override api.bind (host:port)")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, _, _, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: *logLevel,
		Bind:     *bind,
	}); err != nil {
		log.Printf("shrinkd: %v", err)
		os.Exit(1)
	}
}
