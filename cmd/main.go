package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/victornm/icpcboard/internal/config"
	"github.com/victornm/icpcboard/internal/server"
)

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("Init server failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(); err != nil {
			slog.Error("server: session failed", "error", err)
		}
	}()

	select {
	case <-shutdown:
	case <-done:
	}
	s.Shutdown()
}

func loadConfig() (server.Config, error) {
	var c server.Config

	// The engine runs with defaults when no config is given: no ops
	// listener, no redis mirror.
	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		return c, nil
	}

	if err := config.Load(p, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
