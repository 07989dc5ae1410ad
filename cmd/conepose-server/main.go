// conepose-server: cone position service
// Estimates over HTTP and WebSocket, streams results to dashboards and
// optionally publishes them to Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-conepose/internal/config"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/sink"
	"github.com/teslashibe/go-conepose/pkg/web"
)

var (
	version = "1.0.0"
	port    = flag.String("port", "", "HTTP server port (default $CONEPOSE_PORT or 8090)")
	debug   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	fmt.Println()
	fmt.Println("🔺 conepose v" + version)
	fmt.Println("   Monocular cone position service")
	fmt.Println()

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Error("publisher init failed", "error", err)
		os.Exit(1)
	}

	s, err := web.NewServer(web.Options{
		Port:      cfg.Port,
		Version:   version,
		Camera:    cfg.Camera,
		Geometry:  cfg.Geometry,
		Publisher: publisher,
		Debug:     *debug,
	})
	if err != nil {
		log.Error("server init failed", "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("endpoints",
			"health", fmt.Sprintf("http://localhost:%s/health", cfg.Port),
			"estimate", fmt.Sprintf("http://localhost:%s/api/estimate", cfg.Port),
			"sessions", fmt.Sprintf("ws://localhost:%s/ws/estimate", cfg.Port),
			"results", fmt.Sprintf("ws://localhost:%s/ws/results", cfg.Port))

		if err := s.Start(); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("publisher close error", "error", err)
	}
	log.Info("server stopped")
}

// newPublisher picks Kafka when brokers are configured and falls back to
// logging every result.
func newPublisher(cfg config.Config) (sink.Publisher, error) {
	if !cfg.Kafka.Enabled() {
		log.Info("kafka disabled, logging results")
		return sink.NewLogPublisher(), nil
	}
	return sink.NewKafkaPublisher(cfg.Kafka)
}
