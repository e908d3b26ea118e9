package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/fortuna/stathistory/internal/api/rest"
	"github.com/fortuna/stathistory/internal/api/websocket"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/publisher"
	"github.com/fortuna/stathistory/internal/render"
	"github.com/fortuna/stathistory/internal/scheduler"
)

func runServe(parent context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Printf("Starting %s v%s", serviceName, serviceVersion)

	ctx, stop := signalContext(parent)
	defer stop()

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	checks := map[string]rest.HealthCheck{}
	var pub scheduler.Publisher
	if d.redis != nil {
		checks["redis"] = d.redis.HealthCheck
		pub = publisher.NewRedisPublisherFromClient(d.redis.Client())
		log.Println("✓ Redis publisher initialized")
	} else if p, err := publisher.NewRedisPublisher(cfg.RedisURL); err == nil {
		defer p.Close()
		pub = p
		log.Println("✓ Redis publisher initialized")
	} else {
		log.Printf("⚠️  Redis publisher unavailable: %v (stream publishing disabled)", err)
	}
	if d.db != nil {
		checks["postgres"] = d.db.HealthCheck
	}

	png := render.NewPNGExporter(nil)
	defer png.Close()
	renderer := render.NewRenderer(render.OptionsFrom(cfg), png)

	restServer := rest.NewServer(cfg.RESTPort, rest.NewHandler(cfg, d.builder, renderer, checks))
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("REST server error: %v", err)
		}
	}()
	log.Printf("✓ REST API server listening on :%s", cfg.RESTPort)

	wsServer := websocket.NewServer()
	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("WebSocket server error: %v", err)
		}
	}()
	log.Printf("✓ WebSocket server listening on :%s", cfg.WSPort)

	schedCfg := scheduler.DefaultConfig()
	if cfg.RefreshInterval > 0 {
		schedCfg.Interval = cfg.RefreshInterval
	}
	refresher := scheduler.NewRefresher(cfg, cfg.Watch, d.builder, pub, wsServer, schedCfg, nil)
	go refresher.Start(ctx)
	log.Printf("✓ Refresher watching %d targets", len(cfg.Watch))

	<-ctx.Done()
	log.Println("Shutting down gracefully...")
	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}
	log.Println("Stopped")
	return nil
}
