package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/config"
	"sliceline.app/internal/factory"
	"sliceline.app/internal/httpapi"
	"sliceline.app/internal/logging"
	"sliceline.app/internal/obs"
	"sliceline.app/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logs := logging.New(logging.Config{
		Component:      cfg.LogComponent,
		AggregatorURL:  cfg.LokiURL,
		AggregatorUser: cfg.LokiUser,
		AggregatorKey:  cfg.LokiKey,
		FactoryURL:     cfg.FactoryURL,
		FactoryKey:     cfg.FactoryAPIKey,
	})

	if cfg.PGDSN == "" {
		log.Fatal("SLICELINE_PG_DSN is required")
	}
	store, err := pg.Open(cfg.PGDSN, pg.WithQueryLogger(logs))
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	codec, err := auth.NewCodec(cfg.AuthSecret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	authSvc, err := auth.NewService(store, store, codec, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	verifier := factory.New(cfg.FactoryURL, cfg.FactoryAPIKey, factory.WithCallLogger(logs))

	api := httpapi.New(authSvc, store, verifier,
		httpapi.WithLogging(logs),
		httpapi.WithReadyProbe(httpapi.ReadyProbe{DB: store.DB()}),
		httpapi.WithVersion(version),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting sliceline-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	logs.Flush()
	_ = store.Close()
	log.Println("Stopped")
}
