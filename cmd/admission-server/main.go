package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-admission"
	"github.com/goliatone/go-admission/components/geo"
	"github.com/goliatone/go-admission/internal/config"
	"github.com/goliatone/go-admission/internal/logging"
	"github.com/goliatone/go-admission/internal/server"
	"github.com/goliatone/go-admission/pkg/client"
)

const (
	sweepEvery = 5 * time.Minute
	maxIdle    = 2 * time.Hour
)

var build = "dev"

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	envDir := flag.String("env-dir", ".", "directory holding .env files")
	flag.Parse()

	opts := []config.Option{config.WithDir(*envDir)}
	if *configFile != "" {
		opts = append(opts, config.WithFile(*configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.APIBaseURL == "" {
		log.Fatalf("config: ADMISSION_API_BASE_URL is required")
	}

	host, _ := os.Hostname()
	logger := logging.New(os.Stderr, logging.Settings{
		Env:          cfg.Env,
		Host:         host,
		Version:      build,
		RollbarToken: cfg.RollbarToken,
		Debug:        cfg.Debug,
	})
	if rl, ok := logger.(*logging.RollbarLogger); ok {
		defer rl.Flush()
	}

	store := server.NewStore()
	srv := server.New(
		server.ClientFactory(cfg.APIBaseURL, client.WithTimeout(cfg.RequestTimeout)),
		server.WithLogger(logger),
		server.WithStore(store),
		server.WithSessionOptions(admission.SessionOptions(admission.Settings{
			UploadsBaseURL:  cfg.UploadsBaseURL,
			DefaultCountry:  cfg.DefaultCountry,
			MinApplicantAge: cfg.MinApplicantAge,
			MaxRepeat:       cfg.MaxRepeat,
			Logger:          logger,
		})...),
		server.WithLocationOptions(geo.WithDefaultCountry(cfg.DefaultCountry)),
	)
	handler, err := srv.Router()
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Sweep(maxIdle); n > 0 {
					logger.Debug("server: swept idle sessions", n)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdown); err != nil {
			logger.Error("server: shutdown", err)
		}
	}()

	logger.Info("server: listening on " + cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server: listen", err)
		os.Exit(1)
	}
}
