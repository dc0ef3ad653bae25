package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/goliatone/go-admission"
	"github.com/goliatone/go-admission/internal/config"
	"github.com/goliatone/go-admission/internal/logging"
	"github.com/goliatone/go-admission/pkg/client"
	"github.com/goliatone/go-admission/pkg/prompt"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	envDir := flag.String("env-dir", ".", "directory holding .env files")
	token := flag.String("token", os.Getenv("ADMISSION_TOKEN"), "bearer token for the admission API")
	cookie := flag.String("cookie", "", "session cookie as name=value")
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

	logger := logging.New(os.Stderr, logging.Settings{Env: cfg.Env, Debug: cfg.Debug, RollbarToken: cfg.RollbarToken})

	clientOpts := []client.Option{client.WithTimeout(cfg.RequestTimeout), client.WithBearerToken(*token)}
	if name, value, ok := strings.Cut(*cookie, "="); ok {
		clientOpts = append(clientOpts, client.WithCookies(&http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}))
	}
	backend, err := admission.NewClient(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	session := admission.NewSession(backend, admission.Settings{
		UploadsBaseURL:  cfg.UploadsBaseURL,
		DefaultCountry:  cfg.DefaultCountry,
		MinApplicantAge: cfg.MinApplicantAge,
		MaxRepeat:       cfg.MaxRepeat,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := session.Load(ctx); err != nil {
		log.Fatalf("load: %v", err)
	}

	wizard := prompt.New(session, prompt.WithPromptDriver(prompt.NewSurveyDriver(os.Stdout)))
	result, err := wizard.Run(ctx)
	switch {
	case errors.Is(err, prompt.ErrAborted):
		fmt.Println("Application not submitted. Your personal details are saved.")
		os.Exit(1)
	case err != nil:
		log.Fatalf("wizard: %v", err)
	}
	fmt.Printf("%s (application %s)\n", result.Message, result.ApplicationID)
}
