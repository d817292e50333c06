/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command tesserad runs the Tessera data-contract control plane: the
// HTTP API, its background webhook pipeline, and a Prometheus metrics
// endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/internal/config"
	"github.com/ashita-ai/tessera/internal/database"
	"github.com/ashita-ai/tessera/internal/httpapi"
	"github.com/ashita-ai/tessera/pkg/audit"
	"github.com/ashita-ai/tessera/pkg/auth"
	"github.com/ashita-ai/tessera/pkg/cache"
	"github.com/ashita-ai/tessera/pkg/contract"
	"github.com/ashita-ai/tessera/pkg/impact"
	"github.com/ashita-ai/tessera/pkg/metrics"
	"github.com/ashita-ai/tessera/pkg/proposal"
	"github.com/ashita-ai/tessera/pkg/ratelimit"
	"github.com/ashita-ai/tessera/pkg/schemadiff/validate"
	"github.com/ashita-ai/tessera/pkg/sync"
	"github.com/ashita-ai/tessera/pkg/webhook"
	"github.com/ashita-ai/tessera/pkg/webhook/slacknotify"
)

// shutdownTimeout bounds how long the server waits for in-flight requests
// to finish once a shutdown signal arrives.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("tesserad: load config: %w", err)
	}

	log, err := newLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("tesserad: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := database.Connect(ctx, cfg.DatabaseURL, database.DefaultPoolConfig(), log)
	if err != nil {
		return fmt.Errorf("tesserad: connect to database: %w", err)
	}

	cacheSvc := cache.New(cfg.RedisURL, log)
	impactEngine := impact.New(st, log)
	auditSvc := audit.New(st)
	syncSvc := sync.New(st, log)
	resolver := auth.NewResolver(st, cfg.BootstrapAPIKey)
	limiter := ratelimit.New(cfg.RateLimitPerMinute)
	schemaValidator := validate.New()

	webhookPipeline := webhook.New(st, webhook.Config{
		ReceiverURL:    cfg.WebhookURL,
		Secret:         cfg.WebhookSecret,
		AllowedHosts:   cfg.WebhookAllowedHosts,
		Environment:    cfg.Environment,
		AttemptTimeout: 30 * time.Second,
		DNSTimeout:     5 * time.Second,
	}, log)
	slackNotifier := slacknotify.New(cfg.SlackWebhookURL, log)
	notifier := newFanoutNotifier(webhookPipeline, slackNotifier, st, log)

	contractWorkflow := contract.New(st, impactEngine, notifier, cacheSvc, log)
	proposalWorkflow := proposal.New(st, webhookPipeline, cacheSvc, log)

	metricsServer := metrics.NewServer(cfg.MetricsAddr, log)
	metricsServer.StartAsync()
	defer metricsServer.Stop(context.Background()) //nolint:errcheck

	router := httpapi.NewRouter(httpapi.Config{
		Store:              st,
		Contracts:          contractWorkflow,
		Proposals:          proposalWorkflow,
		Impact:             impactEngine,
		Audit:              auditSvc,
		Sync:               syncSvc,
		Validator:          schemaValidator,
		Resolver:           resolver,
		Limiter:            limiter,
		Log:                log,
		Environment:        cfg.Environment,
		AuthDisabled:       cfg.AuthDisabled,
		CORSAllowedOrigins: []string{},
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("tesserad listening", zap.String("addr", cfg.ListenAddr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("tesserad: serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("tesserad: graceful shutdown: %w", err)
	}
	return nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
