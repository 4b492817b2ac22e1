package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"onboard/internal/audit"
	auditkafka "onboard/internal/audit/kafka"
	"onboard/internal/capability/simulated"
	"onboard/internal/jwttoken"
	"onboard/internal/platform/config"
	"onboard/internal/platform/httpserver"
	"onboard/internal/platform/logger"
	platformredis "onboard/internal/platform/redis"
	"onboard/internal/status"
	httptransport "onboard/internal/transport/http"
	"onboard/internal/verification"
	"onboard/internal/verification/providers/credithistory"
	"onboard/internal/verification/providers/creditscore"
	"onboard/internal/verification/providers/fraudrisk"
	"onboard/internal/workflow"
	"onboard/internal/workflow/metrics"
	"onboard/internal/workflow/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var executions workflow.ExecutionStore
	var applications workflow.ApplicationStore
	switch cfg.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		for _, schema := range []string{store.ExecutionsSchema, store.ApplicationsSchema} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				log.Error("apply schema", "error", err)
				os.Exit(1)
			}
		}
		executions = store.NewPostgresExecutionStore(db)
		applications = store.NewPostgresApplicationStore(db)
	case "redis":
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		executions = store.NewRedisExecutionStore(client.Client)
		applications = store.NewInMemoryApplicationStore()
	default:
		executions = store.NewInMemoryExecutionStore()
		applications = store.NewInMemoryApplicationStore()
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		streamSink, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer streamSink.Close()

		inbox := make(chan audit.Event, 256)
		auditOpts = append(auditOpts, audit.WithFanout(inbox))
		go func() {
			if err := audit.NewWorker(streamSink, inbox, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}
	publisher := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)

	coordinator := verification.NewCoordinator(
		[]verification.Check{
			creditscore.New(),
			fraudrisk.New(),
			credithistory.New(),
		},
		cfg.Timeouts.Verification,
		publisher,
		log,
		m,
	)

	workflowService := workflow.NewService(workflow.Deps{
		Executions:   executions,
		Applications: applications,
		Identity:     simulated.NewIdentityVerifier(),
		BankLinker:   simulated.NewBankLinker(),
		Verifier:     coordinator,
		Trail:        publisher,
		Logger:       log,
		Metrics:      m,
		Timeouts:     cfg.Timeouts,
	})
	statusService := status.NewService(executions, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	handler := httptransport.New(workflowService, statusService, log)
	router := httptransport.NewRouter(handler, jwtService)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting onboard server", "addr", cfg.Addr, "backend", cfg.Backend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
