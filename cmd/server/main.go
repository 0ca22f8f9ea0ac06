package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	assessmenthandler "verdant/internal/assessment/handler"
	assessmentmetrics "verdant/internal/assessment/metrics"
	assessmentservice "verdant/internal/assessment/service"
	assessmentstore "verdant/internal/assessment/store"
	"verdant/internal/artifact"
	"verdant/internal/audit"
	auditstore "verdant/internal/audit/store"
	"verdant/internal/billing"
	billinghandler "verdant/internal/billing/handler"
	billingmetrics "verdant/internal/billing/metrics"
	certhandler "verdant/internal/certificate/handler"
	certmetrics "verdant/internal/certificate/metrics"
	certservice "verdant/internal/certificate/service"
	certstore "verdant/internal/certificate/store"
	"verdant/internal/eligibility"
	"verdant/internal/identity"
	identitystore "verdant/internal/identity/store"
	"verdant/internal/notification"
	notifhandler "verdant/internal/notification/handler"
	notifservice "verdant/internal/notification/service"
	notifstore "verdant/internal/notification/store"
	"verdant/internal/platform/config"
	"verdant/internal/platform/httpserver"
	"verdant/internal/platform/logger"
	"verdant/internal/platform/metrics"
	platformredis "verdant/internal/platform/redis"
	"verdant/internal/ratelimit"
	reghandler "verdant/internal/registration/handler"
	regmetrics "verdant/internal/registration/metrics"
	regservice "verdant/internal/registration/service"
	regstore "verdant/internal/registration/store"
	scoringservice "verdant/internal/scoring/service"
	scoringstore "verdant/internal/scoring/store"
	"verdant/internal/storage"
	subservice "verdant/internal/subscription/service"
	substore "verdant/internal/subscription/store"
	httptransport "verdant/internal/transport/http"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthCheck{}

	var (
		regStore        regservice.Store
		auditStore      audit.Store
		accountStore    identity.AccountStore
		assessmentStore assessmentservice.Store
		scoreStore      scoringservice.Store
		certStore       certservice.Store
		subStore        subservice.Store
		notifStore      notifservice.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		health["db"] = db.PingContext

		regStore = regstore.NewPostgres(db)
		auditStore = auditstore.NewPostgres(db)
		accountStore = identitystore.NewPostgres(db)
		assessmentStore = assessmentstore.NewPostgres(db)
		scoreStore = scoringstore.NewPostgres(db)
		certStore = certstore.NewPostgres(db)
		subStore = substore.NewPostgres(db)
		notifStore = notifstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, running on in-memory stores")
		regStore = regstore.NewInMemory()
		auditStore = auditstore.NewInMemory()
		accountStore = identitystore.NewInMemory()
		assessmentStore = assessmentstore.NewInMemory()
		scoreStore = scoringstore.NewInMemory()
		certStore = certstore.NewInMemory()
		subStore = substore.NewInMemory()
		notifStore = notifstore.NewInMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
	}

	trail := audit.NewTrail(auditStore, log)
	go func() {
		if err := trail.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit trail worker stopped", "error", err)
		}
	}()

	accounts := identity.NewAccountService(accountStore, log)

	notifOpts := []notifservice.Option{notifservice.WithLogger(log)}
	if redisClient != nil {
		notifOpts = append(notifOpts, notifservice.WithCache(redisClient))
	}
	inApp := notifservice.New(notifStore, notifOpts...)
	notifier := notification.NewNotifier(inApp, notification.LogEmailSender{Logger: log}, cfg.AdminEmail, log)

	registrations := regservice.New(regStore, accounts,
		regservice.WithLogger(log),
		regservice.WithNotifier(notifier),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithAudit(trail),
	)

	scores := scoringservice.New(scoreStore, scoringservice.WithLogger(log))

	artifacts := artifact.NewClient(cfg.ArtifactBaseURL, artifact.WithLogger(log))

	assessments := assessmentservice.New(assessmentStore, registrations,
		assessmentservice.WithLogger(log),
		assessmentservice.WithMetrics(assessmentmetrics.New()),
		assessmentservice.WithDocumentGenerator(artifacts),
		assessmentservice.WithScorer(scores),
	)

	gate := eligibility.NewChecker(assessments, scores, cfg.Certification.MinimumScore, log)

	certificates := certservice.New(certStore, artifacts, assessments,
		certservice.WithLogger(log),
		certservice.WithMetrics(certmetrics.New()),
		certservice.WithNotifier(notifier),
		certservice.WithAudit(trail),
	)

	subscriptions := subservice.New(subStore,
		subservice.WithLogger(log),
		subservice.WithValidityYears(cfg.Certification.ValidityYears),
	)

	orchOpts := []billing.Option{
		billing.WithLogger(log),
		billing.WithMetrics(billingmetrics.New()),
	}
	if redisClient != nil {
		orchOpts = append(orchOpts, billing.WithDedup(redisClient))
	}
	if cfg.Certification.AutoGrading {
		orchOpts = append(orchOpts, billing.WithAutoGrading(gate, certificates))
	}
	orchestrator := billing.NewOrchestrator(cfg.Certification.Plans, registrations, subscriptions, orchOpts...)

	tokens := identity.NewTokenService(cfg.JWTSigningKey, "verdant")
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       metrics.New(),
		Validator:     identity.NewMiddlewareAdapter(tokens),
		Registrations: reghandler.New(registrations, log),
		Assessments:   assessmenthandler.New(assessments, log),
		Certificates:  certhandler.New(certificates, log),
		Notifications: notifhandler.New(inApp, log),
		Billing:       billinghandler.New(orchestrator, log),
		PublicLimiter: ratelimit.NewLimiter(cfg.PublicRateLimit.RPS, cfg.PublicRateLimit.Burst),
		HealthChecks:  health,
	})

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := billing.NewConsumer(cfg.Kafka, orchestrator, log)
		if err != nil {
			log.Error("failed to start kafka consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	go runExpirySweep(ctx, subscriptions, cfg.Certification.SweepInterval, log)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting verdant server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runExpirySweep periodically expires subscriptions whose end date passed.
func runExpirySweep(ctx context.Context, subscriptions *subservice.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := subscriptions.ExpireDue(ctx)
			if err != nil {
				log.ErrorContext(ctx, "subscription expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				log.InfoContext(ctx, "expired overdue subscriptions", "count", expired)
			}
		}
	}
}
