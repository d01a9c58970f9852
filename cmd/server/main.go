package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpadapter "prospect/internal/adapters/http"
	"prospect/internal/adapters/memory"
	pg "prospect/internal/adapters/postgres"
	"prospect/internal/adapters/redisq"
	"prospect/internal/adapters/webhook"
	"prospect/internal/config"
	"prospect/internal/logging"
	"prospect/internal/ports"
	"prospect/internal/scoring"
	oppsvc "prospect/internal/services/opportunities"
	reviewsvc "prospect/internal/services/review"
	sesssvc "prospect/internal/services/sessions"
	"prospect/internal/workers/deadlines"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("development", "info").Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories: Postgres when configured, in-memory otherwise.
	var (
		oppRepo  ports.OpportunityRepository
		sessRepo ports.SessionRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		if err := pg.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		oppRepo, sessRepo = db, db
		log.Info("postgres store ready")
	} else {
		store := memory.New()
		oppRepo, sessRepo = store, store
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Manufacturing trigger targets.
	var notifiers ports.MultiNotifier
	if cfg.RedisURL != "" {
		rq, err := redisq.Connect(ctx, cfg.RedisURL, cfg.ManufacturingStream)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer rq.Close()
		notifiers = append(notifiers, rq)
		log.WithField("stream", cfg.ManufacturingStream).Info("redis trigger stream ready")
	}
	if cfg.ManufacturingWebhookURL != "" {
		notifiers = append(notifiers, webhook.New(cfg.ManufacturingWebhookURL))
	}
	var notifier ports.Notifier = ports.NoopNotifier{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	opportunities := oppsvc.New(oppRepo, scoring.New(), cfg.DuplicateLookback(), log)
	sessions := sesssvc.New(sessRepo, oppRepo, notifier, log)
	review := reviewsvc.New(oppRepo, sessions, reviewsvc.Policy{
		CurrentPhase:   cfg.CurrentPhase,
		PaidValidation: cfg.EnablePaidValidation,
	}, log)

	srv := httpadapter.New(opportunities, review, sessions, log)
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Mount("/", srv.Routes())

	if cfg.SweepInterval > 0 {
		go deadlines.Run(ctx, sessRepo, sessions, cfg.SweepInterval, log)
		log.WithField("interval", cfg.SweepInterval).Info("deadline sweeper started")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.WithField("addr", cfg.ListenAddr).Info("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	}
}
