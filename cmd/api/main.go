package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduhub/edupay/internal/api"
	"github.com/eduhub/edupay/internal/auth"
	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/db"
	"github.com/eduhub/edupay/internal/event"
	"github.com/eduhub/edupay/internal/gateway"
	"github.com/eduhub/edupay/internal/ledger"
	"github.com/eduhub/edupay/internal/logger"
	"github.com/eduhub/edupay/internal/metrics"
	"github.com/eduhub/edupay/internal/middleware"
	"github.com/eduhub/edupay/internal/repository/postgres"
	"github.com/eduhub/edupay/internal/services"
	"github.com/eduhub/edupay/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(pool)

	upstream := &http.Client{Timeout: cfg.UpstreamTimeout}
	registry := gateway.NewRegistry(
		gateway.NewPayU(cfg.PayU, cfg.CallbackURL),
		gateway.NewEasebuzz(cfg.Easebuzz, cfg.CallbackURL),
		gateway.NewCashfree(cfg.Cashfree, cfg.CallbackURL, upstream),
		gateway.NewEnkash(cfg.Enkash, cfg.CallbackURL, upstream),
		gateway.NewVegaah(cfg.Vegaah, cfg.CallbackURL, upstream),
	)

	var events ledger.Publisher = event.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := event.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		events = kp
	}

	ldg := ledger.New(repos.Transactions, repos.Carts, events, repos.AuditLogs, log)
	paymentSvc := services.NewPaymentService(repos.Transactions, repos.Carts, repos.Users, registry, ldg)

	wp := worker.NewPool(4)
	defer wp.Stop()
	rec := worker.NewReconciler(repos.Transactions, paymentSvc, wp, cfg.ReconcileInterval, cfg.ReconcileAfter, log)
	go rec.Run(ctx)

	metrics.Init()
	am := middleware.NewAuthMiddleware(auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer))
	r := api.NewRouter(cfg, paymentSvc, am)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
