package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/jobledger/backend/internal/config"
	"github.com/jobledger/backend/internal/dashboard"
	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/jobs"
	"github.com/jobledger/backend/internal/ledger"
	"github.com/jobledger/backend/internal/repository"
	"github.com/jobledger/backend/internal/router"
	"github.com/jobledger/backend/internal/services"
	"github.com/jobledger/backend/internal/store"
	"github.com/jobledger/backend/internal/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to a YAML config file (defaults to $JOBLEDGER_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Invalid DATABASE_URL", "error", err)
		os.Exit(1)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := store.EnsureSchema(ctx, pool); err != nil {
		slog.Error("Schema setup failed", "error", err)
		os.Exit(1)
	}

	rulesValidator, err := services.NewRulesValidator()
	if err != nil {
		slog.Error("Rules validator init failed", "error", err)
		os.Exit(1)
	}
	defaultRules, err := rulesValidator.Parse(cfg.DefaultRules)
	if err != nil {
		slog.Error("Invalid default_rules in config", "error", err)
		os.Exit(1)
	}

	// Repositories
	settingsRepo := repository.NewSettingsRepo(pool, rulesValidator)
	workerRepo := repository.NewWorkerRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	expenseRepo := repository.NewExpenseRepo(pool)
	jobsRepo := jobs.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)

	created, err := settingsRepo.EnsureActive(ctx, "Default", defaultRules)
	if err != nil {
		slog.Error("Failed to seed settings", "error", err)
		os.Exit(1)
	}
	if created {
		slog.Info("Seeded default settings version")
	}

	// Services
	aggregator := &services.Aggregator{
		Jobs:      jobsRepo,
		Workers:   workerRepo,
		Payments:  paymentRepo,
		Expenses:  expenseRepo,
		Settings:  settingsRepo,
		Snapshots: ledgerRepo,
	}
	ledgerSvc := ledger.NewService(ledgerRepo, jobsRepo, settingsRepo, logger)
	generator := services.NewPaymentGenerator(jobsRepo, paymentRepo, logger)
	jobsSvc := jobs.NewService(jobsRepo, settingsRepo, generator, ledgerRepo, paymentRepo, ledgerSvc, logger)
	workersSvc := workers.NewService(workerRepo, aggregator, paymentRepo)

	api := router.New(router.Handlers{
		Jobs:      jobs.NewHandler(jobsSvc, logger),
		Workers:   workers.NewHandler(workersSvc, logger),
		Payments:  &handlers.PaymentHandler{Payments: paymentRepo, Logger: logger},
		Expenses:  &handlers.ExpenseHandler{Expenses: expenseRepo, Logger: logger},
		Settings:  &handlers.SettingsHandler{Settings: settingsRepo, Rules: rulesValidator, Logger: logger},
		Dashboard: dashboard.NewHandler(aggregator, logger),
	}, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(api)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
