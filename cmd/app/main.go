package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shapeup/internal/attendance"
	"shapeup/internal/calendar"
	"shapeup/internal/config"
	"shapeup/internal/db"
	"shapeup/internal/lock"
	"shapeup/internal/logger"
	"shapeup/internal/membership"
	"shapeup/internal/notify"
	"shapeup/internal/plan"
	"shapeup/internal/renewal"
	"shapeup/internal/server"
	"shapeup/internal/tracing"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Info("Starting shapeup", "timezone", cfg.Location.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, notifications will be dropped until it recovers", "error", err)
	}

	notes := notify.NewRepository(database)
	queue := notify.NewQueue(rdb)
	go notify.NewWorker(rdb, notes).Start(ctx)

	clock := calendar.SystemClock{Location: cfg.Location}
	locks := lock.NewKeyedMutex()
	tx := db.NewTransactor(database)
	plans := plan.NewService(plan.NewRepository(database))
	ledger := attendance.NewRepository()

	engine := membership.NewService(membership.Deps{
		Repo:       membership.NewRepository(),
		DB:         database,
		Tx:         tx,
		Plans:      plans,
		Attendance: ledger,
		Notifier:   queue,
		Clock:      clock,
		Locks:      locks,
	})
	checkIns := attendance.NewService(ledger, database, tx, engine, clock, locks)
	renewals := renewal.NewService(renewal.Deps{
		Repo:     renewal.NewRepository(),
		DB:       database,
		Tx:       tx,
		Members:  engine,
		Plans:    plans,
		Notifier: queue,
		Clock:    clock,
		Locks:    locks,
	})

	srv := server.New(cfg, server.Handlers{
		Members:       membership.NewHandler(engine),
		Attendance:    attendance.NewHandler(checkIns),
		Renewals:      renewal.NewHandler(renewals),
		Plans:         plan.NewHandler(plans),
		Notifications: notify.NewHandler(notify.NewInbox(notes), notify.AdminRecipient),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("Error flushing traces: %v", err)
	}

	logger.Info("Server stopped")
}
