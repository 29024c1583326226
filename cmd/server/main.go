package main

import (
	"os"
	"os/signal"
	"syscall"

	"cafe-backend/internal/audit"
	"cafe-backend/internal/config"
	"cafe-backend/internal/database"
	"cafe-backend/internal/inventory"
	"cafe-backend/internal/logger"
	"cafe-backend/internal/scheduler"
	"cafe-backend/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	db, err := database.Init(cfg)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	app := server.New(server.Deps{Config: cfg, DB: db, Logger: log})

	sched := scheduler.New(
		cfg.LowStockCron,
		inventory.NewService(db, logger.Named(log, "inventory")),
		audit.NewService(db, logger.Named(log, "audit")),
		logger.Named(log, "scheduler"),
	)
	if err := sched.Start(); err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		sched.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("port", cfg.HTTPPort), zap.String("driver", cfg.DatabaseDriver))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
