// Command maintenance runs one-off data repair jobs against the SASM-IMS database.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/internal/repository"
	"github.com/noah-isme/sasm-ims-api/internal/service"
	"github.com/noah-isme/sasm-ims-api/pkg/config"
	"github.com/noah-isme/sasm-ims-api/pkg/database"
	"github.com/noah-isme/sasm-ims-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Error("failed to connect database", zap.Error(err))
		return 1
	}
	defer db.Close() //nolint:errcheck

	users := repository.NewUserRepository(db)
	svc := service.NewMaintenanceService(service.MaintenanceDeps{
		DB:           db,
		Schedules:    repository.NewScheduleRepository(db),
		Applications: repository.NewApplicationRepository(db),
		Scholars:     repository.NewScholarRepository(db),
		History:      repository.NewUserDataRepository(db),
		Users:        users,
		Audit:        users,
	}, cfg.Service.PeriodMonths, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommandLine(svc).run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logr.Error("maintenance command failed", zap.Error(err))
		}
		return 1
	}
	return 0
}
