package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/ogurasousui/codex-employee-api/internal/platform/config"
	pg "github.com/ogurasousui/codex-employee-api/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-employee-api/internal/platform/logger"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
	"github.com/ogurasousui/codex-employee-api/internal/platform/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	gin.SetMode(cfg.Server.Mode)

	isoLevel, err := pg.ParseIsolationLevel(cfg.Database.IsolationLevel)
	if err != nil {
		return err
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, pg.WithIsolationLevel(isoLevel))
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	employeeSvc := employee.NewService(employeeRepo, txManager)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg, err = metrics.NewRegistry()
		if err != nil {
			return err
		}
	}

	probe := server.NewHealthProbe(dbPool, cfg.Server.HealthInterval, log)
	router := server.NewRouter(server.RouterConfig{
		Logger:      log,
		Employees:   handler.NewEmployeeHandler(employeeSvc),
		Probe:       probe,
		Metrics:     reg,
		MetricsPath: cfg.Metrics.Path,
	})

	srv := server.New(server.Config{
		HTTPListenAddr:  cfg.Server.HTTPListenAddr,
		GRPCListenAddr:  cfg.Server.GRPCListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, probe, log)

	log.Info().
		Str("http_addr", cfg.Server.HTTPListenAddr).
		Str("grpc_addr", cfg.Server.GRPCListenAddr).
		Str("mode", cfg.Server.Mode).
		Msg("starting employee api")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
