package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/employee-provisioning/internal/adapters/enrollment"
	"github.com/ogurasousui/employee-provisioning/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-provisioning/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
	"github.com/ogurasousui/employee-provisioning/internal/platform/config"
	pg "github.com/ogurasousui/employee-provisioning/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"github.com/ogurasousui/employee-provisioning/internal/platform/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	txManager := pg.NewTransactionManager(dbPool, pg.WithTxLogger(zl))
	enroller := enrollment.NewProcessEnroller(cfg.Enrollment, zl)
	employeeSvc := employee.NewService(employeeRepo, enroller, nil, txManager, zl)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(
		handler.NewEmployeeHandler(employeeSvc, zl),
		handler.NewHealthHandler(dbPool, zl),
		handler.RouterOptions{AllowedOrigins: cfg.Server.CORSAllowedOrigins, Logger: zl},
	)

	httpServer := server.NewHTTP(cfg.Server.ListenAddr, router, cfg.Server.ShutdownTimeout)
	grpcServer := server.New(cfg.Server.GRPCListenAddr)
	reporter := server.NewHealthReporter(dbPool, grpcServer.Health(), cfg.Database.HealthCheck, zl)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		return httpServer.Run(gctx)
	})
	g.Go(func() error {
		zl.Info("gRPC health server listening", zap.String("addr", cfg.Server.GRPCListenAddr))
		return grpcServer.Run(gctx)
	})
	g.Go(func() error {
		return reporter.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zl.Info("server stopped")
	return nil
}
