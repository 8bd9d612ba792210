package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bill-backend/internal/cache"
	"bill-backend/internal/config"
	"bill-backend/internal/database"
	"bill-backend/internal/db"
	"bill-backend/internal/handlers"
	"bill-backend/internal/health"
	h "bill-backend/internal/http"
	"bill-backend/internal/logger"
	"bill-backend/internal/middleware"
	"bill-backend/internal/repositories"
	"bill-backend/internal/services"
	"bill-backend/internal/yaadro"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	skipMigrations := flag.Bool("skip-migrations", false, "do not run database migrations on startup")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database is optional; without it the bill API answers 503
	var pool *pgxpool.Pool
	var billStore handlers.BillStore
	if cfg.DatabaseConfigured() {
		pool, err = db.Connect(ctx, cfg)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		log.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

		if !*skipMigrations {
			if err := database.NewMigrator(pool, database.Migrations()).RunMigrations(ctx); err != nil {
				log.Fatal("migrations failed", zap.Error(err))
			}
		}
		billStore = repositories.NewBillRepository(pool)
	} else {
		log.Warn("database not configured, bill API disabled")
	}

	var cacheHealthy func() bool
	if cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.TTL); err != nil {
			log.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			defer cache.Close()
		}
		cacheHealthy = cache.IsHealthy
	}

	var archiver handlers.Archiver
	if cfg.R2Configured() {
		s3Client, err := services.NewR2Client(ctx, cfg.R2.Endpoint, cfg.R2.AccessKey, cfg.R2.SecretKey, cfg.R2.Region)
		if err != nil {
			log.Warn("R2 archive disabled", zap.Error(err))
		} else {
			archiver = services.NewBackupService(s3Client, cfg.R2.Bucket)
			log.Info("R2 archive enabled", zap.String("bucket", cfg.R2.Bucket))
		}
	}

	orders := yaadro.NewClient(cfg.Yaadro.BaseURL, cfg.Yaadro.ShopID, cfg.Yaadro.Token, cfg.Yaadro.Timeout)
	if !orders.Configured() {
		log.Warn("Yaadro not configured, order proxy answers 503")
	} else {
		log.Info("Yaadro configured", zap.String("shop_id", cfg.Yaadro.ShopID), zap.String("token", logger.MaskSecret(cfg.Yaadro.Token)))
	}

	billHandler := handlers.NewBillHandler(billStore, archiver, services.NewReceiptService("", ""))
	router := h.NewRouter(
		billHandler,
		handlers.NewYaadroHandler(orders),
		handlers.NewHealthHandler(health.NewHealthChecker(pool, cacheHealthy)),
		middleware.NewRateLimiter(cfg.Server.OrderRateLimit, cfg.Server.OrderRateBurst),
	)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.RequestLogger(corsMiddleware(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	billHandler.Wait()
}
