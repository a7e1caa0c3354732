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

	"github.com/shopstack-erp/shopstack/internal/app"
	"github.com/shopstack-erp/shopstack/internal/inventory"
	"github.com/shopstack-erp/shopstack/internal/invoice"
	"github.com/shopstack-erp/shopstack/internal/masterdata"
	"github.com/shopstack-erp/shopstack/internal/platform/cache"
	"github.com/shopstack-erp/shopstack/internal/platform/db"
	"github.com/shopstack-erp/shopstack/internal/sales"
	"github.com/shopstack-erp/shopstack/internal/sequence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("connect mongo", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", slog.Any("error", err))
		}
	}()

	database := client.Database(cfg.MongoDB)
	transactional := db.SupportsTransactions(ctx, client)
	runner := db.NewRunner(client, transactional, cfg.SaleOpTimeout, logger)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, name cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	seq := sequence.New(database)
	stockRepo := inventory.NewRepository(database)
	mdRepo := masterdata.NewRepository(database)
	saleRepo := sales.NewMongoRepository(database)

	if err := stockRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("ensure inventory indexes", slog.Any("error", err))
	}
	if err := saleRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("ensure sales indexes", slog.Any("error", err))
	}

	recalc := inventory.NewRecalculator(stockRepo, mdRepo, logger)
	engine := sales.NewEffectsEngine(stockRepo, mdRepo, transactional, logger)
	projector := invoice.NewProjector(database, seq)
	names := masterdata.NewNameCache(mdRepo, redisClient, cfg.NameCacheTTL)

	saleService := sales.NewService(saleRepo, seq, mdRepo, engine, projector, recalc, runner, names, logger)
	saleHandler := sales.NewHandler(saleService, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		SalesHandler: saleHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
