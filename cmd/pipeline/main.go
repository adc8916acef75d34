package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketpipe/internal/client/polymarket/gamma"
	"marketpipe/internal/config"
	cronrunner "marketpipe/internal/cron"
	"marketpipe/internal/db"
	"marketpipe/internal/handler"
	"marketpipe/internal/logger"
	"marketpipe/internal/monitor"
	gormrepository "marketpipe/internal/repository/gorm"
	"marketpipe/internal/service"
)

func main() {
	cfgPath := os.Getenv("MP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("MP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	gammaHTTP := &http.Client{Timeout: cfg.Gamma.Timeout}
	gammaClient := gamma.NewClientWithRetry(gammaHTTP, cfg.Gamma.BaseURL, cfg.Gamma.MaxRetries, cfg.Gamma.RetryBackoff)
	store := gormrepository.New(dbConn.Gorm)

	ingestor := &service.IngestService{
		Store:      store,
		Gamma:      gammaClient,
		Logger:     logger,
		Limit:      cfg.Ingest.Limit,
		ActiveOnly: cfg.Ingest.ActiveOnly,
		Keywords:   cfg.Ingest.Keywords,
	}
	trades := &service.TradeService{Store: store, Logger: logger}
	healthMonitor := &monitor.Monitor{
		Store:                store,
		Stats:                ingestor.Stats,
		Logger:               logger,
		FreshWithin:          cfg.Monitor.FreshWithin,
		StaleWithin:          cfg.Monitor.StaleWithin,
		SuccessRateThreshold: cfg.Monitor.SuccessRateThreshold,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	pipelineHandler := &handler.PipelineHandler{Monitor: healthMonitor, Ingestor: ingestor}
	pipelineHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store, Gamma: gammaClient}
	marketHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Repo: store, Trades: trades}
	tradeHandler.Register(engine)
	signalHandler := &handler.SignalHandler{Repo: store}
	signalHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Ingest, func(ctx context.Context) {
			result, err := ingestor.RunCycle(ctx)
			if err != nil {
				logger.Warn("cron ingestion failed", zap.Error(err))
				return
			}
			logger.Info("cron ingestion ok",
				zap.Int("fetched", result.Fetched),
				zap.Int("matched", result.Matched),
				zap.Int("stored", result.Stored),
				zap.Int("record_errors", result.RecordErrors),
			)
		})
		if err != nil {
			logger.Fatal("cron ingest schedule invalid", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
