package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pointstake/internal/auth"
	"pointstake/internal/client/polymarket/clob"
	"pointstake/internal/client/polymarket/gamma"
	"pointstake/internal/config"
	cronrunner "pointstake/internal/cron"
	"pointstake/internal/db"
	"pointstake/internal/estimator"
	"pointstake/internal/handler"
	"pointstake/internal/logger"
	gormrepository "pointstake/internal/repository/gorm"
	"pointstake/internal/service"
)

func main() {
	cfgPath := os.Getenv("PS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	gammaClient := gamma.NewClient(&http.Client{Timeout: cfg.Gamma.Timeout}, cfg.Gamma.BaseURL)
	clobClient := clob.NewClient(&http.Client{Timeout: cfg.Clob.Timeout}, cfg.Clob.BaseURL)
	store := gormrepository.New(dbConn.Gorm)

	apiKey := os.Getenv(cfg.Estimator.APIKeyEnv)
	if apiKey == "" {
		log.Warn("estimator API key is empty, decision cycles will fail",
			zap.String("env", cfg.Estimator.APIKeyEnv))
	}
	aiEstimator := estimator.NewOpenAIEstimator(apiKey, cfg.Estimator.Model, log)

	catalogService := &service.CatalogService{
		Store:  store,
		Gamma:  gammaClient,
		Cfg:    cfg.Catalog,
		Logger: log,
	}
	policyService := &service.PolicyService{
		Store:     store,
		Catalog:   catalogService,
		Prices:    clobClient,
		Estimator: aiEstimator,
		Cfg:       cfg.Policy,
		Logger:    log,
	}
	refresherService := &service.RefresherService{
		Store:  store,
		Prices: clobClient,
		Cfg:    cfg.Refresh,
		Logger: log,
	}
	settlementService := &service.SettlementService{
		Store:    store,
		Catalog:  catalogService,
		Outcomes: gammaClient,
		Cfg:      cfg.Settlement,
		Logger:   log,
	}
	ledgerService := &service.LedgerService{
		Store:  store,
		Prices: clobClient,
		Cfg:    cfg.Ledger,
		Logger: log,
	}

	nonces := auth.NewNonceStore(cfg.Auth.NonceTTL)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, issued tokens are forgeable")
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	(&handler.HealthHandler{DB: dbConn.Gorm}).Register(engine)
	(&handler.AuthHandler{Nonces: nonces, Tokens: tokens, Ledger: ledgerService}).Register(engine)
	(&handler.MarketsHandler{Store: store, Catalog: catalogService}).Register(engine)
	(&handler.StakesHandler{Tokens: tokens, Ledger: ledgerService}).Register(engine)
	(&handler.PointsHandler{Tokens: tokens, Ledger: ledgerService}).Register(engine)
	(&handler.LeaderboardHandler{Ledger: ledgerService}).Register(engine)
	(&handler.AdminHandler{
		AdminKey:   cfg.Auth.AdminKey,
		Catalog:    catalogService,
		Policy:     policyService,
		Refresher:  refresherService,
		Settlement: settlementService,
		Ledger:     ledgerService,
	}).Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		runner := cronrunner.New(log, ctx)
		register := func(spec, name string, job func(context.Context) error) {
			if _, err := runner.Add(spec, name, job); err != nil {
				log.Warn("cron register failed",
					zap.String("cycle", name),
					zap.Error(err))
			}
		}
		register(cfg.Cron.IngestSpec, "ingest", func(ctx context.Context) error {
			_, err := catalogService.SyncMarkets(ctx)
			return err
		})
		register(cfg.Cron.DecideSpec, "decide", func(ctx context.Context) error {
			_, err := policyService.RunDecisionCycle(ctx)
			return err
		})
		register(cfg.Cron.RefreshSpec, "refresh", func(ctx context.Context) error {
			_, err := refresherService.RefreshOpenPositionPrices(ctx)
			return err
		})
		register(cfg.Cron.SettleSpec, "settle", func(ctx context.Context) error {
			_, err := settlementService.RunSettlementCycle(ctx)
			return err
		})
		runner.Start()
		defer runner.Stop()

		if cfg.Cron.DecideOnStart {
			go func() {
				if _, err := catalogService.SyncMarkets(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("startup market sync failed", zap.Error(err))
				}
				if _, err := policyService.RunDecisionCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("startup decision cycle failed", zap.Error(err))
				}
			}()
		}
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Admin-Key")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
