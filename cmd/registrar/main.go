// Package main runs the community registrar service.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/communitylink/registrar/internal/app"
	"github.com/communitylink/registrar/internal/app/httpapi"
	"github.com/communitylink/registrar/internal/app/services/registration"
	"github.com/communitylink/registrar/internal/app/storage/postgres"
	redisstore "github.com/communitylink/registrar/internal/app/storage/redis"
	"github.com/communitylink/registrar/internal/chain"
	"github.com/communitylink/registrar/internal/config"
	"github.com/communitylink/registrar/internal/custody"
	"github.com/communitylink/registrar/internal/identity"
	"github.com/communitylink/registrar/internal/logging"
	"github.com/communitylink/registrar/internal/metrics"
	"github.com/communitylink/registrar/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	// .env is optional; environment variables override file values either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "registrar",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	stores, cleanup, err := buildStores(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer cleanup()

	custodyClient, err := custody.NewClient(custody.Config{
		BaseURL: cfg.Custody.BaseURL,
		APIKey:  cfg.Custody.APIKey,
		Timeout: cfg.Custody.Timeout,
	})
	if err != nil {
		log.Fatalf("init custody client: %v", err)
	}

	var submitter registration.ChainSubmitter
	if cfg.Chain.Enabled {
		chainClient, err := chain.NewClient(chain.Config{
			BaseURL: cfg.Chain.BaseURL,
			Timeout: cfg.Chain.Timeout,
		})
		if err != nil {
			log.Fatalf("init chain client: %v", err)
		}
		signer, err := chain.NewSigner(cfg.Chain.OperatorKeyHex)
		if err != nil {
			log.Fatalf("init operator signer: %v", err)
		}
		submitter, err = chain.NewSubmitter(chainClient, signer, cfg.Chain.ContractAddress, cfg.Chain.EntryFunction)
		if err != nil {
			log.Fatalf("init chain submitter: %v", err)
		}
		logger.WithField("operator", signer.Address()).Info("on-chain submission enabled")
	}

	m := metrics.New()

	application, err := app.New(app.Config{
		Stores:        stores,
		Custody:       custodyClient,
		Submitter:     submitter,
		PublicOrigin:  cfg.Server.PublicOrigin,
		TargetNetwork: cfg.Custody.TargetNetwork,
		Metrics:       m,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("init application: %v", err)
	}

	verifier := identity.NewVerifier(identity.Config{
		Audience: cfg.Identity.Audience,
		Secret:   cfg.Identity.Secret,
		DevMode:  cfg.Identity.DevMode,
	})
	if cfg.Identity.DevMode {
		logger.Warn("identity dev mode enabled; ID token signatures are not verified")
	}

	router := httpapi.NewHandler(application, logger)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	// Session auth runs before the rate limiter so authenticated requests are
	// limited per user rather than per IP.
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.NewCORS(cfg.Server.CORSOrigins).Handler)
	router.Use(middleware.NewSessionAuth(verifier, logger, httpapi.PublicPaths).Handler)
	router.Use(middleware.NewRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst, logger).Handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("registrar listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// buildStores selects the persistence backend from configuration. The
// returned cleanup releases backend resources.
func buildStores(cfg *config.Config) (app.Stores, func(), error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
		if err != nil {
			return app.Stores{}, nil, err
		}
		store := postgres.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Bootstrap(ctx); err != nil {
			db.Close()
			return app.Stores{}, nil, err
		}
		return app.Stores{Community: store, Wallet: store, Pending: store}, func() { db.Close() }, nil

	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := redisstore.New(ctx, redisstore.Config{
			Addr: cfg.Storage.RedisAddr,
			DB:   cfg.Storage.RedisDB,
		})
		if err != nil {
			return app.Stores{}, nil, err
		}
		return app.Stores{Community: store, Wallet: store, Pending: store}, func() { store.Close() }, nil

	default:
		// memory: app.New fills in the shared in-memory store.
		return app.Stores{}, func() {}, nil
	}
}
