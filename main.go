package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ucouncil/portal/backend/go-services/handlers"
	"github.com/ucouncil/portal/backend/go-services/internal/app"
	"github.com/ucouncil/portal/backend/go-services/internal/archive"
	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/oidc"
	"github.com/ucouncil/portal/backend/go-services/internal/storage"
	"github.com/ucouncil/portal/backend/go-services/internal/users"
	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"github.com/ucouncil/portal/backend/go-services/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v redis=%v minio=%v lease_ttl=%s sweep_interval=%s",
		cfg.Keycloak.URL != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Editing.LeaseTTL, cfg.Editing.SweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probes := map[string]handlers.Probe{}

	// Redis is optional: shared rate limiting and the sweep guard
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis at %s", addr)
		}
		defer rdb.Close()
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var stores app.Stores
	var userSvc *users.Service
	mstores, client, closeMongo, err := app.MongoStores(ctx, cfg.MongoDB, 5)
	switch {
	case err == nil:
		defer closeMongo()
		stores = mstores
		userSvc = users.NewService(users.NewMongoUserRepository(client.Database(cfg.MongoDB.Database).Collection("users")))
		probes["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	case cfg.Server.Environment == "development":
		logger.Warnf("MongoDB unavailable (%v); using in-memory stores, edits are lost on restart", err)
		stores = app.MemoryStores()
		userSvc = users.NewService(users.NewMemoryUserRepository())
	default:
		logger.Fatalf("MongoDB unavailable: %v", err)
	}

	var archiver editing.Archiver
	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("revision archive disabled: %v", err)
		} else {
			archiver = archive.NewObjectArchiver(st)
			logger.Infof("archiving revisions to bucket %s", st.Bucket())
		}
	}

	srv := app.NewServer(app.Options{
		Config:   cfg,
		Stores:   stores,
		Users:    userSvc,
		Verifier: buildVerifier(ctx, cfg),
		Redis:    rdb,
		Archiver: archiver,
		Probes:   probes,
		Started:  startTime,
	})

	srv.Sweeper.Start(ctx)
	defer srv.Sweeper.Stop()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting council portal on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// buildVerifier accepts Keycloak ID tokens and, when JWT_SECRET is set,
// portal-minted HS256 tokens. Nil means authentication is off.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	var chain oidc.ChainVerifier
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		issuer := oidc.KeycloakIssuer(cfg.Keycloak.URL, cfg.Keycloak.Realm)
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier for %s: %v", issuer, err)
		} else {
			chain = append(chain, ver)
		}
	}
	if cfg.JWT.Secret != "" {
		chain = append(chain, oidc.NewHMACVerifier(cfg.JWT.Secret))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}
