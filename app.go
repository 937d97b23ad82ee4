package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/config"
	"github.com/yeremiapane/fnb-kiosk/controllers"
	"github.com/yeremiapane/fnb-kiosk/database"
	"github.com/yeremiapane/fnb-kiosk/events"
	"github.com/yeremiapane/fnb-kiosk/kds"
	"github.com/yeremiapane/fnb-kiosk/metrics"
	"github.com/yeremiapane/fnb-kiosk/middlewares"
	"github.com/yeremiapane/fnb-kiosk/router"
	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/storage"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

type prober interface {
	Probe(ctx context.Context) error
}

// openStores builds the backends named in STORAGE_CHAIN, in order. A backend
// without its connection setting is skipped; one that fails its first probe is
// kept and re-probed later. Memory always comes last.
func openStores(ctx context.Context, cfg *config.Config) []storage.OrderStore {
	var stores []storage.OrderStore
	add := func(s storage.OrderStore) {
		if p, ok := s.(prober); ok {
			probeCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
			err := p.Probe(probeCtx)
			cancel()
			if err != nil {
				utils.ErrorLogger.WithField("backend", s.Name()).Warnf("Backend not reachable yet: %v", err)
			}
		}
		stores = append(stores, s)
	}

	for _, name := range cfg.StorageChain {
		log := utils.InfoLogger.WithField("backend", name)
		switch name {
		case config.BackendMongo:
			if cfg.MongoURI == "" {
				log.Debug("MONGODB_URI not set, skipping")
				continue
			}
			s, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ProbeInterval)
			if err != nil {
				utils.ErrorLogger.WithField("backend", name).Errorf("Skipping backend: %v", err)
				continue
			}
			if err := s.EnsureIndexes(ctx); err != nil {
				utils.ErrorLogger.WithField("backend", name).Warnf("Index setup failed: %v", err)
			}
			add(s)

		case config.BackendPostgres:
			if cfg.PostgresURL == "" {
				log.Debug("POSTGRES_URL not set, skipping")
				continue
			}
			s, err := storage.NewPostgresStore(ctx, cfg.PostgresURL, cfg.ProbeInterval)
			if err != nil {
				utils.ErrorLogger.WithField("backend", name).Errorf("Skipping backend: %v", err)
				continue
			}
			if err := database.MigratePostgres(ctx, s.Pool()); err != nil {
				utils.ErrorLogger.WithField("backend", name).Warnf("Migration failed: %v", err)
			}
			add(s)

		case config.BackendSQL:
			db, err := config.OpenSQL(cfg)
			if err != nil {
				utils.ErrorLogger.WithField("backend", name).Errorf("Skipping backend: %v", err)
				continue
			}
			if db == nil {
				log.Debug("SQL_DSN not set, skipping")
				continue
			}
			if err := database.AutoMigrate(db); err != nil {
				utils.ErrorLogger.WithField("backend", name).Warnf("Migration failed: %v", err)
			}
			add(storage.NewSQLStore(db, cfg.SQLDriver, cfg.ProbeInterval))

		case config.BackendFile:
			if cfg.DataFile == "" {
				continue
			}
			add(storage.NewFileStore(cfg.DataFile, cfg.ProbeInterval))

		case config.BackendMemory:
			stores = append(stores, storage.NewMemoryStore())
		}
	}

	names := make([]string, 0, len(stores))
	for _, s := range stores {
		names = append(names, s.Name())
	}
	utils.InfoLogger.WithField("chain", names).Info("Storage chain ready")
	return stores
}

type app struct {
	cfg         *config.Config
	chain       *storage.Chain
	hub         *kds.Hub
	metrics     *metrics.Metrics
	publishers  events.Multi
	amqp        *events.AMQPPublisher
	scheduler   *services.Scheduler
	heartbeat   *services.Heartbeat
	rateLimiter *middlewares.RateLimiter
	blacklist   *utils.TokenBlacklist
	handler     *gin.Engine
}

func newApp(cfg *config.Config, stores []storage.OrderStore) *app {
	a := &app{
		cfg:         cfg,
		chain:       storage.NewChain(cfg.StorageTimeout, stores...),
		hub:         kds.NewHub(),
		metrics:     metrics.New(),
		scheduler:   services.NewScheduler(),
		rateLimiter: middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		blacklist:   utils.NewTokenBlacklist(),
	}
	a.chain.OnSwitch(a.metrics.SetActiveBackend)
	a.publishers = events.Multi{a.hub}

	// a.publishers is read on every publish so a broker connected after
	// construction is included
	pub := publisherFunc(func(ctx context.Context, e events.Event) error {
		return a.publishers.Publish(ctx, e)
	})

	orders := services.NewOrderService(a.chain, pub, a.metrics)
	proofs := services.NewProofService(orders, a.scheduler, services.ProofConfig{
		UploadDir:    cfg.UploadDir,
		CleanupDelay: cfg.ProofCleanupDelay,
	}, pub, a.metrics)

	a.heartbeat = services.NewHeartbeat(cfg.HeartbeatInterval, a.chain)
	a.heartbeat.Jobs = append(a.heartbeat.Jobs,
		func(context.Context) {
			if n := a.blacklist.Prune(); n > 0 {
				utils.InfoLogger.WithField("count", n).Debug("Pruned revoked tokens")
			}
		},
		func(context.Context) { a.rateLimiter.Prune() },
	)

	a.handler = router.SetupRouter(router.Deps{
		Orders:      orders,
		Proofs:      proofs,
		Menu:        services.NewMenuService(cfg.MenuFile),
		Storage:     a.chain,
		Hub:         a.hub,
		Metrics:     a.metrics,
		RateLimiter: a.rateLimiter,
		Blacklist:   a.blacklist,
		AdminAuth:   cfg.AdminAuthEnabled(),
		Admin: controllers.AdminCredentials{
			Username:     cfg.AdminUsername,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		JWTSecret:  []byte(cfg.JWTSecret),
		TokenTTL:   cfg.JWTTTL,
		CORSOrigin: cfg.CORSOrigin,
		UploadDir:  cfg.UploadDir,
	})

	if !cfg.AdminAuthEnabled() {
		utils.ErrorLogger.Warn("ADMIN_PASSWORD not set, admin routes are open")
	}
	return a
}

type publisherFunc func(ctx context.Context, e events.Event) error

func (f publisherFunc) Publish(ctx context.Context, e events.Event) error { return f(ctx, e) }

// connectAMQP adds the broker as a second event sink. Failing to connect only
// costs the broker copy of the events.
func (a *app) connectAMQP(url, exchange string) {
	p, err := events.NewAMQPPublisher(url, exchange)
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{"exchange": exchange}).Warnf("AMQP disabled: %v", err)
		return
	}
	a.amqp = p
	a.publishers = append(a.publishers, p)
	utils.InfoLogger.WithField("exchange", exchange).Info("Publishing order events to AMQP")
}

// close flushes pending image cleanups before the stores go away.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.scheduler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := a.chain.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
