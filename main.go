package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/fnb-kiosk/config"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		utils.InfoLogger.Warnf("Warning: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := openStores(ctx, cfg)
	a := newApp(cfg, stores)
	if cfg.AMQPURL != "" {
		a.connectAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.WithField("backend", a.chain.ActiveName(gctx)).Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.heartbeat.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.InfoLogger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.hub.CloseAll()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, a.close(shutdownCtx))
	})

	return g.Wait()
}
