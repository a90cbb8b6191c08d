package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/grpc"
	h "github.com/lionarc/dein-p3-markt/internal/http"
	"github.com/lionarc/dein-p3-markt/internal/notify"
	"github.com/lionarc/dein-p3-markt/internal/scan"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API and the gRPC health endpoint",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	ctx := c.Context

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	log.Info("session store ready", zap.String("driver", cfg.StoreDriver))

	repo, err := openCatalog(ctx)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer repo.Close()

	cache, closeCache, err := lookupCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()
	products := catalog.NewCachedCatalog(repo, cache, cfg.BreakerConfig("catalog"), log)

	var publisher notify.Publisher = notify.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := notify.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("publishing celebrations to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	asyncPublisher := notify.NewAsyncPublisher(publisher, notify.DefaultQueueSize, notify.DefaultDeliverTimeout, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := asyncPublisher.Close(closeCtx); err != nil {
			log.Warn("celebrations not fully delivered", zap.Error(err))
		}
	}()
	publisher = asyncPublisher

	sess, err := openSession(ctx, store, publisher)
	if err != nil {
		return err
	}

	decoder := scan.NewPushDecoder()
	scanner := scan.NewMachine(scan.Options{
		Decoder:       decoder,
		Catalog:       products,
		Cart:          sess,
		Logger:        log,
		MessageTTL:    cfg.MessageTTL,
		LookupTimeout: cfg.LookupTimeout,
	})

	router := h.NewRouter(h.RouterConfig{
		Session:        sess,
		Catalog:        products,
		Scanner:        scanner,
		Source:         decoder,
		AdminKey:       cfg.AdminKey,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "p3markt"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	healthServer := grpc.NewServer(log)

	ctx, stop := signalContext(ctx)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go healthServer.Monitor(ctx, cfg.HealthInterval, store, repo)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("server failed, shutting down", zap.Error(err))
	}

	healthServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("server forced to shutdown", zap.Error(shutdownErr))
	}
	if stopErr := scanner.Stop(shutdownCtx); stopErr != nil {
		log.Warn("failed to stop scanner", zap.Error(stopErr))
	}

	log.Info("server exited")
	return err
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
