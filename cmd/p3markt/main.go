package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/config"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/internal/notify"
	"github.com/lionarc/dein-p3-markt/internal/reward"
	"github.com/lionarc/dein-p3-markt/internal/session"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/lionarc/dein-p3-markt/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	app := &cli.App{
		Name:  "p3markt",
		Usage: "shopping game server: scan products, fill the cart, earn coupons",
		Before: func(c *cli.Context) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
			return err
		},
		After: func(c *cli.Context) error {
			if log != nil {
				_ = log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			{
				Name:  "migrate",
				Usage: "apply the catalog schema migrations",
				Action: func(c *cli.Context) error {
					repo, err := catalog.Open(c.Context, cfg.CatalogDriver, cfg.CatalogDSN)
					if err != nil {
						return err
					}
					defer repo.Close()

					if err := repo.RunMigrations(); err != nil {
						return err
					}
					log.Info("catalog migrations applied", zap.String("driver", cfg.CatalogDriver))
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "create catalog products from a JSON or YAML products file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "products file", Required: true},
				},
				Action: func(c *cli.Context) error {
					products, err := catalog.LoadProductsConfig(c.String("file"))
					if err != nil {
						return err
					}

					repo, err := openCatalog(c.Context)
					if err != nil {
						return err
					}
					defer repo.Close()

					result, err := catalog.Seed(c.Context, repo, products, log)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %d products, skipped %d existing codes\n", result.Created, result.Skipped)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "wipe all persisted session state",
				Action: func(c *cli.Context) error {
					store, err := storage.Open(c.Context, cfg.StorageOptions())
					if err != nil {
						return err
					}
					defer store.Close()

					sess, err := openSession(c.Context, store, notify.Nop{})
					if err != nil {
						return err
					}
					sess.ResetEverything(c.Context)
					fmt.Fprintln(c.App.Writer, "session state reset")
					return nil
				},
			},
			{
				Name:  "celebrate",
				Usage: "print coupons-earned events from Kafka",
				Action: func(c *cli.Context) error {
					if len(cfg.KafkaBrokers) == 0 {
						return errors.New("P3_KAFKA_BROKERS is not set")
					}
					celebrator := notify.NewCelebrator(printCelebration(c), log, cfg.KafkaGroupID, cfg.KafkaTopic, cfg.KafkaBrokers...)
					defer celebrator.Close()

					ctx, stop := signalContext(c.Context)
					defer stop()
					celebrator.Run(ctx)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printCelebration(c *cli.Context) notify.Handler {
	return func(_ context.Context, event notify.Event) error {
		titles := make([]string, len(event.Coupons))
		for i, coupon := range event.Coupons {
			titles[i] = fmt.Sprintf("%s (%s)", coupon.Title, coupon.Code)
		}
		_, err := fmt.Fprintf(c.App.Writer, "session %s earned %s at %s\n", event.SessionID, strings.Join(titles, ", "), event.CartTotal)
		return err
	}
}

// openCatalog opens the repository and makes sure its schema is current.
func openCatalog(ctx context.Context) (*catalog.Repository, error) {
	repo, err := catalog.Open(ctx, cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// lookupCache returns the Redis lookup cache when one is configured.
func lookupCache(ctx context.Context) (catalog.LookupCache, func(), error) {
	if cfg.CatalogCacheAddr == "" {
		return catalog.NopCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.CatalogCacheAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("catalog cache connection failed: %w", err)
	}
	log.Info("catalog cache enabled", zap.String("addr", cfg.CatalogCacheAddr), zap.Duration("ttl", cfg.CatalogCacheTTL))
	return catalog.NewRedisLookupCache(client, cfg.CatalogCacheTTL), func() { client.Close() }, nil
}

// loadCoupons falls back to no coupons so the cart keeps working without a
// coupon file.
func loadCoupons() []domain.CouponDefinition {
	couponCfg, err := reward.LoadCouponConfig(cfg.CouponsPath)
	if err != nil {
		log.Warn("failed to load coupon config, no coupons can be earned", zap.String("path", cfg.CouponsPath), zap.Error(err))
		return nil
	}
	return couponCfg.Coupons
}

func openSession(ctx context.Context, store storage.Store, publisher notify.Publisher) (*session.Session, error) {
	return session.New(ctx, session.Options{
		ID:        cfg.SessionID,
		Store:     store,
		KeyPrefix: cfg.KeyPrefix,
		Coupons:   loadCoupons(),
		Publisher: publisher,
		Logger:    log,
	})
}
