package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/pkg/circuitbreaker"
	"github.com/lionarc/dein-p3-markt/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/lionarc/dein-p3-markt/internal/catalog"

// CachedCatalog puts a lookup cache, request coalescing and a circuit breaker
// in front of a backend catalog.
type CachedCatalog struct {
	backend Catalog
	cache   LookupCache
	breaker *gobreaker.CircuitBreaker[any]
	sfg     singleflight.Group // coalesces concurrent lookups of one code
	tracer  trace.Tracer
	log     *zap.Logger

	// generations counts invalidations per code; a cache write that raced one
	// is undone.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedCatalog(backend Catalog, cache LookupCache, breaker circuitbreaker.Config, log *zap.Logger) *CachedCatalog {
	if cache == nil {
		cache = NopCache{}
	}
	return &CachedCatalog{
		backend:     backend,
		cache:       cache,
		breaker:     circuitbreaker.New[any](breaker, log, isExpected),
		tracer:      otel.Tracer(tracerName),
		log:         log,
		generations: make(map[string]uint64),
	}
}

// isExpected keeps caller mistakes from tripping the breaker.
func isExpected(err error) bool {
	return err == nil ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, context.Canceled)
}

func (c *CachedCatalog) LookupByCode(ctx context.Context, code string) (*domain.Product, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.LookupByCode", trace.WithAttributes(attribute.String("product.code", code)))
	defer span.End()

	v, err, shared := c.sfg.Do(code, func() (interface{}, error) {
		p, err := c.cache.Get(ctx, code)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return p, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.FromContext(ctx, c.log).Warn("catalog cache get failed", zap.Error(err))
		}

		gen := c.generation(code)
		res, err := c.execute(func() (any, error) { return c.backend.LookupByCode(ctx, code) })
		if err != nil {
			return nil, err
		}
		p = res.(*domain.Product)
		if p == nil {
			return nil, ErrProductNotFound
		}

		c.store(ctx, code, p, gen)
		return p, nil
	})
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))

	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	p := *v.(*domain.Product)
	return &p, nil
}

func (c *CachedCatalog) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	res, err := c.execute(func() (any, error) { return c.backend.GetByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return res.(*domain.Product), nil
}

func (c *CachedCatalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.ListAll")
	defer span.End()

	res, err := c.execute(func() (any, error) { return c.backend.ListAll(ctx) })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res.([]domain.Product), nil
}

func (c *CachedCatalog) Create(ctx context.Context, p domain.NewProduct) (string, error) {
	res, err := c.execute(func() (any, error) { return c.backend.Create(ctx, p) })
	if err != nil {
		return "", err
	}
	c.invalidate(p.Code)
	return res.(string), nil
}

func (c *CachedCatalog) Delete(ctx context.Context, id string) error {
	existing, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := c.execute(func() (any, error) { return nil, c.backend.Delete(ctx, id) }); err != nil {
		return err
	}
	c.invalidate(existing.Code)
	return nil
}

// execute runs fn through the breaker and maps a rejected call to ErrCatalogUnavailable.
func (c *CachedCatalog) execute(fn func() (any, error)) (any, error) {
	res, err := c.breaker.Execute(fn)
	if circuitbreaker.IsOpen(err) {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return res, err
}

// store caches p unless code was invalidated since gen was read.
func (c *CachedCatalog) store(ctx context.Context, code string, p *domain.Product, gen uint64) {
	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.cache.Set(setCtx, code, p); err != nil {
		logger.FromContext(ctx, c.log).Warn("catalog cache set failed", zap.Error(err))
		return
	}
	if c.generation(code) != gen {
		if err := c.cache.Delete(setCtx, code); err != nil {
			c.log.Warn("catalog cache invalidate failed", zap.String("code", code), zap.Error(err))
		}
	}
}

func (c *CachedCatalog) generation(code string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[code]
}

func (c *CachedCatalog) invalidate(code string) {
	c.mu.Lock()
	c.generations[code]++
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.cache.Delete(ctx, code); err != nil {
		c.log.Warn("catalog cache invalidate failed", zap.String("code", code), zap.Error(err))
	}
}
