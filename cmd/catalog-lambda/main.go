package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/config"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type productReader interface {
	LookupByCode(ctx context.Context, code string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
}

type handler struct {
	products productReader
	log      *zap.Logger
}

var headers = map[string]string{
	"Content-Type":                 "application/json",
	"Cache-Control":                "public, max-age=60",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET",
	"Access-Control-Allow-Headers": "Content-Type",
}

// handle serves GET /products and GET /products/{code}.
func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != http.MethodGet {
		return respond(http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"}), nil
	}

	code := req.PathParameters["code"]
	if code == "" {
		products, err := h.products.ListAll(ctx)
		if err != nil {
			return h.failure(err), nil
		}
		if products == nil {
			products = []domain.Product{}
		}
		return respond(http.StatusOK, map[string][]domain.Product{"products": products}), nil
	}

	product, err := h.products.LookupByCode(ctx, code)
	if err != nil {
		return h.failure(err), nil
	}
	return respond(http.StatusOK, product), nil
}

func (h *handler) failure(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return respond(http.StatusNotFound, map[string]string{"error": "product not found"})
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		h.log.Warn("catalog unavailable", zap.Error(err))
		return respond(http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
	default:
		h.log.Error("catalog read failed", zap.Error(err))
		return respond(http.StatusInternalServerError, map[string]string{"error": "failed to retrieve products"})
	}
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to format response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(data),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	repo, err := catalog.Open(ctx, cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		log.Fatal("failed to open catalog", zap.Error(err))
	}
	defer repo.Close()

	var cache catalog.LookupCache = catalog.NopCache{}
	if cfg.CatalogCacheAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.CatalogCacheAddr})
		defer client.Close()
		cache = catalog.NewRedisLookupCache(client, cfg.CatalogCacheTTL)
	}

	h := &handler{
		products: catalog.NewCachedCatalog(repo, cache, cfg.BreakerConfig("catalog-lambda"), log),
		log:      log,
	}
	lambda.Start(h.handle)
}
