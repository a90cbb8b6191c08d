package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadProductsConfig reads a product seed file (.json, .yaml or .yml).
func LoadProductsConfig(path string) (*domain.ProductsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products config: %w", err)
	}

	var cfg domain.ProductsConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse products config: %w", err)
	}
	return &cfg, nil
}

type SeedResult struct {
	Created int
	Skipped int
}

// Seed creates every template whose code is not in the catalog yet.
func Seed(ctx context.Context, c Catalog, cfg *domain.ProductsConfig, log *zap.Logger) (SeedResult, error) {
	var res SeedResult
	for _, tmpl := range cfg.Products {
		_, err := c.LookupByCode(ctx, tmpl.Code)
		if err == nil {
			res.Skipped++
			log.Debug("product already seeded", zap.String("code", tmpl.Code))
			continue
		}
		if !errors.Is(err, ErrProductNotFound) {
			return res, fmt.Errorf("seed %q: %w", tmpl.Code, err)
		}

		id, err := c.Create(ctx, tmpl.ToNewProduct())
		if err != nil {
			return res, fmt.Errorf("seed %q: %w", tmpl.Code, err)
		}
		res.Created++
		log.Info("product seeded", zap.String("code", tmpl.Code), zap.String("id", id))
	}
	return res, nil
}
