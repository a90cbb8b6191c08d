// Package catalog resolves scanned codes to products and manages the
// product table behind the admin screens.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lionarc/dein-p3-markt/internal/domain"
)

// PriceScale matches the DECIMAL(12,2) price columns.
const PriceScale = 2

type Catalog interface {
	// LookupByCode returns ErrProductNotFound for unknown codes
	LookupByCode(ctx context.Context, code string) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, p domain.NewProduct) (string, error)
	Delete(ctx context.Context, id string) error
}

// Validate checks a submitted product before it reaches the backend.
func Validate(p domain.NewProduct) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case strings.TrimSpace(p.Code) == "":
		return fmt.Errorf("%w: code is required", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case !p.Price.Equal(p.Price.Truncate(PriceScale)):
		return fmt.Errorf("%w: price must have at most %d decimal places", ErrInvalidProduct, PriceScale)
	}
	return nil
}
