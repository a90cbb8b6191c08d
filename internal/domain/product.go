package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	ImageURL    string          `json:"imageUrl" db:"image_url"`
	Code        string          `json:"code" db:"code"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// NewProduct is what the admin collaborator submits; the catalog assigns ID and CreatedAt.
type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Code        string          `json:"code"`
}

// ProductTemplate is one entry of a products seed file.
type ProductTemplate struct {
	Code        string          `json:"barcode" yaml:"barcode"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Image       string          `json:"image" yaml:"image"`
}

type ProductsConfig struct {
	Products     []ProductTemplate `json:"products" yaml:"products"`
	Instructions string            `json:"instructions" yaml:"instructions"`
}

func (t ProductTemplate) ToNewProduct() NewProduct {
	return NewProduct{
		Name:        t.Name,
		Description: t.Description,
		Price:       t.Price,
		ImageURL:    t.Image,
		Code:        t.Code,
	}
}
