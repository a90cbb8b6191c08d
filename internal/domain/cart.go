package domain

import "github.com/shopspring/decimal"

// CartEntry holds a snapshot of the product taken when it was added.
type CartEntry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (e CartEntry) Subtotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Valid reports whether the entry can be part of a cart.
func (e CartEntry) Valid() bool {
	return e.Product.ID != "" && e.Quantity > 0 && !e.Product.Price.IsNegative()
}
