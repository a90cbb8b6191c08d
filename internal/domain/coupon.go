package domain

import "github.com/shopspring/decimal"

type CouponDefinition struct {
	ID          string          `json:"id" yaml:"id"`
	MinAmount   decimal.Decimal `json:"minAmount" yaml:"minAmount"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Code        string          `json:"code" yaml:"code"`
}

type CouponConfig struct {
	Coupons      []CouponDefinition `json:"coupons" yaml:"coupons"`
	Instructions string             `json:"instructions" yaml:"instructions"`
}
