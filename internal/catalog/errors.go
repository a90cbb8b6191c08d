package catalog

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateCode      = errors.New("product code already exists")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrInvalidProduct     = errors.New("invalid product")
)
