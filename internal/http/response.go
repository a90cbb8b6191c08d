package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/scan"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already written; nothing useful is left to do on failure
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts domain errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		httpStatus = http.StatusNotFound
		code = "product_not_found"
	case errors.Is(err, catalog.ErrInvalidProduct):
		httpStatus = http.StatusBadRequest
		code = "invalid_product"
	case errors.Is(err, catalog.ErrDuplicateCode):
		httpStatus = http.StatusConflict
		code = "duplicate_code"
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "catalog_unavailable"
	case errors.Is(err, scan.ErrScannerUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "scanner_unavailable"
	case errors.Is(err, scan.ErrInvalidTransition):
		httpStatus = http.StatusConflict
		code = "invalid_transition"
	case errors.Is(err, scan.ErrLookupFailed):
		httpStatus = http.StatusBadGateway
		code = "lookup_failed"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
