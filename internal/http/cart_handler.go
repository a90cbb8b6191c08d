package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lionarc/dein-p3-markt/internal/cart"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/internal/session"
)

// CartSession is the part of the player session the cart endpoints drive.
type CartSession interface {
	AddToCart(ctx context.Context, product domain.Product) cart.AddResult
	RemoveFromCart(ctx context.Context, productID string) bool
	ClearCart(ctx context.Context)
	EarnedCoupons() []domain.CouponDefinition
	RedeemCoupons(ctx context.Context) []domain.CouponDefinition
	ResetEverything(ctx context.Context)
	State() session.View
}

type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	session CartSession
	catalog ProductGetter
	timeout time.Duration
}

func NewCartHandler(s CartSession, catalog ProductGetter, timeout time.Duration) *CartHandler {
	return &CartHandler{
		session: s,
		catalog: catalog,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type AddItemResponse struct {
	cart.AddResult
	State session.View `json:"state"`
}

type RemoveItemResponse struct {
	Removed bool         `json:"removed"`
	State   session.View `json:"state"`
}

type CouponsResponse struct {
	Coupons []domain.CouponDefinition `json:"coupons"`
}

func (h *CartHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.State())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		handleError(w, err)
		return
	}

	result := h.session.AddToCart(ctx, *product)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusConflict
	}
	respondJSON(w, status, AddItemResponse{AddResult: result, State: h.session.State()})
}

// RemoveItem succeeds whether or not the product was in the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	removed := h.session.RemoveFromCart(ctx, productID)
	respondJSON(w, http.StatusOK, RemoveItemResponse{Removed: removed, State: h.session.State()})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.session.ClearCart(ctx)
	respondJSON(w, http.StatusOK, h.session.State())
}

func (h *CartHandler) EarnedCoupons(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CouponsResponse{Coupons: nonNil(h.session.EarnedCoupons())})
}

func (h *CartHandler) RedeemCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	redeemed := h.session.RedeemCoupons(ctx)
	respondJSON(w, http.StatusOK, CouponsResponse{Coupons: nonNil(redeemed)})
}

// Reset wipes all player state, including the high-water mark.
func (h *CartHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.session.ResetEverything(ctx)
	respondJSON(w, http.StatusOK, h.session.State())
}

func nonNil(defs []domain.CouponDefinition) []domain.CouponDefinition {
	if defs == nil {
		return []domain.CouponDefinition{}
	}
	return defs
}
