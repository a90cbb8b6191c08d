package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Session        CartSession
	Catalog        catalog.Catalog
	Scanner        Scanner
	Source         CodeSource
	AdminKey       string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(cfg.Session, cfg.Catalog, cfg.RequestTimeout)
	productHandler := NewProductHandler(cfg.Catalog, cfg.RequestTimeout)
	scanHandler := NewScanHandler(cfg.Scanner, cfg.Source, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", cartHandler.GetState)
		r.Get("/products", productHandler.List)

		r.Route("/cart", func(r chi.Router) {
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/earned", cartHandler.EarnedCoupons)
			r.Post("/redeem", cartHandler.RedeemCoupons)
		})

		r.Route("/scan", func(r chi.Router) {
			r.Get("/", scanHandler.Get)
			r.Post("/start", scanHandler.Start)
			r.Post("/stop", scanHandler.Stop)
			r.Post("/decoded", scanHandler.Decoded)
			r.Post("/confirm", scanHandler.Confirm)
			r.Post("/cancel", scanHandler.Cancel)
			r.Post("/acknowledge", scanHandler.Acknowledge)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminKeyMiddleware(cfg.AdminKey))
			r.Post("/products", productHandler.Create)
			r.Delete("/products/{id}", productHandler.Delete)
			r.Post("/reset", cartHandler.Reset)
		})
	})

	return r
}
