// Package session owns one player's cart and reward ledger and keeps them,
// their persisted records, and the celebration notifier in step.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/cart"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/internal/notify"
	"github.com/lionarc/dein-p3-markt/internal/persistence"
	"github.com/lionarc/dein-p3-markt/internal/reward"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrStoreRequired = errors.New("session store is required")

type Options struct {
	// ID identifies the player in published events
	ID        string
	Store     storage.Store
	KeyPrefix string
	Coupons   []domain.CouponDefinition
	Publisher notify.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

// View is a consistent snapshot of everything the UI renders.
type View struct {
	Items             []domain.CartEntry        `json:"items"`
	TotalPrice        decimal.Decimal           `json:"totalPrice"`
	TotalItems        int                       `json:"totalItems"`
	MaxTotalReached   decimal.Decimal           `json:"maxTotalReached"`
	EarnedCoupons     []domain.CouponDefinition `json:"earnedCoupons"`
	RedeemedCouponIDs []string                  `json:"redeemedCouponIds"`
	Coupons           []domain.CouponDefinition `json:"coupons"`
}

type Session struct {
	mu        sync.RWMutex
	id        string
	cart      *cart.Store
	ledger    *reward.Ledger
	coupons   []domain.CouponDefinition
	persist   *persistence.Adapter
	publisher notify.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// New restores persisted state before returning, so callers never observe a
// half-loaded session.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = persistence.DefaultPrefix
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := opts.Logger.With(zap.String("session_id", opts.ID))
	s := &Session{
		id:        opts.ID,
		cart:      cart.NewStore(),
		ledger:    reward.NewLedger(),
		coupons:   cloneCoupons(opts.Coupons),
		persist:   persistence.NewAdapter(opts.Store, opts.KeyPrefix, log),
		publisher: opts.Publisher,
		log:       log,
		now:       opts.Now,
	}

	state := s.persist.Load(ctx)
	if dropped := s.cart.Restore(state.Cart); dropped > 0 {
		log.Warn("dropped invalid cart entries on load", zap.Int("dropped", dropped))
	}
	s.ledger.Restore(state.MaxTotal, state.Redeemed)

	// a restored cart can be worth more than a lost max-total record
	if s.ledger.ObserveCartTotal(s.cart.TotalPrice()) {
		s.saveMaxTotal(ctx)
	}

	log.Info("session loaded",
		zap.Int("cart_entries", s.cart.Len()),
		zap.String("max_total", s.ledger.MaxTotalReached().String()),
		zap.Int("redeemed", len(state.Redeemed)),
	)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// AddToCart adds product unless it is already in the cart.
func (s *Session) AddToCart(ctx context.Context, product domain.Product) cart.AddResult {
	var result cart.AddResult
	s.applyCartChange(ctx, func(c *cart.Store) bool {
		result = c.Add(product)
		return result.Success
	})
	return result
}

// RemoveFromCart reports whether the product was in the cart.
func (s *Session) RemoveFromCart(ctx context.Context, productID string) bool {
	var removed bool
	s.applyCartChange(ctx, func(c *cart.Store) bool {
		removed = c.Remove(productID)
		return removed
	})
	return removed
}

// ClearCart empties the cart. The ledger keeps its high-water mark, so earned
// coupons stay earned.
func (s *Session) ClearCart(ctx context.Context) {
	s.applyCartChange(ctx, func(c *cart.Store) bool {
		c.Clear()
		return true
	})
}

// applyCartChange is the single path for cart mutations: mutate, persist the
// cart, observe the new total, persist the max if it moved, then announce
// coupons that became earned. mutate returns false when nothing changed.
func (s *Session) applyCartChange(ctx context.Context, mutate func(c *cart.Store) bool) {
	s.mu.Lock()
	before := s.ledger.EarnedCoupons(s.coupons)
	if !mutate(s.cart) {
		s.mu.Unlock()
		return
	}

	s.saveCart(ctx)
	total := s.cart.TotalPrice()
	if s.ledger.ObserveCartTotal(total) {
		s.saveMaxTotal(ctx)
	}
	fresh := reward.NewlyEarned(before, s.ledger.EarnedCoupons(s.coupons))
	maxTotal := s.ledger.MaxTotalReached()
	s.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	event := notify.Event{
		SessionID:  s.id,
		Coupons:    fresh,
		CartTotal:  total,
		MaxTotal:   maxTotal,
		OccurredAt: s.now(),
	}
	if err := s.publisher.CouponsEarned(ctx, event); err != nil {
		s.log.Warn("failed to publish earned coupons", zap.Error(err))
	}
}

func (s *Session) IsProductInCart(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Contains(productID)
}

func (s *Session) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalPrice()
}

func (s *Session) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalItems()
}

func (s *Session) Entries() []domain.CartEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Entries()
}

// EarnedCoupons is recomputed from the coupon table on every call.
func (s *Session) EarnedCoupons() []domain.CouponDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.EarnedCoupons(s.coupons)
}

func (s *Session) MaxTotalReached() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.MaxTotalReached()
}

func (s *Session) RedeemedCouponIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.RedeemedCouponIDs()
}

// RedeemCoupons redeems everything currently earned. The redeemed set is
// persisted even when nothing was earned.
func (s *Session) RedeemCoupons(ctx context.Context) []domain.CouponDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()

	redeemed := s.ledger.Redeem(s.coupons)
	s.saveRedeemed(ctx)
	if len(redeemed) > 0 {
		s.log.Info("coupons redeemed", zap.Int("count", len(redeemed)))
	}
	return redeemed
}

// ResetLedger forgets the high-water mark and all redemptions. The cart is kept.
func (s *Session) ResetLedger(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Reset()
	s.saveMaxTotal(ctx)
	s.saveRedeemed(ctx)
	s.log.Info("reward ledger reset")
}

// ResetEverything clears the cart and the ledger and rewrites all records.
func (s *Session) ResetEverything(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Clear()
	s.ledger.Reset()
	if err := s.persist.ResetAll(ctx); err != nil {
		s.log.Error("failed to persist reset", zap.Error(err))
	}
	s.log.Info("session reset")
}

// SetCoupons replaces the coupon table. Coupons that become earned through a
// new table are not celebrated; only cart changes trigger celebrations.
func (s *Session) SetCoupons(defs []domain.CouponDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons = cloneCoupons(defs)
}

func (s *Session) Coupons() []domain.CouponDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCoupons(s.coupons)
}

func (s *Session) State() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		Items:             s.cart.Entries(),
		TotalPrice:        s.cart.TotalPrice(),
		TotalItems:        s.cart.TotalItems(),
		MaxTotalReached:   s.ledger.MaxTotalReached(),
		EarnedCoupons:     s.ledger.EarnedCoupons(s.coupons),
		RedeemedCouponIDs: s.ledger.RedeemedCouponIDs(),
		Coupons:           cloneCoupons(s.coupons),
	}
}

// Write failures are logged; the in-memory state stays authoritative.

func (s *Session) saveCart(ctx context.Context) {
	if err := s.persist.SaveCart(ctx, s.cart.Entries()); err != nil {
		s.log.Error("failed to persist cart", zap.Error(err))
	}
}

func (s *Session) saveMaxTotal(ctx context.Context) {
	if err := s.persist.SaveMaxTotal(ctx, s.ledger.MaxTotalReached()); err != nil {
		s.log.Error("failed to persist max total", zap.Error(err))
	}
}

func (s *Session) saveRedeemed(ctx context.Context) {
	if err := s.persist.SaveRedeemed(ctx, s.ledger.RedeemedCouponIDs()); err != nil {
		s.log.Error("failed to persist redeemed coupons", zap.Error(err))
	}
}

func cloneCoupons(defs []domain.CouponDefinition) []domain.CouponDefinition {
	out := make([]domain.CouponDefinition, len(defs))
	copy(out, defs)
	return out
}
