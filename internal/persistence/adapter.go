// Package persistence stores the session's cart and reward ledger as three
// independent records on a key-value store.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPrefix = "p3-markt-"

	KeyCart     = "cart"
	KeyMaxTotal = "max-total"
	KeyRedeemed = "redeemed-coupons"
)

// State is what Load recovered. Each field falls back to its zero value on its own.
type State struct {
	Cart     []domain.CartEntry
	MaxTotal decimal.Decimal
	Redeemed []string
}

type Adapter struct {
	store  storage.Store
	prefix string
	log    *zap.Logger
}

func NewAdapter(store storage.Store, prefix string, log *zap.Logger) *Adapter {
	return &Adapter{store: store, prefix: prefix, log: log}
}

func (a *Adapter) key(name string) string {
	return a.prefix + name
}

// Load reads the three records. A missing record is silent; an unreadable or
// malformed one is logged and replaced by its zero value.
func (a *Adapter) Load(ctx context.Context) State {
	state := State{MaxTotal: decimal.Zero}

	if raw, ok := a.read(ctx, KeyCart); ok {
		var entries []domain.CartEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			a.warnCorrupt(KeyCart, err)
		} else {
			state.Cart = entries
		}
	}

	if raw, ok := a.read(ctx, KeyMaxTotal); ok {
		maxTotal, err := parseMaxTotal(raw)
		if err != nil {
			a.warnCorrupt(KeyMaxTotal, err)
		} else {
			state.MaxTotal = maxTotal
		}
	}

	if raw, ok := a.read(ctx, KeyRedeemed); ok {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			a.warnCorrupt(KeyRedeemed, err)
		} else {
			state.Redeemed = ids
		}
	}

	return state
}

func (a *Adapter) read(ctx context.Context, name string) (string, bool) {
	raw, err := a.store.Get(ctx, a.key(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		a.log.Warn("failed to read persisted record, using empty value",
			zap.String("key", a.key(name)), zap.Error(err))
		return "", false
	}
	return raw, true
}

func (a *Adapter) warnCorrupt(name string, err error) {
	a.log.Warn("persisted record is corrupt, using empty value",
		zap.String("key", a.key(name)), zap.Error(err))
}

// parseMaxTotal accepts a JSON number or a quoted decimal string.
func parseMaxTotal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	var d decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative max total %s", d.String())
	}
	return d, nil
}

func (a *Adapter) SaveCart(ctx context.Context, entries []domain.CartEntry) error {
	if entries == nil {
		entries = []domain.CartEntry{}
	}
	return a.write(ctx, KeyCart, entries)
}

func (a *Adapter) SaveMaxTotal(ctx context.Context, maxTotal decimal.Decimal) error {
	return a.save(ctx, KeyMaxTotal, maxTotal.String())
}

func (a *Adapter) SaveRedeemed(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return a.write(ctx, KeyRedeemed, ids)
}

// ResetAll overwrites all three records with their zero values.
func (a *Adapter) ResetAll(ctx context.Context) error {
	return errors.Join(
		a.SaveCart(ctx, nil),
		a.SaveMaxTotal(ctx, decimal.Zero),
		a.SaveRedeemed(ctx, nil),
	)
}

func (a *Adapter) write(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return a.save(ctx, name, string(data))
}

func (a *Adapter) save(ctx context.Context, name, value string) error {
	if err := a.store.Set(ctx, a.key(name), value); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
