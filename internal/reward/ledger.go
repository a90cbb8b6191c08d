package reward

import (
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/shopspring/decimal"
)

// Ledger tracks the highest cart total ever reached and the coupons that were
// redeemed. The high-water mark only decreases through Reset and redeemed ids
// are only removed through Reset.
//
// Earned coupons are never stored; they are derived from the coupon table on
// every read.
type Ledger struct {
	maxTotal decimal.Decimal
	redeemed []string
	index    map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		maxTotal: decimal.Zero,
		index:    make(map[string]struct{}),
	}
}

// ObserveCartTotal raises the high-water mark when total exceeds it and
// reports whether it changed.
func (l *Ledger) ObserveCartTotal(total decimal.Decimal) bool {
	if !total.GreaterThan(l.maxTotal) {
		return false
	}
	l.maxTotal = total
	return true
}

func (l *Ledger) MaxTotalReached() decimal.Decimal {
	return l.maxTotal
}

func (l *Ledger) IsRedeemed(couponID string) bool {
	_, ok := l.index[couponID]
	return ok
}

// RedeemedCouponIDs returns the redeemed ids in redemption order.
func (l *Ledger) RedeemedCouponIDs() []string {
	out := make([]string, len(l.redeemed))
	copy(out, l.redeemed)
	return out
}

// EarnedCoupons filters defs down to the coupons whose threshold was reached
// and that were not redeemed yet. The order of defs is kept.
func (l *Ledger) EarnedCoupons(defs []domain.CouponDefinition) []domain.CouponDefinition {
	earned := make([]domain.CouponDefinition, 0, len(defs))
	for _, def := range defs {
		if def.MinAmount.LessThanOrEqual(l.maxTotal) && !l.IsRedeemed(def.ID) {
			earned = append(earned, def)
		}
	}
	return earned
}

// Redeem marks every currently earned coupon as redeemed and returns them.
// A coupon is never returned twice.
func (l *Ledger) Redeem(defs []domain.CouponDefinition) []domain.CouponDefinition {
	earned := l.EarnedCoupons(defs)
	for _, def := range earned {
		l.markRedeemed(def.ID)
	}
	return earned
}

func (l *Ledger) Reset() {
	l.maxTotal = decimal.Zero
	l.redeemed = nil
	l.index = make(map[string]struct{})
}

// Restore loads persisted ledger state. Negative totals are treated as zero
// and repeated ids are collapsed.
func (l *Ledger) Restore(maxTotal decimal.Decimal, redeemed []string) {
	l.Reset()
	if maxTotal.IsPositive() {
		l.maxTotal = maxTotal
	}
	for _, id := range redeemed {
		l.markRedeemed(id)
	}
}

func (l *Ledger) markRedeemed(id string) {
	if id == "" || l.IsRedeemed(id) {
		return
	}
	l.index[id] = struct{}{}
	l.redeemed = append(l.redeemed, id)
}

// NewlyEarned returns the coupons present in after but not in before.
func NewlyEarned(before, after []domain.CouponDefinition) []domain.CouponDefinition {
	seen := make(map[string]struct{}, len(before))
	for _, def := range before {
		seen[def.ID] = struct{}{}
	}
	var fresh []domain.CouponDefinition
	for _, def := range after {
		if _, ok := seen[def.ID]; !ok {
			fresh = append(fresh, def)
		}
	}
	return fresh
}
