package cart

import (
	"fmt"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/shopspring/decimal"
)

const MsgAlreadyInCart = "Dieses Produkt ist bereits im Warenkorb!"

// AddResult is returned by Add. A duplicate add is a normal result, not an error.
type AddResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Store keeps cart entries in insertion order, at most one per product id.
// It is not safe for concurrent use; the session serializes access.
type Store struct {
	entries []domain.CartEntry
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(product domain.Product) AddResult {
	if s.Contains(product.ID) {
		return AddResult{Success: false, Message: MsgAlreadyInCart}
	}

	s.entries = append(s.entries, domain.CartEntry{Product: product, Quantity: 1})
	return AddResult{Success: true, Message: fmt.Sprintf("%s wurde zum Warenkorb hinzugefügt!", product.Name)}
}

// Remove drops the entry for productID. Removing an absent product is a no-op.
func (s *Store) Remove(productID string) bool {
	for i, entry := range s.entries {
		if entry.Product.ID == productID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) Clear() {
	s.entries = nil
}

func (s *Store) Contains(productID string) bool {
	for _, entry := range s.entries {
		if entry.Product.ID == productID {
			return true
		}
	}
	return false
}

func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range s.entries {
		total = total.Add(entry.Subtotal())
	}
	return total
}

func (s *Store) TotalItems() int {
	items := 0
	for _, entry := range s.entries {
		items += entry.Quantity
	}
	return items
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the cart in insertion order.
func (s *Store) Entries() []domain.CartEntry {
	out := make([]domain.CartEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore replaces the cart with persisted entries. Invalid entries and
// repeated product ids are dropped, so the uniqueness rule holds after rehydration.
// It returns the number of entries that were dropped.
func (s *Store) Restore(entries []domain.CartEntry) int {
	s.entries = nil
	dropped := 0
	for _, entry := range entries {
		if !entry.Valid() || s.Contains(entry.Product.ID) {
			dropped++
			continue
		}
		s.entries = append(s.entries, entry)
	}
	return dropped
}
