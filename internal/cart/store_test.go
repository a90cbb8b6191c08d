package cart

import (
	"fmt"
	"testing"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price int64) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: decimal.NewFromInt(price),
		Code:  "CODE-" + id,
	}
}

func TestAdd_NewProduct(t *testing.T) {
	s := NewStore()

	res := s.Add(product("1", 12))

	assert.True(t, res.Success)
	assert.Equal(t, "Product 1 wurde zum Warenkorb hinzugefügt!", res.Message)
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, 1, s.Entries()[0].Quantity)
	assert.True(t, s.Contains("1"))
}

func TestAdd_AlreadyInCart_NoMutation(t *testing.T) {
	s := NewStore()
	s.Add(product("1", 12))

	res := s.Add(product("1", 12))

	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyInCart, res.Message)
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, 1, s.Entries()[0].Quantity)
}

func TestAdd_NeverDuplicates(t *testing.T) {
	s := NewStore()
	ids := []string{"1", "2", "1", "3", "2", "2", "4", "1"}
	for _, id := range ids {
		s.Add(product(id, 1))
	}

	seen := make(map[string]bool)
	for _, e := range s.Entries() {
		require.False(t, seen[e.Product.ID], "duplicate entry for %s", e.Product.ID)
		seen[e.Product.ID] = true
	}
	assert.Len(t, s.Entries(), 4)
	assert.Equal(t, 4, s.TotalItems())
}

func TestEntries_KeepInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Add(product("b", 1))
	s.Add(product("a", 1))
	s.Add(product("c", 1))

	var order []string
	for _, e := range s.Entries() {
		order = append(order, e.Product.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, order)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(product("1", 5))

	entries := s.Entries()
	entries[0].Quantity = 42

	assert.Equal(t, 1, s.Entries()[0].Quantity)
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Add(product("1", 5))
	s.Add(product("2", 7))

	assert.True(t, s.Remove("1"))
	assert.False(t, s.Contains("1"))
	assert.True(t, s.Contains("2"))
	assert.True(t, decimal.NewFromInt(7).Equal(s.TotalPrice()))
}

func TestRemove_Absent_IsNoop(t *testing.T) {
	s := NewStore()
	s.Add(product("1", 5))

	assert.False(t, s.Remove("missing"))
	assert.Len(t, s.Entries(), 1)
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Add(product("1", 5))
	s.Add(product("2", 7))

	s.Clear()

	assert.Empty(t, s.Entries())
	assert.True(t, s.TotalPrice().IsZero())
	assert.Equal(t, 0, s.TotalItems())
}

func TestTotals_RecomputedFromEntries(t *testing.T) {
	s := NewStore()
	for i := 1; i <= 5; i++ {
		s.Add(product(fmt.Sprint(i), int64(i)))
	}
	s.Remove("3")
	s.Add(product("6", 10))

	expected := decimal.Zero
	items := 0
	for _, e := range s.Entries() {
		expected = expected.Add(e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
		items += e.Quantity
	}
	assert.True(t, expected.Equal(s.TotalPrice()), "expected %s got %s", expected, s.TotalPrice())
	assert.Equal(t, items, s.TotalItems())
	assert.Equal(t, "22", s.TotalPrice().String())
}

func TestTotals_HonourQuantity(t *testing.T) {
	s := NewStore()
	s.Restore([]domain.CartEntry{
		{Product: product("1", 3), Quantity: 2},
		{Product: product("2", 4), Quantity: 1},
	})

	assert.Equal(t, "10", s.TotalPrice().String())
	assert.Equal(t, 3, s.TotalItems())
}

func TestTotals_DecimalPrices(t *testing.T) {
	s := NewStore()
	p1 := product("1", 0)
	p1.Price = decimal.RequireFromString("0.10")
	p2 := product("2", 0)
	p2.Price = decimal.RequireFromString("0.20")
	s.Add(p1)
	s.Add(p2)

	assert.True(t, decimal.RequireFromString("0.30").Equal(s.TotalPrice()))
}

func TestRestore_DropsDuplicatesAndInvalid(t *testing.T) {
	s := NewStore()
	s.Add(product("old", 1))

	negative := product("neg", 0)
	negative.Price = decimal.NewFromInt(-1)

	dropped := s.Restore([]domain.CartEntry{
		{Product: product("1", 3), Quantity: 1},
		{Product: product("1", 3), Quantity: 1},
		{Product: product("", 3), Quantity: 1},
		{Product: product("2", 3), Quantity: 0},
		{Product: negative, Quantity: 1},
		{Product: product("3", 3), Quantity: 1},
	})

	assert.Equal(t, 4, dropped)
	require.Len(t, s.Entries(), 2)
	assert.False(t, s.Contains("old"))
	assert.Equal(t, "1", s.Entries()[0].Product.ID)
	assert.Equal(t, "3", s.Entries()[1].Product.ID)
}
