package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/lionarc/dein-p3-markt/internal/session"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type scanTestContext struct {
	catalog *mockCatalog
	coupons []domain.CouponDefinition
	session *session.Session
	decoder *PushDecoder
	machine *Machine
}

func (c *scanTestContext) reset() {
	c.catalog = &mockCatalog{products: map[string]domain.Product{}}
	c.coupons = nil
	c.session = nil
	c.decoder = nil
	c.machine = nil
}

func (c *scanTestContext) theCatalogContains(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("catalog table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	for _, row := range table.Rows[1:] {
		var p domain.Product
		for i, cell := range row.Cells {
			switch header[i].Value {
			case "code":
				p.Code = cell.Value
			case "id":
				p.ID = cell.Value
			case "name":
				p.Name = cell.Value
			case "price":
				price, err := decimal.NewFromString(cell.Value)
				if err != nil {
					return err
				}
				p.Price = price
			}
		}
		c.catalog.products[p.Code] = p
	}
	return nil
}

func (c *scanTestContext) couponUnlocksAt(id string, amount int) error {
	c.coupons = append(c.coupons, domain.CouponDefinition{ID: id, MinAmount: decimal.NewFromInt(int64(amount))})
	return nil
}

func (c *scanTestContext) theScannerIsRunning() error {
	s, err := session.New(context.Background(), session.Options{
		Store:   storage.NewMemoryStore(),
		Coupons: c.coupons,
		Logger:  zap.NewNop(),
	})
	if err != nil {
		return err
	}
	c.session = s
	c.decoder = NewPushDecoder()
	c.machine = NewMachine(Options{Decoder: c.decoder, Catalog: c.catalog, Cart: s})
	return c.machine.Start(context.Background())
}

func (c *scanTestContext) theCartAlreadyHolds(id string) error {
	for _, p := range c.catalog.products {
		if p.ID == id {
			if !c.session.AddToCart(context.Background(), p).Success {
				return fmt.Errorf("could not add %s", id)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown product %s", id)
}

func (c *scanTestContext) theCodeIsDecoded(code string) error {
	c.decoder.Push(code)
	return nil
}

func (c *scanTestContext) iAcknowledge() error {
	return c.machine.Acknowledge()
}

func (c *scanTestContext) iConfirm() error {
	_, err := c.machine.Confirm(context.Background())
	return err
}

func (c *scanTestContext) iCancel() error {
	return c.machine.Cancel()
}

func (c *scanTestContext) theScannerShows(state string) error {
	if got := c.machine.Snapshot().State; string(got) != state {
		return fmt.Errorf("expected state %s, got %s", state, got)
	}
	return nil
}

func (c *scanTestContext) theCartIsEmpty() error {
	return c.theCartHoldsEntries(0)
}

func (c *scanTestContext) theCartHoldsEntries(n int) error {
	if got := len(c.session.Entries()); got != n {
		return fmt.Errorf("expected %d cart entries, got %d", n, got)
	}
	return nil
}

func (c *scanTestContext) theBestTotalIs(amount int) error {
	if got := c.session.MaxTotalReached(); !got.Equal(decimal.NewFromInt(int64(amount))) {
		return fmt.Errorf("expected best total %d, got %s", amount, got)
	}
	return nil
}

func (c *scanTestContext) couponIsEarned(id string) error {
	for _, def := range c.session.EarnedCoupons() {
		if def.ID == id {
			return nil
		}
	}
	return fmt.Errorf("coupon %s is not earned", id)
}

func (c *scanTestContext) thePendingProductIs(name string) error {
	view := c.machine.Snapshot()
	if view.Product == nil {
		return errors.New("no pending product")
	}
	if view.Product.Name != name {
		return fmt.Errorf("expected pending product %q, got %q", name, view.Product.Name)
	}
	return nil
}

func InitializeScanScenario(ctx *godog.ScenarioContext) {
	tc := &scanTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog contains:$`, tc.theCatalogContains)
	ctx.Step(`^coupon "([^"]*)" unlocks at (\d+)$`, tc.couponUnlocksAt)
	ctx.Step(`^the scanner is running$`, tc.theScannerIsRunning)
	ctx.Step(`^the cart already holds "([^"]*)"$`, tc.theCartAlreadyHolds)

	// When steps
	ctx.Step(`^the code "([^"]*)" is decoded$`, tc.theCodeIsDecoded)
	ctx.Step(`^I acknowledge$`, tc.iAcknowledge)
	ctx.Step(`^I confirm$`, tc.iConfirm)
	ctx.Step(`^I cancel$`, tc.iCancel)

	// Then steps
	ctx.Step(`^the scanner shows "([^"]*)"$`, tc.theScannerShows)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart holds (\d+) entries$`, tc.theCartHoldsEntries)
	ctx.Step(`^the best total is (?:still|now) (\d+)$`, tc.theBestTotalIs)
	ctx.Step(`^coupon "([^"]*)" is earned$`, tc.couponIsEarned)
	ctx.Step(`^the pending product is "([^"]*)"$`, tc.thePendingProductIs)
}

func TestScanFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScanScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/scan.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
