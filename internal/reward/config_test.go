package reward

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const couponsJSON = `{
  "coupons": [
    {"id": "c1", "minAmount": 10, "title": "Bronze", "description": "5% off", "code": "P3-BRONZE"},
    {"id": "c2", "minAmount": 25.5, "title": "Silver", "description": "10% off", "code": "P3-SILVER"}
  ],
  "instructions": "Show the code at the counter"
}`

const couponsYAML = `
instructions: Show the code at the counter
coupons:
  - id: c1
    minAmount: 10
    title: Bronze
    code: P3-BRONZE
  - id: c2
    minAmount: "25.50"
    title: Silver
    code: P3-SILVER
`

func TestParseCouponConfig_JSON(t *testing.T) {
	cfg, err := ParseCouponConfig([]byte(couponsJSON), ".json")
	require.NoError(t, err)

	require.Len(t, cfg.Coupons, 2)
	assert.Equal(t, "c1", cfg.Coupons[0].ID)
	assert.Equal(t, "10", cfg.Coupons[0].MinAmount.String())
	assert.Equal(t, "25.5", cfg.Coupons[1].MinAmount.String())
	assert.Equal(t, "Show the code at the counter", cfg.Instructions)
}

func TestParseCouponConfig_YAML(t *testing.T) {
	cfg, err := ParseCouponConfig([]byte(couponsYAML), ".yaml")
	require.NoError(t, err)

	require.Len(t, cfg.Coupons, 2)
	assert.Equal(t, "P3-SILVER", cfg.Coupons[1].Code)
	assert.Equal(t, "25.5", cfg.Coupons[1].MinAmount.String())
}

func TestParseCouponConfig_Invalid(t *testing.T) {
	_, err := ParseCouponConfig([]byte(`{"coupons":[{"id":"a","minAmount":1},{"id":"a","minAmount":2}]}`), ".json")
	assert.ErrorIs(t, err, ErrDuplicateCouponID)

	_, err = ParseCouponConfig([]byte(`{"coupons":[{"minAmount":1}]}`), ".json")
	assert.ErrorIs(t, err, ErrCouponIDRequired)

	_, err = ParseCouponConfig([]byte(`{"coupons":[{"id":"a","minAmount":-1}]}`), ".json")
	assert.ErrorIs(t, err, ErrNegativeMinAmount)

	_, err = ParseCouponConfig([]byte(`{"coupons":`), ".json")
	assert.ErrorContains(t, err, "parse coupon config")
}

func TestLoadCouponConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.yml")
	require.NoError(t, os.WriteFile(path, []byte(couponsYAML), 0o600))

	cfg, err := LoadCouponConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Coupons, 2)

	_, err = LoadCouponConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
