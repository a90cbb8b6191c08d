package reward

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadCouponConfig reads the coupon table from a .json, .yaml or .yml file.
func LoadCouponConfig(path string) (*domain.CouponConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coupon config: %w", err)
	}
	return ParseCouponConfig(data, filepath.Ext(path))
}

func ParseCouponConfig(data []byte, ext string) (*domain.CouponConfig, error) {
	var cfg domain.CouponConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse coupon config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse coupon config: %w", err)
		}
	}

	ids := make(map[string]struct{}, len(cfg.Coupons))
	for _, c := range cfg.Coupons {
		if c.ID == "" {
			return nil, fmt.Errorf("coupon %q: %w", c.Title, ErrCouponIDRequired)
		}
		if _, dup := ids[c.ID]; dup {
			return nil, fmt.Errorf("coupon %q: %w", c.ID, ErrDuplicateCouponID)
		}
		if c.MinAmount.IsNegative() {
			return nil, fmt.Errorf("coupon %q: %w", c.ID, ErrNegativeMinAmount)
		}
		ids[c.ID] = struct{}{}
	}
	return &cfg, nil
}
