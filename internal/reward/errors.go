package reward

import "errors"

var (
	ErrCouponIDRequired  = errors.New("coupon id is required")
	ErrDuplicateCouponID = errors.New("duplicate coupon id")
	ErrNegativeMinAmount = errors.New("coupon minAmount cannot be negative")
)
