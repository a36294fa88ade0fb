package enums

import "fmt"

// CouponType selects how a coupon's discount value is interpreted.
type CouponType string

const (
	CouponTypeFlat       CouponType = "FLAT"
	CouponTypePercentage CouponType = "PERCENTAGE"
)

var validCouponTypes = []CouponType{
	CouponTypeFlat,
	CouponTypePercentage,
}

// String implements fmt.Stringer.
func (c CouponType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponType.
func (c CouponType) IsValid() bool {
	for _, candidate := range validCouponTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponType converts raw input into a CouponType.
func ParseCouponType(value string) (CouponType, error) {
	for _, candidate := range validCouponTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon type %q", value)
}
