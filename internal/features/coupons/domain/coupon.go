package domain

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DiscountType represents how a coupon's discount value is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage discounts a percentage of the order value.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed discounts a fixed amount.
	DiscountTypeFixed DiscountType = "fixed"
)

var (
	// ErrInvalidDiscountType is returned for unknown discount types.
	ErrInvalidDiscountType = errors.New("invalid discount type")
	// ErrInvalidDiscountValue is returned when the discount value is out of policy.
	ErrInvalidDiscountValue = errors.New("invalid discount value")
	// ErrMissingDiscountCap is returned for percentage coupons without a cap.
	ErrMissingDiscountCap = errors.New("percentage coupons require a maximum discount amount")
	// ErrInvalidValidityWindow is returned when the validity window is malformed
	// or already over at creation.
	ErrInvalidValidityWindow = errors.New("invalid validity window")
	// ErrInvalidUsageLimit is returned when the usage limit is not positive.
	ErrInvalidUsageLimit = errors.New("usage limit must be positive")
	// ErrEmptyCode is returned when the coupon code is blank.
	ErrEmptyCode = errors.New("coupon code is required")
	// ErrUsageLimitReached is returned when the redemption cap is exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// UserRestrictions optionally narrows which users may redeem a coupon.
type UserRestrictions struct {
	// FirstUseOnly restricts each user to a single redemption.
	FirstUseOnly bool `bson:"firstUseOnly,omitempty" json:"first_use_only,omitempty"`
	// AllowedUsers, when non-empty, is the only set of users who may redeem.
	AllowedUsers []string `bson:"allowedUsers,omitempty" json:"allowed_users,omitempty"`
	// BlockedUsers may never redeem.
	BlockedUsers []string `bson:"blockedUsers,omitempty" json:"blocked_users,omitempty"`
}

// Usage is one append-only entry in a coupon's redemption history.
type Usage struct {
	// UserID is the redeeming user.
	UserID string `bson:"userId" json:"user_id"`
	// OrderID is the order the discount was applied to.
	OrderID string `bson:"orderId" json:"order_id"`
	// DiscountAmount is the discount granted.
	DiscountAmount float64 `bson:"discountAmount" json:"discount_amount"`
	// UsedAt is when the redemption happened.
	UsedAt time.Time `bson:"usedAt" json:"used_at"`
}

// Coupon is a discount definition. UsageCount and UsageHistory are mutated
// only by the atomic record-usage operation; once redeemed, coupons are
// deactivated rather than deleted.
type Coupon struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Code is the unique redemption code, stored upper-cased.
	Code string `bson:"code" json:"code"`
	// DiscountType is how DiscountValue is interpreted.
	DiscountType DiscountType `bson:"discountType" json:"discount_type"`
	// DiscountValue is the percentage (0,100] or fixed amount, per type.
	DiscountValue float64 `bson:"discountValue" json:"discount_value"`
	// MinimumOrderValue is the smallest order total the coupon applies to.
	MinimumOrderValue float64 `bson:"minimumOrderValue,omitempty" json:"minimum_order_value,omitempty"`
	// MaximumDiscountAmount caps the computed discount. Required for
	// percentage coupons.
	MaximumDiscountAmount float64 `bson:"maximumDiscountAmount,omitempty" json:"maximum_discount_amount,omitempty"`
	// UsageLimit is the total number of redemptions allowed.
	UsageLimit int `bson:"usageLimit" json:"usage_limit"`
	// UsageCount is the running number of redemptions.
	UsageCount int `bson:"usageCount" json:"usage_count"`
	// ValidFrom is when the coupon becomes redeemable.
	ValidFrom time.Time `bson:"validFrom" json:"valid_from"`
	// ValidTo is when the coupon expires.
	ValidTo time.Time `bson:"validTo" json:"valid_to"`
	// IsActive marks whether the coupon may currently be redeemed.
	IsActive bool `bson:"isActive" json:"is_active"`
	// ApplicableProducts, when non-empty, scopes the coupon to these product ids.
	ApplicableProducts []string `bson:"applicableProducts,omitempty" json:"applicable_products,omitempty"`
	// ApplicableCategories, when non-empty, scopes the coupon to these category ids.
	ApplicableCategories []string `bson:"applicableCategories,omitempty" json:"applicable_categories,omitempty"`
	// Restrictions optionally narrows redeeming users.
	Restrictions UserRestrictions `bson:"restrictions,omitempty" json:"restrictions,omitempty"`
	// UsageHistory is the append-only redemption log.
	UsageHistory []Usage   `bson:"usageHistory,omitempty" json:"usage_history,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}

// NewCoupon creates a Coupon and enforces the write-time invariants:
// percentage values above 100 are rejected, percentage coupons must carry a
// discount cap, and the validity window must end in the future.
func NewCoupon(code string, discountType DiscountType, discountValue, minimumOrderValue, maximumDiscountAmount float64, usageLimit int, validFrom, validTo time.Time) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	switch discountType {
	case DiscountTypePercentage:
		if discountValue <= 0 || discountValue > 100 {
			return nil, ErrInvalidDiscountValue
		}
		if maximumDiscountAmount <= 0 {
			return nil, ErrMissingDiscountCap
		}
	case DiscountTypeFixed:
		if discountValue <= 0 {
			return nil, ErrInvalidDiscountValue
		}
	default:
		return nil, ErrInvalidDiscountType
	}

	if usageLimit < 1 {
		return nil, ErrInvalidUsageLimit
	}

	now := time.Now()
	if !validTo.After(now) || validTo.Before(validFrom) {
		return nil, ErrInvalidValidityWindow
	}

	return &Coupon{
		Code:                  code,
		DiscountType:          discountType,
		DiscountValue:         discountValue,
		MinimumOrderValue:     minimumOrderValue,
		MaximumDiscountAmount: maximumDiscountAmount,
		UsageLimit:            usageLimit,
		ValidFrom:             validFrom,
		ValidTo:               validTo,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DiscountFor computes the discount for an order value. Fixed discounts are
// clamped to the order value; percentage discounts are capped by
// MaximumDiscountAmount. The result is never negative and never exceeds the
// order value.
func (c *Coupon) DiscountFor(orderValue float64) float64 {
	if orderValue <= 0 {
		return 0
	}

	var discount float64
	switch c.DiscountType {
	case DiscountTypeFixed:
		discount = c.DiscountValue
	case DiscountTypePercentage:
		discount = orderValue * c.DiscountValue / 100
		if c.MaximumDiscountAmount > 0 && discount > c.MaximumDiscountAmount {
			discount = c.MaximumDiscountAmount
		}
	}

	if discount > orderValue {
		discount = orderValue
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// UsedBy reports whether the user already appears in the redemption history.
func (c *Coupon) UsedBy(userID string) bool {
	for _, usage := range c.UsageHistory {
		if usage.UserID == userID {
			return true
		}
	}
	return false
}
