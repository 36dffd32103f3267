package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/ports"

	"go.uber.org/zap"
)

// Distinct validation failures, so callers can render user-facing messages
// without string-matching.
var (
	// ErrCouponNotFound is returned when the code does not exist.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponInactive is returned when the coupon is deactivated.
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponExpired is returned when the validity window has closed.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrCouponNotYetValid is returned before the validity window opens.
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	// ErrUsageLimitReached is returned when the redemption cap is exhausted.
	ErrUsageLimitReached = domain.ErrUsageLimitReached
	// ErrBelowMinimumOrder is returned when the order total is too small.
	ErrBelowMinimumOrder = errors.New("order value below coupon minimum")
	// ErrUserRestricted is returned when the user may not redeem this coupon.
	ErrUserRestricted = errors.New("coupon not available for this user")
	// ErrProductNotApplicable is returned when no requested product is in scope.
	ErrProductNotApplicable = errors.New("coupon not applicable to these products")
	// ErrCategoryNotApplicable is returned when no requested category is in scope.
	ErrCategoryNotApplicable = errors.New("coupon not applicable to these categories")
	// ErrCodeTaken is returned when creating a coupon with an existing code.
	ErrCodeTaken = errors.New("coupon code already exists")
)

// ValidationRequest is the order context a coupon is validated against.
type ValidationRequest struct {
	// Code is the coupon code as entered by the user.
	Code string `json:"code"`
	// OrderValue is the pre-discount order total.
	OrderValue float64 `json:"order_value"`
	// UserID identifies the redeeming user, when known.
	UserID string `json:"user_id,omitempty"`
	// ProductIDs are the products in the order.
	ProductIDs []string `json:"product_ids,omitempty"`
	// CategoryIDs are the categories of the products in the order.
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// Discount is the outcome of applying a coupon.
type Discount struct {
	// CouponID references the applied coupon.
	CouponID string `json:"coupon_id"`
	// Code is the normalized coupon code.
	Code string `json:"code"`
	// DiscountAmount is the granted discount.
	DiscountAmount float64 `json:"discount_amount"`
	// FinalAmount is the order value after the discount.
	FinalAmount float64 `json:"final_amount"`
}

// CouponService implements coupon validation, discount application and the
// atomic usage-recording step.
type CouponService struct {
	repo   ports.CouponRepository
	logger *zap.Logger
}

// NewCouponService creates a CouponService over the given repository.
func NewCouponService(repo ports.CouponRepository) *CouponService {
	return &CouponService{
		repo:   repo,
		logger: logger.Get(),
	}
}

// Validate checks a coupon against the order context. Checks run in fixed
// order: existence, active flag, expiry, not-yet-valid, usage cap, minimum
// order value, user restrictions, then product/category scoping.
func (s *CouponService) Validate(ctx context.Context, req ValidationRequest) (*domain.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, domain.NormalizeCode(req.Code))
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	if !coupon.IsActive {
		return nil, ErrCouponInactive
	}

	now := time.Now()
	if now.After(coupon.ValidTo) {
		return nil, ErrCouponExpired
	}
	if now.Before(coupon.ValidFrom) {
		return nil, ErrCouponNotYetValid
	}

	if coupon.UsageCount >= coupon.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if req.OrderValue < coupon.MinimumOrderValue {
		return nil, fmt.Errorf("%w: minimum is %.2f", ErrBelowMinimumOrder, coupon.MinimumOrderValue)
	}

	if err := checkUserRestrictions(coupon, req.UserID); err != nil {
		return nil, err
	}

	if len(coupon.ApplicableProducts) > 0 && !intersects(coupon.ApplicableProducts, req.ProductIDs) {
		return nil, ErrProductNotApplicable
	}
	if len(coupon.ApplicableCategories) > 0 && !intersects(coupon.ApplicableCategories, req.CategoryIDs) {
		return nil, ErrCategoryNotApplicable
	}

	return coupon, nil
}

// checkUserRestrictions applies block-list, allow-list and first-use rules.
func checkUserRestrictions(coupon *domain.Coupon, userID string) error {
	r := coupon.Restrictions

	if len(r.BlockedUsers) > 0 && contains(r.BlockedUsers, userID) {
		return ErrUserRestricted
	}
	if len(r.AllowedUsers) > 0 && !contains(r.AllowedUsers, userID) {
		return ErrUserRestricted
	}
	if r.FirstUseOnly && userID != "" && coupon.UsedBy(userID) {
		return ErrUserRestricted
	}
	return nil
}

// Apply validates the coupon and computes the discount for the order value.
// A validation failure applies no discount; the caller proceeds without one.
func (s *CouponService) Apply(ctx context.Context, req ValidationRequest) (*Discount, error) {
	coupon, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	discount := coupon.DiscountFor(req.OrderValue)
	return &Discount{
		CouponID:       coupon.ID.Hex(),
		Code:           coupon.Code,
		DiscountAmount: discount,
		FinalAmount:    req.OrderValue - discount,
	}, nil
}

// RecordUsage marks one redemption against the coupon. Invoked exactly once
// per completed order; concurrency safety rests on the repository's
// store-level conditional increment.
func (s *CouponService) RecordUsage(ctx context.Context, couponID, userID, orderID string, discountAmount float64) error {
	err := s.repo.RecordUsage(ctx, couponID, domain.Usage{
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discountAmount,
		UsedAt:         time.Now(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("Coupon usage recorded",
		zap.String("coupon_id", couponID),
		zap.String("order_id", orderID),
		zap.Float64("discount", discountAmount),
	)
	return nil
}

// Create validates and stores a new coupon definition.
func (s *CouponService) Create(ctx context.Context, coupon *domain.Coupon) error {
	existing, err := s.repo.FindByCode(ctx, coupon.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrCodeTaken, coupon.Code)
	}

	return s.repo.Create(ctx, coupon)
}

// List returns all coupon definitions.
func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.repo.List(ctx)
}

// Deactivate soft-disables a coupon. Used coupons are never hard-deleted.
func (s *CouponService) Deactivate(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.repo.Deactivate(ctx, code)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
