package ports

import (
	"context"

	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/domain"
)

// CouponRepository defines the secondary port for coupon persistence.
type CouponRepository interface {
	// FindByCode returns the coupon for a normalized code, or nil when absent.
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// Create inserts a new coupon; the code must be unique.
	Create(ctx context.Context, coupon *domain.Coupon) error
	// List returns all coupons.
	List(ctx context.Context) ([]domain.Coupon, error)
	// Deactivate soft-disables a coupon by code.
	Deactivate(ctx context.Context, code string) error
	// RecordUsage atomically increments the usage count and appends a history
	// entry, refusing once the usage limit is reached. The increment must be
	// a store-level conditional update, never a read-modify-write.
	RecordUsage(ctx context.Context, couponID string, usage domain.Usage) error
}
