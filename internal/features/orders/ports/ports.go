package ports

import (
	"context"

	courier "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/domain"
)

// OrderRepository defines the secondary port for order persistence. The
// fulfillment service treats it as a document store keyed by order id.
type OrderRepository interface {
	// FindByID returns the order, or nil when it does not exist.
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// SetCourierBooking persists the courier sub-record in one update.
	SetCourierBooking(ctx context.Context, id string, info domain.CourierInfo) error
	// SetCourierStatus persists a refreshed courier status and replaces the
	// provider event log.
	SetCourierStatus(ctx context.Context, id string, status courier.CourierStatus, steps []courier.TrackingEvent) error
	// ClearCourierBooking removes the courier sub-record.
	ClearCourierBooking(ctx context.Context, id string) error
}
