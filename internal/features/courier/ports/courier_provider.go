package ports

import (
	"context"

	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
)

// CourierProvider defines the capability interface every courier adapter
// implements. New providers are added by implementing this interface, not by
// branching inside a shared type.
//
// Adapters normalize provider-side rejections into results with
// Success=false; only transport-level failures surface as returned errors,
// and the courier service is the single place those are caught.
type CourierProvider interface {
	// Name returns the provider identifier this adapter serves.
	Name() string
	// CreateOrder submits one consignment to the provider.
	CreateOrder(ctx context.Context, payload domain.ShipmentPayload) (*domain.BookingResult, error)
	// BulkCreate submits a batch of consignments to the provider.
	BulkCreate(ctx context.Context, payloads []domain.ShipmentPayload) (*domain.BulkBookingResult, error)
	// GetStatus looks up the current delivery status of a consignment.
	GetStatus(ctx context.Context, ref domain.ShipmentRef) (*domain.StatusResult, error)
	// CalculatePrice quotes a delivery fee for the given parameters.
	CalculatePrice(ctx context.Context, params domain.PriceParams) (*domain.PriceResult, error)
}

// CredentialRepository defines the secondary port for courier credential storage.
type CredentialRepository interface {
	// FindByProvider returns the provider's credential record, or nil when
	// none exists.
	FindByProvider(ctx context.Context, provider string) (*domain.Credential, error)
	// FindActiveProviders returns the providers that have an active credential set.
	FindActiveProviders(ctx context.Context) ([]string, error)
}
