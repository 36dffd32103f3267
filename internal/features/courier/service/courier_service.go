package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/config"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/adapters"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/ports"

	"go.uber.org/zap"
)

var (
	// ErrProviderNotSupported is returned when the provider identifier is unknown.
	ErrProviderNotSupported = errors.New("courier provider not supported")
	// ErrNoActiveCredentials is returned when no credentials exist for the provider.
	ErrNoActiveCredentials = errors.New("no active credentials configured")
	// ErrCredentialsInactive is returned when credentials exist but are disabled.
	ErrCredentialsInactive = errors.New("credentials are inactive")
)

// AdapterFactory builds a provider adapter from one credential revision.
// Injected so tests can substitute fakes.
type AdapterFactory func(credential domain.Credential) (ports.CourierProvider, error)

// DefaultAdapterFactory builds the real HTTP adapters from configuration.
func DefaultAdapterFactory(cfg config.CourierConfig) AdapterFactory {
	return func(credential domain.Credential) (ports.CourierProvider, error) {
		switch credential.Provider {
		case domain.ProviderPathao:
			if credential.Pathao == nil {
				return nil, fmt.Errorf("pathao credential record is missing its secret bundle")
			}
			return adapters.NewPathaoAdapter(cfg.PathaoBaseURL, *credential.Pathao, cfg.Timeout()), nil
		case domain.ProviderSteadfast:
			if credential.Steadfast == nil {
				return nil, fmt.Errorf("steadfast credential record is missing its secret bundle")
			}
			return adapters.NewSteadfastAdapter(cfg.SteadfastBaseURL, *credential.Steadfast, cfg.Timeout()), nil
		default:
			return nil, ErrProviderNotSupported
		}
	}
}

// cachedAdapter pairs an adapter with the credential revision it was built
// from, so rotation invalidates it instead of mutating it in place.
type cachedAdapter struct {
	key     string
	adapter ports.CourierProvider
}

// CourierService is the provider-agnostic façade over the courier adapters.
// Every public operation returns a result object with an explicit success
// flag; no adapter or transport error escapes to the caller.
type CourierService struct {
	credentials ports.CredentialRepository
	factory     AdapterFactory
	logger      *zap.Logger

	mu     sync.Mutex
	active map[string]cachedAdapter
}

// NewCourierService creates a CourierService over the given credential store
// and adapter factory.
func NewCourierService(credentials ports.CredentialRepository, factory AdapterFactory) *CourierService {
	return &CourierService{
		credentials: credentials,
		factory:     factory,
		logger:      logger.Get(),
		active:      make(map[string]cachedAdapter),
	}
}

// adapterFor resolves active credentials for the provider and returns the
// matching adapter, reusing a cached one while the credential revision is
// unchanged.
func (s *CourierService) adapterFor(ctx context.Context, provider string) (ports.CourierProvider, error) {
	if !domain.IsSupportedProvider(provider) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotSupported, provider)
	}

	credential, err := s.credentials.FindByProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoActiveCredentials, provider)
	}
	if !credential.IsActive {
		return nil, fmt.Errorf("%s %w", provider, ErrCredentialsInactive)
	}

	key := credential.CacheKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.active[provider]; ok && cached.key == key {
		return cached.adapter, nil
	}

	adapter, err := s.factory(*credential)
	if err != nil {
		return nil, err
	}

	s.active[provider] = cachedAdapter{key: key, adapter: adapter}
	return adapter, nil
}

// CreateOrder books one consignment with the requested provider.
func (s *CourierService) CreateOrder(ctx context.Context, provider string, payload domain.ShipmentPayload) *domain.BookingResult {
	adapter, err := s.adapterFor(ctx, provider)
	if err != nil {
		return &domain.BookingResult{Success: false, Provider: provider, Error: err.Error()}
	}

	result, err := adapter.CreateOrder(ctx, payload)
	if err != nil {
		s.logger.Error("Courier order creation failed",
			zap.String("provider", provider),
			zap.String("order_number", payload.OrderNumber),
			zap.Error(err),
		)
		return &domain.BookingResult{Success: false, Provider: provider, Error: err.Error()}
	}
	return result
}

// BulkCreate books a batch of consignments with the requested provider.
func (s *CourierService) BulkCreate(ctx context.Context, provider string, payloads []domain.ShipmentPayload) *domain.BulkBookingResult {
	adapter, err := s.adapterFor(ctx, provider)
	if err != nil {
		return &domain.BulkBookingResult{Success: false, Provider: provider, Error: err.Error()}
	}

	result, err := adapter.BulkCreate(ctx, payloads)
	if err != nil {
		s.logger.Error("Courier bulk creation failed",
			zap.String("provider", provider),
			zap.Int("count", len(payloads)),
			zap.Error(err),
		)
		return &domain.BulkBookingResult{Success: false, Provider: provider, Error: err.Error()}
	}
	return result
}

// GetStatus fetches the live delivery status of a consignment.
func (s *CourierService) GetStatus(ctx context.Context, provider string, ref domain.ShipmentRef) *domain.StatusResult {
	adapter, err := s.adapterFor(ctx, provider)
	if err != nil {
		return &domain.StatusResult{Success: false, Provider: provider, Error: err.Error()}
	}

	result, err := adapter.GetStatus(ctx, ref)
	if err != nil {
		s.logger.Error("Courier status lookup failed",
			zap.String("provider", provider),
			zap.String("consignment_id", ref.ConsignmentID),
			zap.Error(err),
		)
		return &domain.StatusResult{Success: false, Provider: provider, Error: err.Error()}
	}
	return result
}

// CalculatePrice quotes a delivery fee with the requested provider.
func (s *CourierService) CalculatePrice(ctx context.Context, provider string, params domain.PriceParams) *domain.PriceResult {
	adapter, err := s.adapterFor(ctx, provider)
	if err != nil {
		return &domain.PriceResult{Success: false, Provider: provider, Error: err.Error()}
	}

	result, err := adapter.CalculatePrice(ctx, params)
	if err != nil {
		s.logger.Error("Courier price calculation failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return &domain.PriceResult{Success: false, Provider: provider, Error: err.Error()}
	}
	return result
}

// AvailableCouriers returns the providers with active credentials. When none
// are configured yet, the full supported list is returned so callers can
// still present options before setup.
func (s *CourierService) AvailableCouriers(ctx context.Context) []string {
	providers, err := s.credentials.FindActiveProviders(ctx)
	if err != nil {
		s.logger.Warn("Failed to list active couriers, falling back to supported list", zap.Error(err))
		return append([]string(nil), domain.SupportedProviders...)
	}
	if len(providers) == 0 {
		return append([]string(nil), domain.SupportedProviders...)
	}
	return providers
}

// ValidateCredentials reports whether the provider has an active credential
// set. Lookup errors are swallowed as false.
func (s *CourierService) ValidateCredentials(ctx context.Context, provider string) bool {
	credential, err := s.credentials.FindByProvider(ctx, provider)
	if err != nil {
		s.logger.Warn("Credential validation lookup failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return false
	}
	return credential != nil && credential.IsActive
}
