package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/cache"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/config"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	courier "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/ports"

	"go.uber.org/zap"
)

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrMissingShippingAddress is returned when the order has no usable destination.
	ErrMissingShippingAddress = errors.New("order has no shipping address")
	// ErrAlreadyBooked is returned when a consignment already exists and has
	// progressed past the pending stage.
	ErrAlreadyBooked = errors.New("order already has a courier booking")
	// ErrNoCourierInfo is returned when an operation requires an existing booking.
	ErrNoCourierInfo = errors.New("order has no courier information")
	// ErrBookingNotRemovable is returned when the consignment has progressed
	// past the removable stages.
	ErrBookingNotRemovable = errors.New("courier booking can no longer be removed")
	// ErrNoTrackingAvailable is returned when neither a live status nor any
	// previously persisted state exists.
	ErrNoTrackingAvailable = errors.New("no tracking information available")
)

// refreshConcurrency bounds the fan-out of bulk status refreshes.
const refreshConcurrency = 4

// CourierGateway is what the fulfillment service needs from the courier
// service. It is satisfied by courier/service.CourierService.
type CourierGateway interface {
	CreateOrder(ctx context.Context, provider string, payload courier.ShipmentPayload) *courier.BookingResult
	GetStatus(ctx context.Context, provider string, ref courier.ShipmentRef) *courier.StatusResult
	CalculatePrice(ctx context.Context, provider string, params courier.PriceParams) *courier.PriceResult
	AvailableCouriers(ctx context.Context) []string
}

// TrackingInfo is what a tracking page renders: the current courier status
// and event log, plus where the data came from.
type TrackingInfo struct {
	// OrderID is the tracked order.
	OrderID string `json:"order_id"`
	// Provider is the booked courier.
	Provider string `json:"provider"`
	// Status is the courier delivery status.
	Status courier.CourierStatus `json:"status"`
	// Events is the provider event log.
	Events []courier.TrackingEvent `json:"events,omitempty"`
	// Live reports whether this snapshot came from the provider on this
	// request; false means it was served from cache or the order record.
	Live bool `json:"live"`
	// CheckedAt is when the snapshot was produced.
	CheckedAt time.Time `json:"checked_at"`
}

// CourierOptions lists providers available for an order plus whether the
// order may still change courier.
type CourierOptions struct {
	// Providers are the couriers the order can be booked with.
	Providers []string `json:"providers"`
	// CanChangeCourier reports whether rebooking is still permitted.
	CanChangeCourier bool `json:"can_change_courier"`
}

// BulkRemovalResult reports the outcome of a bulk booking removal.
type BulkRemovalResult struct {
	// Requested is how many orders were asked for.
	Requested int `json:"requested"`
	// Removed is how many bookings were actually eligible and cleared.
	Removed int `json:"removed"`
	// Skipped lists the order ids that were not eligible.
	Skipped []string `json:"skipped,omitempty"`
}

// RefreshOutcome is the per-order result of a bulk status refresh.
type RefreshOutcome struct {
	// OrderID is the refreshed order.
	OrderID string `json:"order_id"`
	// Status is the courier status after the refresh.
	Status courier.CourierStatus `json:"status,omitempty"`
	// Error is set when the refresh failed.
	Error string `json:"error,omitempty"`
}

// FulfillmentService orchestrates the order-to-delivery pipeline: booking a
// consignment from an existing order, reconciling delivery status back onto
// the order, and serving tracking reads that survive provider outages.
type FulfillmentService struct {
	orders   ports.OrderRepository
	couriers CourierGateway
	cache    cache.Cache
	shipment config.ShipmentConfig
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewFulfillmentService creates a FulfillmentService. The cache is optional;
// pass nil to disable the tracking snapshot cache.
func NewFulfillmentService(orders ports.OrderRepository, couriers CourierGateway, trackingCache cache.Cache, shipment config.ShipmentConfig, cacheTTL time.Duration) *FulfillmentService {
	return &FulfillmentService{
		orders:   orders,
		couriers: couriers,
		cache:    trackingCache,
		shipment: shipment,
		cacheTTL: cacheTTL,
		logger:   logger.Get(),
	}
}

// loadOrder fetches an order and maps absence to ErrOrderNotFound.
func (s *FulfillmentService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// buildPayload converts an order into the canonical shipment payload.
// Missing recipient name/phone fall back to the configured placeholder;
// missing item weights fall back to the configured default.
func (s *FulfillmentService) buildPayload(order *domain.Order) courier.ShipmentPayload {
	name := order.Recipient.Name
	if name == "" {
		name = s.shipment.DefaultRecipient
	}
	phone := order.Recipient.Phone
	if phone == "" {
		phone = s.shipment.DefaultRecipient
	}

	items := make([]courier.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		weight := item.WeightKg
		if weight == 0 {
			weight = s.shipment.DefaultWeightKg
		}
		items = append(items, courier.ShipmentItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			WeightKg: weight,
			Price:    item.Price,
		})
	}

	notes := ""
	if order.CouponCode != "" {
		notes = fmt.Sprintf("Discount applied: %s", order.CouponCode)
	}

	return courier.ShipmentPayload{
		OrderNumber:    order.OrderNumber,
		RecipientName:  name,
		RecipientPhone: phone,
		Address:        order.Recipient.Address,
		City:           order.Recipient.City,
		Area:           order.Recipient.Area,
		Postcode:       order.Recipient.Postcode,
		Items:          items,
		TotalAmount:    order.TotalPrice,
		Notes:          notes,
	}
}

// BookCourier creates a consignment for an existing order. On provider
// failure the order is left untouched and the failure result is returned;
// the caller may simply retry.
func (s *FulfillmentService) BookCourier(ctx context.Context, orderID, provider string) (*courier.BookingResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.HasShippingAddress() {
		return nil, fmt.Errorf("%w: %s", ErrMissingShippingAddress, orderID)
	}
	if order.HasCourierBooking() && !order.CanChangeCourier() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyBooked, orderID)
	}

	result := s.couriers.CreateOrder(ctx, provider, s.buildPayload(order))
	if !result.Success {
		s.logger.Warn("Courier booking rejected",
			zap.String("order_id", orderID),
			zap.String("provider", provider),
			zap.String("reason", result.Error),
		)
		return result, nil
	}

	info := domain.CourierInfo{
		Provider:       provider,
		ConsignmentID:  result.ConsignmentID,
		TrackingNumber: result.TrackingNumber,
		Status:         courier.CourierStatusPending,
		DeliveryFee:    result.DeliveryFee,
		BookedAt:       time.Now(),
	}
	if err := s.orders.SetCourierBooking(ctx, orderID, info); err != nil {
		return nil, err
	}

	s.logger.Info("Courier booking created",
		zap.String("order_id", orderID),
		zap.String("provider", provider),
		zap.String("consignment_id", result.ConsignmentID),
	)
	return result, nil
}

// RefreshCourierStatus fetches the live delivery status and persists it onto
// the order, replacing the provider event log. Terminal statuses are never
// overwritten.
func (s *FulfillmentService) RefreshCourierStatus(ctx context.Context, orderID string) (*courier.StatusResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasCourierBooking() {
		return nil, fmt.Errorf("%w: %s", ErrNoCourierInfo, orderID)
	}

	if order.Courier.Status.IsTerminal() {
		return &courier.StatusResult{
			Success:  true,
			Provider: order.Courier.Provider,
			Status:   order.Courier.Status,
			Events:   order.Courier.TrackingSteps,
		}, nil
	}

	result := s.couriers.GetStatus(ctx, order.Courier.Provider, courier.ShipmentRef{
		ConsignmentID:  order.Courier.ConsignmentID,
		Invoice:        order.OrderNumber,
		TrackingNumber: order.Courier.TrackingNumber,
	})
	if !result.Success {
		return result, nil
	}

	if err := s.orders.SetCourierStatus(ctx, orderID, result.Status, result.Events); err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, orderID, order.Courier.Provider, result)
	return result, nil
}

// TrackOrder is the resilient tracking read. It attempts a live status call
// and on any failure falls back to the cached snapshot, then to the
// last-persisted courier state, so tracking pages stay available while a
// provider is down.
func (s *FulfillmentService) TrackOrder(ctx context.Context, orderID string) (*TrackingInfo, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasCourierBooking() {
		return nil, fmt.Errorf("%w: %s", ErrNoCourierInfo, orderID)
	}

	result := s.couriers.GetStatus(ctx, order.Courier.Provider, courier.ShipmentRef{
		ConsignmentID:  order.Courier.ConsignmentID,
		Invoice:        order.OrderNumber,
		TrackingNumber: order.Courier.TrackingNumber,
	})
	if result.Success {
		s.cacheSnapshot(ctx, orderID, order.Courier.Provider, result)
		return &TrackingInfo{
			OrderID:   orderID,
			Provider:  order.Courier.Provider,
			Status:    result.Status,
			Events:    result.Events,
			Live:      true,
			CheckedAt: time.Now(),
		}, nil
	}

	s.logger.Warn("Live tracking unavailable, serving last-known state",
		zap.String("order_id", orderID),
		zap.String("provider", order.Courier.Provider),
		zap.String("reason", result.Error),
	)

	if snapshot := s.cachedSnapshot(ctx, orderID); snapshot != nil {
		return snapshot, nil
	}

	if order.Courier.Status != "" {
		return &TrackingInfo{
			OrderID:   orderID,
			Provider:  order.Courier.Provider,
			Status:    order.Courier.Status,
			Events:    order.Courier.TrackingSteps,
			Live:      false,
			CheckedAt: order.Courier.StatusCheckedAt,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoTrackingAvailable, orderID)
}

// EstimateDeliveryPrice quotes the delivery fee for shipping an order with
// the given provider.
func (s *FulfillmentService) EstimateDeliveryPrice(ctx context.Context, provider, orderID string) (*courier.PriceResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payload := s.buildPayload(order)
	return s.couriers.CalculatePrice(ctx, provider, courier.PriceParams{
		City:      order.Recipient.City,
		Zone:      order.Recipient.Area,
		WeightKg:  payload.TotalWeightKg(),
		CodAmount: order.TotalPrice,
	}), nil
}

// AvailableCouriersForOrder lists the providers the order can be booked with
// and whether the order may still change courier.
func (s *FulfillmentService) AvailableCouriersForOrder(ctx context.Context, orderID string) (*CourierOptions, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &CourierOptions{
		Providers:        s.couriers.AvailableCouriers(ctx),
		CanChangeCourier: order.CanChangeCourier(),
	}, nil
}

// RemoveCourierBooking clears the courier sub-record so the order can be
// rebooked. Permitted only while the consignment is pending or cancelled.
func (s *FulfillmentService) RemoveCourierBooking(ctx context.Context, orderID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.HasCourierBooking() {
		return fmt.Errorf("%w: %s", ErrNoCourierInfo, orderID)
	}
	if !order.CanRemoveCourierBooking() {
		return fmt.Errorf("%w: %s is %s", ErrBookingNotRemovable, orderID, order.Courier.Status)
	}

	if err := s.orders.ClearCourierBooking(ctx, orderID); err != nil {
		return err
	}
	s.dropSnapshot(ctx, orderID)
	return nil
}

// BulkRemoveCourierBookings clears the eligible subset of the requested
// bookings and reports how many were actually removed, rather than failing
// the whole batch.
func (s *FulfillmentService) BulkRemoveCourierBookings(ctx context.Context, orderIDs []string) (*BulkRemovalResult, error) {
	result := &BulkRemovalResult{Requested: len(orderIDs)}

	for _, orderID := range orderIDs {
		if err := s.RemoveCourierBooking(ctx, orderID); err != nil {
			if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrNoCourierInfo) || errors.Is(err, ErrBookingNotRemovable) {
				result.Skipped = append(result.Skipped, orderID)
				continue
			}
			return nil, err
		}
		result.Removed++
	}

	return result, nil
}

// RefreshAll refreshes courier status for a batch of orders with a bounded
// goroutine fan-out, returning one outcome per order in input order.
func (s *FulfillmentService) RefreshAll(ctx context.Context, orderIDs []string) []RefreshOutcome {
	outcomes := make([]RefreshOutcome, len(orderIDs))
	sem := make(chan struct{}, refreshConcurrency)

	var wg sync.WaitGroup
	for i, orderID := range orderIDs {
		wg.Add(1)
		go func(i int, orderID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := RefreshOutcome{OrderID: orderID}
			result, err := s.RefreshCourierStatus(ctx, orderID)
			switch {
			case err != nil:
				outcome.Error = err.Error()
			case !result.Success:
				outcome.Error = result.Error
			default:
				outcome.Status = result.Status
			}
			outcomes[i] = outcome
		}(i, orderID)
	}
	wg.Wait()

	return outcomes
}

// trackingCacheKey builds the cache key for an order's tracking snapshot.
func trackingCacheKey(orderID string) string {
	return "tracking:" + orderID
}

// cacheSnapshot stores a normalized live result for fallback reads.
func (s *FulfillmentService) cacheSnapshot(ctx context.Context, orderID, provider string, result *courier.StatusResult) {
	if s.cache == nil {
		return
	}

	snapshot := TrackingInfo{
		OrderID:   orderID,
		Provider:  provider,
		Status:    result.Status,
		Events:    result.Events,
		Live:      false,
		CheckedAt: time.Now(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, trackingCacheKey(orderID), data, s.cacheTTL); err != nil {
		s.logger.Debug("Failed to cache tracking snapshot", zap.String("order_id", orderID), zap.Error(err))
	}
}

// cachedSnapshot loads the fallback snapshot, or nil when absent.
func (s *FulfillmentService) cachedSnapshot(ctx context.Context, orderID string) *TrackingInfo {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, trackingCacheKey(orderID))
	if err != nil {
		return nil
	}

	var snapshot TrackingInfo
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

// dropSnapshot removes the fallback snapshot after a booking is cleared.
func (s *FulfillmentService) dropSnapshot(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, trackingCacheKey(orderID)); err != nil {
		s.logger.Debug("Failed to drop tracking snapshot", zap.String("order_id", orderID), zap.Error(err))
	}
}
