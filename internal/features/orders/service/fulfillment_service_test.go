package service

import (
	"context"
	"testing"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/cache"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/config"
	courier "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderRepository is an in-memory OrderRepository for testing.
type mockOrderRepository struct {
	orders   map[string]*domain.Order
	writeErr error
}

func newMockOrderRepository(orders ...*domain.Order) *mockOrderRepository {
	repo := &mockOrderRepository{orders: make(map[string]*domain.Order)}
	for _, order := range orders {
		repo.orders[order.OrderNumber] = order
	}
	return repo
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	if order.Courier != nil {
		info := *order.Courier
		copied.Courier = &info
	}
	return &copied, nil
}

func (m *mockOrderRepository) SetCourierBooking(ctx context.Context, id string, info domain.CourierInfo) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.orders[id].Courier = &info
	return nil
}

func (m *mockOrderRepository) SetCourierStatus(ctx context.Context, id string, status courier.CourierStatus, steps []courier.TrackingEvent) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	order := m.orders[id]
	order.Courier.Status = status
	order.Courier.TrackingSteps = steps
	order.Courier.StatusCheckedAt = time.Now()
	return nil
}

func (m *mockOrderRepository) ClearCourierBooking(ctx context.Context, id string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.orders[id].Courier = nil
	return nil
}

// mockCourierGateway is a scripted CourierGateway for testing.
type mockCourierGateway struct {
	bookingResult *courier.BookingResult
	statusResult  *courier.StatusResult
	priceResult   *courier.PriceResult
	providers     []string
	statusCalls   int
}

func (m *mockCourierGateway) CreateOrder(ctx context.Context, provider string, payload courier.ShipmentPayload) *courier.BookingResult {
	return m.bookingResult
}

func (m *mockCourierGateway) GetStatus(ctx context.Context, provider string, ref courier.ShipmentRef) *courier.StatusResult {
	m.statusCalls++
	return m.statusResult
}

func (m *mockCourierGateway) CalculatePrice(ctx context.Context, provider string, params courier.PriceParams) *courier.PriceResult {
	return m.priceResult
}

func (m *mockCourierGateway) AvailableCouriers(ctx context.Context) []string {
	return m.providers
}

func shippableOrder(orderNumber string) *domain.Order {
	return &domain.Order{
		OrderNumber: orderNumber,
		UserID:      "user-1",
		Recipient: domain.Recipient{
			Name:    "Jane Roe",
			Phone:   "01700000000",
			Address: "House 1, Road 2",
			City:    "Dhaka",
		},
		Items: []domain.OrderItem{
			{Name: "mug", Quantity: 2, WeightKg: 0.3, Price: 250},
		},
		TotalPrice: 500,
		Status:     domain.OrderStatusProcessing,
	}
}

func bookedOrder(orderNumber string, status courier.CourierStatus) *domain.Order {
	order := shippableOrder(orderNumber)
	order.Courier = &domain.CourierInfo{
		Provider:       courier.ProviderPathao,
		ConsignmentID:  "DL1",
		TrackingNumber: "DL1",
		Status:         status,
		BookedAt:       time.Now().Add(-time.Hour),
	}
	return order
}

func newService(repo *mockOrderRepository, gateway *mockCourierGateway, trackingCache cache.Cache) *FulfillmentService {
	shipment := config.ShipmentConfig{DefaultRecipient: "Unknown", DefaultWeightKg: 0.5}
	return NewFulfillmentService(repo, gateway, trackingCache, shipment, 5*time.Minute)
}

func redisCache(t *testing.T) cache.Cache {
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

// TestFulfillmentService_BookCourier_Success verifies the booking persists the
// courier sub-record in pending state.
func TestFulfillmentService_BookCourier_Success(t *testing.T) {
	repo := newMockOrderRepository(shippableOrder("ORD-1"))
	gateway := &mockCourierGateway{
		bookingResult: &courier.BookingResult{
			Success:       true,
			Provider:      courier.ProviderPathao,
			ConsignmentID: "DL1",
			DeliveryFee:   80,
		},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.BookCourier(context.Background(), "ORD-1", courier.ProviderPathao)

	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, _ := repo.FindByID(context.Background(), "ORD-1")
	require.NotNil(t, stored.Courier)
	assert.Equal(t, "DL1", stored.Courier.ConsignmentID)
	assert.Equal(t, courier.CourierStatusPending, stored.Courier.Status)
	assert.Equal(t, 80.0, stored.Courier.DeliveryFee)
}

// TestFulfillmentService_BookCourier_ProviderFailure verifies a rejected
// booking leaves the order untouched.
func TestFulfillmentService_BookCourier_ProviderFailure(t *testing.T) {
	repo := newMockOrderRepository(shippableOrder("ORD-1"))
	gateway := &mockCourierGateway{
		bookingResult: &courier.BookingResult{Success: false, Provider: courier.ProviderPathao, Error: "no credentials"},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.BookCourier(context.Background(), "ORD-1", courier.ProviderPathao)

	require.NoError(t, err)
	assert.False(t, result.Success)

	stored, _ := repo.FindByID(context.Background(), "ORD-1")
	assert.Nil(t, stored.Courier)
}

// TestFulfillmentService_BookCourier_NotFound verifies the missing-order error.
func TestFulfillmentService_BookCourier_NotFound(t *testing.T) {
	svc := newService(newMockOrderRepository(), &mockCourierGateway{}, nil)

	_, err := svc.BookCourier(context.Background(), "MISSING", courier.ProviderPathao)

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// TestFulfillmentService_BookCourier_MissingAddress verifies orders without a
// usable destination are refused.
func TestFulfillmentService_BookCourier_MissingAddress(t *testing.T) {
	order := shippableOrder("ORD-1")
	order.Recipient.Address = ""
	svc := newService(newMockOrderRepository(order), &mockCourierGateway{}, nil)

	_, err := svc.BookCourier(context.Background(), "ORD-1", courier.ProviderPathao)

	assert.ErrorIs(t, err, ErrMissingShippingAddress)
}

// TestFulfillmentService_BookCourier_AlreadyBooked verifies rebooking is
// refused once the consignment has left the pending stage.
func TestFulfillmentService_BookCourier_AlreadyBooked(t *testing.T) {
	svc := newService(newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusInTransit)), &mockCourierGateway{}, nil)

	_, err := svc.BookCourier(context.Background(), "ORD-1", courier.ProviderSteadfast)

	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

// TestFulfillmentService_BookCourier_PendingRebook verifies a pending
// consignment may still be rebooked.
func TestFulfillmentService_BookCourier_PendingRebook(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusPending))
	gateway := &mockCourierGateway{
		bookingResult: &courier.BookingResult{Success: true, Provider: courier.ProviderSteadfast, ConsignmentID: "1424107"},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.BookCourier(context.Background(), "ORD-1", courier.ProviderSteadfast)

	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, _ := repo.FindByID(context.Background(), "ORD-1")
	assert.Equal(t, "1424107", stored.Courier.ConsignmentID)
}

// TestFulfillmentService_BuildPayload_Defaults verifies placeholder recipient
// fields and the default item weight.
func TestFulfillmentService_BuildPayload_Defaults(t *testing.T) {
	order := shippableOrder("ORD-1")
	order.Recipient.Name = ""
	order.Recipient.Phone = ""
	order.Items = []domain.OrderItem{{Name: "sticker", Quantity: 3}}
	order.CouponCode = "SAVE10"
	svc := newService(newMockOrderRepository(order), &mockCourierGateway{}, nil)

	payload := svc.buildPayload(order)

	assert.Equal(t, "Unknown", payload.RecipientName)
	assert.Equal(t, "Unknown", payload.RecipientPhone)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 0.5, payload.Items[0].WeightKg)
	assert.Contains(t, payload.Notes, "SAVE10")
}

// TestFulfillmentService_RefreshCourierStatus_Persists verifies a live status
// is written back onto the order.
func TestFulfillmentService_RefreshCourierStatus_Persists(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusPickedUp))
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{
			Success:  true,
			Provider: courier.ProviderPathao,
			Status:   courier.CourierStatusInTransit,
			Events:   []courier.TrackingEvent{{Status: courier.CourierStatusInTransit, Timestamp: time.Now()}},
		},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.RefreshCourierStatus(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, _ := repo.FindByID(context.Background(), "ORD-1")
	assert.Equal(t, courier.CourierStatusInTransit, stored.Courier.Status)
	assert.Len(t, stored.Courier.TrackingSteps, 1)
}

// TestFulfillmentService_RefreshCourierStatus_TerminalShortCircuit verifies a
// delivered order is never refreshed or overwritten.
func TestFulfillmentService_RefreshCourierStatus_TerminalShortCircuit(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusDelivered))
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{Success: true, Status: courier.CourierStatusReturned},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.RefreshCourierStatus(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, courier.CourierStatusDelivered, result.Status)
	assert.Zero(t, gateway.statusCalls)

	stored, _ := repo.FindByID(context.Background(), "ORD-1")
	assert.Equal(t, courier.CourierStatusDelivered, stored.Courier.Status)
}

// TestFulfillmentService_RefreshCourierStatus_NoBooking verifies unbooked
// orders are refused.
func TestFulfillmentService_RefreshCourierStatus_NoBooking(t *testing.T) {
	svc := newService(newMockOrderRepository(shippableOrder("ORD-1")), &mockCourierGateway{}, nil)

	_, err := svc.RefreshCourierStatus(context.Background(), "ORD-1")

	assert.ErrorIs(t, err, ErrNoCourierInfo)
}

// TestFulfillmentService_TrackOrder_Live verifies a live tracking read.
func TestFulfillmentService_TrackOrder_Live(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusInTransit))
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{
			Success: true,
			Status:  courier.CourierStatusOutForDelivery,
			Events:  []courier.TrackingEvent{{Status: courier.CourierStatusOutForDelivery, Timestamp: time.Now()}},
		},
	}
	svc := newService(repo, gateway, nil)

	info, err := svc.TrackOrder(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.True(t, info.Live)
	assert.Equal(t, courier.CourierStatusOutForDelivery, info.Status)
}

// TestFulfillmentService_TrackOrder_FallsBackToCache verifies a provider
// outage serves the cached snapshot from the previous successful read.
func TestFulfillmentService_TrackOrder_FallsBackToCache(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusInTransit))
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{
			Success: true,
			Status:  courier.CourierStatusOutForDelivery,
		},
	}
	svc := newService(repo, gateway, redisCache(t))

	// First read is live and populates the snapshot cache.
	info, err := svc.TrackOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.True(t, info.Live)

	// Provider goes down; the read is served from the snapshot.
	gateway.statusResult = &courier.StatusResult{Success: false, Error: "connection refused"}
	info, err = svc.TrackOrder(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.False(t, info.Live)
	assert.Equal(t, courier.CourierStatusOutForDelivery, info.Status)
}

// TestFulfillmentService_TrackOrder_FallsBackToPersisted verifies the
// last-persisted courier state serves when neither live nor cache is available.
func TestFulfillmentService_TrackOrder_FallsBackToPersisted(t *testing.T) {
	order := bookedOrder("ORD-1", courier.CourierStatusPickedUp)
	order.Courier.TrackingSteps = []courier.TrackingEvent{{Status: courier.CourierStatusPickedUp, Timestamp: time.Now()}}
	repo := newMockOrderRepository(order)
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{Success: false, Error: "connection refused"},
	}
	svc := newService(repo, gateway, redisCache(t))

	info, err := svc.TrackOrder(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.False(t, info.Live)
	assert.Equal(t, courier.CourierStatusPickedUp, info.Status)
	assert.Len(t, info.Events, 1)
}

// TestFulfillmentService_TrackOrder_NothingAvailable verifies the final
// fallback error when no state exists anywhere.
func TestFulfillmentService_TrackOrder_NothingAvailable(t *testing.T) {
	order := bookedOrder("ORD-1", "")
	repo := newMockOrderRepository(order)
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{Success: false, Error: "connection refused"},
	}
	svc := newService(repo, gateway, nil)

	_, err := svc.TrackOrder(context.Background(), "ORD-1")

	assert.ErrorIs(t, err, ErrNoTrackingAvailable)
}

// TestFulfillmentService_EstimateDeliveryPrice verifies weight aggregation
// feeds the quote.
func TestFulfillmentService_EstimateDeliveryPrice(t *testing.T) {
	repo := newMockOrderRepository(shippableOrder("ORD-1"))
	gateway := &mockCourierGateway{
		priceResult: &courier.PriceResult{Success: true, Provider: courier.ProviderPathao, Price: 80},
	}
	svc := newService(repo, gateway, nil)

	result, err := svc.EstimateDeliveryPrice(context.Background(), courier.ProviderPathao, "ORD-1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 80.0, result.Price)
}

// TestFulfillmentService_RemoveCourierBooking verifies removal rules.
func TestFulfillmentService_RemoveCourierBooking(t *testing.T) {
	t.Run("pending removable", func(t *testing.T) {
		repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusPending))
		svc := newService(repo, &mockCourierGateway{}, redisCache(t))

		require.NoError(t, svc.RemoveCourierBooking(context.Background(), "ORD-1"))

		stored, _ := repo.FindByID(context.Background(), "ORD-1")
		assert.Nil(t, stored.Courier)
	})

	t.Run("in transit refused", func(t *testing.T) {
		repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusInTransit))
		svc := newService(repo, &mockCourierGateway{}, nil)

		err := svc.RemoveCourierBooking(context.Background(), "ORD-1")
		assert.ErrorIs(t, err, ErrBookingNotRemovable)
	})

	t.Run("no booking refused", func(t *testing.T) {
		svc := newService(newMockOrderRepository(shippableOrder("ORD-1")), &mockCourierGateway{}, nil)

		err := svc.RemoveCourierBooking(context.Background(), "ORD-1")
		assert.ErrorIs(t, err, ErrNoCourierInfo)
	})
}

// TestFulfillmentService_BulkRemoveCourierBookings verifies partial removal
// counts rather than whole-batch failure.
func TestFulfillmentService_BulkRemoveCourierBookings(t *testing.T) {
	repo := newMockOrderRepository(
		bookedOrder("ORD-1", courier.CourierStatusPending),
		bookedOrder("ORD-2", courier.CourierStatusDelivered),
		bookedOrder("ORD-3", courier.CourierStatusCancelled),
		shippableOrder("ORD-4"),
	)
	svc := newService(repo, &mockCourierGateway{}, nil)

	result, err := svc.BulkRemoveCourierBookings(context.Background(), []string{"ORD-1", "ORD-2", "ORD-3", "ORD-4", "MISSING"})

	require.NoError(t, err)
	assert.Equal(t, 5, result.Requested)
	assert.Equal(t, 2, result.Removed)
	assert.ElementsMatch(t, []string{"ORD-2", "ORD-4", "MISSING"}, result.Skipped)
}

// TestFulfillmentService_RefreshAll verifies per-order outcomes in input order.
func TestFulfillmentService_RefreshAll(t *testing.T) {
	repo := newMockOrderRepository(
		bookedOrder("ORD-1", courier.CourierStatusPickedUp),
		shippableOrder("ORD-2"),
	)
	gateway := &mockCourierGateway{
		statusResult: &courier.StatusResult{Success: true, Status: courier.CourierStatusInTransit},
	}
	svc := newService(repo, gateway, nil)

	outcomes := svc.RefreshAll(context.Background(), []string{"ORD-1", "ORD-2", "MISSING"})

	require.Len(t, outcomes, 3)
	assert.Equal(t, "ORD-1", outcomes[0].OrderID)
	assert.Equal(t, courier.CourierStatusInTransit, outcomes[0].Status)
	assert.Empty(t, outcomes[0].Error)
	assert.Contains(t, outcomes[1].Error, "courier information")
	assert.Contains(t, outcomes[2].Error, "not found")
}

// TestFulfillmentService_AvailableCouriersForOrder verifies the options view.
func TestFulfillmentService_AvailableCouriersForOrder(t *testing.T) {
	repo := newMockOrderRepository(bookedOrder("ORD-1", courier.CourierStatusDelivered))
	gateway := &mockCourierGateway{providers: []string{courier.ProviderPathao, courier.ProviderSteadfast}}
	svc := newService(repo, gateway, nil)

	options, err := svc.AvailableCouriersForOrder(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.Equal(t, []string{courier.ProviderPathao, courier.ProviderSteadfast}, options.Providers)
	assert.False(t, options.CanChangeCourier)
}
