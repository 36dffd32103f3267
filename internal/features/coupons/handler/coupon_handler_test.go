package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mockCouponRepository is an in-memory CouponRepository for testing.
type mockCouponRepository struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon
}

func newMockCouponRepository(coupons ...*domain.Coupon) *mockCouponRepository {
	repo := &mockCouponRepository{coupons: make(map[string]*domain.Coupon)}
	for _, c := range coupons {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		repo.coupons[c.Code] = c
	}
	return repo
}

func (m *mockCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon, ok := m.coupons[code]
	if !ok {
		return nil, nil
	}
	copied := *coupon
	return &copied, nil
}

func (m *mockCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon.ID = primitive.NewObjectID()
	m.coupons[coupon.Code] = coupon
	return nil
}

func (m *mockCouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepository) Deactivate(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if coupon, ok := m.coupons[code]; ok {
		coupon.IsActive = false
	}
	return nil
}

func (m *mockCouponRepository) RecordUsage(ctx context.Context, couponID string, usage domain.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, coupon := range m.coupons {
		if coupon.ID.Hex() != couponID {
			continue
		}
		if coupon.UsageCount >= coupon.UsageLimit {
			return domain.ErrUsageLimitReached
		}
		coupon.UsageCount++
		coupon.UsageHistory = append(coupon.UsageHistory, usage)
		return nil
	}
	return domain.ErrUsageLimitReached
}

func newTestApp(repo *mockCouponRepository) *fiber.App {
	h := NewCouponHandler(service.NewCouponService(repo))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/coupons", h.CreateCoupon)
	app.Get("/coupons", h.ListCoupons)
	app.Post("/coupons/validate", h.ValidateCoupon)
	app.Post("/coupons/apply", h.ApplyCoupon)
	app.Delete("/coupons/:code", h.DeactivateCoupon)
	return app
}

func activeCoupon(code string) *domain.Coupon {
	return &domain.Coupon{
		ID:            primitive.NewObjectID(),
		Code:          code,
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 10,
		UsageLimit:    10,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTo:       time.Now().Add(24 * time.Hour),
		IsActive:      true,
	}
}

// TestCouponHandler_CreateCoupon_Success verifies creation returns 201 with the
// stored coupon.
func TestCouponHandler_CreateCoupon_Success(t *testing.T) {
	app := newTestApp(newMockCouponRepository())

	body, _ := json.Marshal(CreateCouponRequest{
		Code:          "welcome5",
		DiscountType:  "fixed",
		DiscountValue: 5,
		UsageLimit:    100,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTo:       time.Now().Add(24 * time.Hour),
	})
	req := httptest.NewRequest("POST", "/coupons", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Coupon
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "WELCOME5", created.Code)
	assert.True(t, created.IsActive)
}

// TestCouponHandler_CreateCoupon_InvalidDefinition verifies domain rejections
// surface as 400.
func TestCouponHandler_CreateCoupon_InvalidDefinition(t *testing.T) {
	app := newTestApp(newMockCouponRepository())

	// Percentage with no cap.
	body, _ := json.Marshal(CreateCouponRequest{
		Code:          "PCT20",
		DiscountType:  "percentage",
		DiscountValue: 20,
		UsageLimit:    10,
		ValidFrom:     time.Now(),
		ValidTo:       time.Now().Add(24 * time.Hour),
	})
	req := httptest.NewRequest("POST", "/coupons", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestCouponHandler_CreateCoupon_DuplicateCode verifies duplicates return 409.
func TestCouponHandler_CreateCoupon_DuplicateCode(t *testing.T) {
	app := newTestApp(newMockCouponRepository(activeCoupon("DUP")))

	body, _ := json.Marshal(CreateCouponRequest{
		Code:          "dup",
		DiscountType:  "fixed",
		DiscountValue: 5,
		UsageLimit:    10,
		ValidFrom:     time.Now(),
		ValidTo:       time.Now().Add(24 * time.Hour),
	})
	req := httptest.NewRequest("POST", "/coupons", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// TestCouponHandler_ApplyCoupon_Success verifies the discount payload.
func TestCouponHandler_ApplyCoupon_Success(t *testing.T) {
	app := newTestApp(newMockCouponRepository(activeCoupon("SAVE10")))

	body, _ := json.Marshal(service.ValidationRequest{Code: "save10", OrderValue: 75})
	req := httptest.NewRequest("POST", "/coupons/apply", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var discount service.Discount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&discount))
	assert.Equal(t, 10.0, discount.DiscountAmount)
	assert.Equal(t, 65.0, discount.FinalAmount)
}

// TestCouponHandler_ApplyCoupon_NotFound verifies unknown codes return 404.
func TestCouponHandler_ApplyCoupon_NotFound(t *testing.T) {
	app := newTestApp(newMockCouponRepository())

	body, _ := json.Marshal(service.ValidationRequest{Code: "NOPE", OrderValue: 75})
	req := httptest.NewRequest("POST", "/coupons/apply", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestCouponHandler_ValidateCoupon_Expired verifies rule failures return 422.
func TestCouponHandler_ValidateCoupon_Expired(t *testing.T) {
	coupon := activeCoupon("OLD")
	coupon.ValidTo = time.Now().Add(-time.Minute)
	app := newTestApp(newMockCouponRepository(coupon))

	body, _ := json.Marshal(service.ValidationRequest{Code: "OLD", OrderValue: 75})
	req := httptest.NewRequest("POST", "/coupons/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// TestCouponHandler_DeactivateCoupon verifies deactivation and the 404 case.
func TestCouponHandler_DeactivateCoupon(t *testing.T) {
	repo := newMockCouponRepository(activeCoupon("GONE"))
	app := newTestApp(repo)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/coupons/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, _ := repo.FindByCode(context.Background(), "GONE")
	assert.False(t, stored.IsActive)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/coupons/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestCouponHandler_ListCoupons verifies listing returns stored coupons.
func TestCouponHandler_ListCoupons(t *testing.T) {
	app := newTestApp(newMockCouponRepository(activeCoupon("A"), activeCoupon("B")))

	resp, err := app.Test(httptest.NewRequest("GET", "/coupons", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var coupons []domain.Coupon
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coupons))
	assert.Len(t, coupons, 2)
}
